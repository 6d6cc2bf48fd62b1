// Package engine provides the tick-based simulation loop and the fire-fighting
// simulation it drives.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Layer cadences, in ticks. One tick is one simulated second.
const (
	TicksPerWind     = 600  // Wind drifts
	TicksPerSnapshot = 3600 // Agent states are persisted
)

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Base tick interval
	MaxTicks uint64        // Stop after this many ticks (0 = unbounded)

	running atomic.Bool

	speedMu sync.RWMutex
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused

	// Callbacks for each tick layer, populated during setup.
	OnTick     func(tick uint64) // Every tick
	OnWind     func(tick uint64) // Every TicksPerWind
	OnSnapshot func(tick uint64) // Every TicksPerSnapshot

	// Done is polled after each tick; returning true stops the loop.
	Done func() bool
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		speed:    1.0,
		Interval: 10 * time.Millisecond,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.speedMu.RLock()
	defer e.speedMu.RUnlock()
	return e.speed
}

// SetSpeed changes the speed multiplier; 0 pauses the loop.
func (e *Engine) SetSpeed(speed float64) {
	e.speedMu.Lock()
	e.speed = speed
	e.speedMu.Unlock()
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the simulation loop. Blocks until Stop is called, Done reports
// true, or MaxTicks is reached.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed())

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		if !e.step() {
			break
		}

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	e.running.Store(false)
	slog.Info("simulation engine stopped", "tick", e.Tick)
}

// RunFor advances up to n ticks as fast as possible, ignoring speed. It
// returns the number of ticks actually run.
func (e *Engine) RunFor(n uint64) uint64 {
	var ran uint64
	for ran < n {
		ran++
		if !e.step() {
			break
		}
	}
	return ran
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// step advances the simulation by one tick. It returns false when the run
// should end.
func (e *Engine) step() bool {
	e.Tick++

	if e.Tick%TicksPerWind == 0 && e.OnWind != nil {
		e.OnWind(e.Tick)
	}

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}

	if e.Tick%TicksPerSnapshot == 0 && e.OnSnapshot != nil {
		e.OnSnapshot(e.Tick)
	}

	if e.MaxTicks > 0 && e.Tick >= e.MaxTicks {
		return false
	}
	if e.Done != nil && e.Done() {
		return false
	}
	return true
}

// SimTime returns a human-readable simulation time from a tick number.
func SimTime(tick uint64) string {
	seconds := tick % 60
	minutes := (tick / 60) % 60
	hours := tick / 3600
	return fmt.Sprintf("T+%d:%02d:%02d", hours, minutes, seconds)
}
