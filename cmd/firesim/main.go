// Command firesim runs a UAV fire-fighting simulation: a fleet elects
// managers, auctions fire regions among neighbours and extinguishes them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/firecontrol/internal/agents"
	"github.com/talgya/firecontrol/internal/api"
	"github.com/talgya/firecontrol/internal/config"
	"github.com/talgya/firecontrol/internal/engine"
	"github.com/talgya/firecontrol/internal/entropy"
	"github.com/talgya/firecontrol/internal/logging"
	"github.com/talgya/firecontrol/internal/persistence"
	"github.com/talgya/firecontrol/internal/world"
)

func main() {
	configPath := flag.String("config", "", "path to firesim.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	_, logCloser := logging.Setup(cfg.Log)
	defer logCloser.Close()

	slog.Info("firesim: decentralized UAV fire control")

	seed := cfg.Sim.Seed
	if seed == 0 {
		src := entropy.NewClient(os.Getenv("RANDOM_ORG_API_KEY"))
		seed = entropy.Seed(src)
		slog.Info("seed drawn", "random_org", src.Enabled())
	}

	// ── Forest ────────────────────────────────────────────────────────
	gen := world.GenConfig{
		Width:     cfg.Sim.Width,
		Height:    cfg.Sim.Height,
		Seed:      seed,
		Ignitions: cfg.Sim.Ignitions,
	}
	grid := world.Generate(gen)
	slog.Info("forest generated", "seed", seed, "size", fmt.Sprintf("%dx%d", gen.Width, gen.Height), "burning", grid.OnFire())

	// ── Fleet ─────────────────────────────────────────────────────────
	spawner := agents.NewSpawner(seed)
	launch := agents.Position{
		X: float64(cfg.Sim.Width) / 2,
		Y: float64(cfg.Sim.Height) / 2,
		Z: cfg.UAV.Altitude,
	}
	fleet := spawner.SpawnFleet(cfg.Sim.UAVs, launch, cfg.UAV.LaunchSpread,
		float64(cfg.Sim.Width-1), float64(cfg.Sim.Height-1))

	opts := engine.DefaultOptions()
	opts.Seed = seed
	opts.SpreadEvery = cfg.Sim.SpreadEvery
	opts.Spread.BurnTicks = cfg.Sim.BurnTicks
	opts.ReelectEvery = cfg.Sim.ReelectEvery
	opts.Params = agents.Params{
		CommunicationRange: cfg.UAV.CommunicationRange,
		LinearVelocity:     cfg.UAV.LinearVelocity,
		StepToExtinguish:   cfg.UAV.StepToExtinguish,
		AuctionTimeout:     cfg.UAV.AuctionTimeout,
	}

	sim := engine.NewSimulation(grid, fleet, opts)

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	var runID int64
	started := time.Now()
	if cfg.DB.Path != "" {
		if dir := filepath.Dir(cfg.DB.Path); dir != "" {
			os.MkdirAll(dir, 0o755)
		}
		db, err = persistence.Open(cfg.DB.Path)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		runID, err = db.BeginRun(seed, len(fleet), started)
		if err != nil {
			slog.Error("failed to record run", "error", err)
			os.Exit(1)
		}
		slog.Info("database opened", "path", cfg.DB.Path, "run", runID)
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.MaxTicks = cfg.Sim.MaxTicks
	if cfg.Sim.Speed > 0 {
		eng.SetSpeed(cfg.Sim.Speed)
	} else {
		// Headless: no pacing between ticks.
		eng.Interval = 0
	}
	eng.OnTick = sim.Tick
	eng.OnWind = sim.AdvanceWind
	eng.OnSnapshot = func(tick uint64) {
		if db == nil {
			return
		}
		if err := db.SaveCheckpoint(runID, sim); err != nil {
			slog.Error("checkpoint failed", "tick", tick, "error", err)
		}
	}
	eng.Done = sim.Done

	// ── HTTP API ──────────────────────────────────────────────────────
	var httpSrv interface{ Shutdown(context.Context) error }
	if cfg.API.Port > 0 {
		if cfg.API.AdminKey == "" {
			slog.Warn("api.admin_key not set; admin POST endpoints will be disabled")
		}
		apiServer := &api.Server{
			Sim:      sim,
			Eng:      eng,
			DB:       db,
			RunID:    runID,
			Port:     cfg.API.Port,
			AdminKey: cfg.API.AdminKey,
		}
		httpSrv = apiServer.Start()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	}

	// ── Run ───────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\n%d UAVs over a %dx%d forest with %d cells burning.\n",
		len(fleet), cfg.Sim.Width, cfg.Sim.Height, grid.OnFire())
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		httpSrv.Shutdown(ctx)
		cancel()
	}

	// ── Results ───────────────────────────────────────────────────────
	stats := sim.Snapshot()
	if db != nil {
		if err := db.SaveCheckpoint(runID, sim); err != nil {
			slog.Error("final save failed", "error", err)
		}
		if err := db.FinishRun(runID, eng.Tick, stats, time.Now()); err != nil {
			slog.Error("failed to close run", "error", err)
		}
	}

	if cfg.Output.GeoJSON != "" {
		if err := writeGeoJSON(cfg.Output.GeoJSON, sim); err != nil {
			slog.Error("geojson export failed", "error", err)
		} else {
			slog.Info("geojson written", "path", cfg.Output.GeoJSON)
		}
	}

	printSummary(eng.Tick, started, stats)
}

func writeGeoJSON(path string, sim *engine.Simulation) error {
	data, err := sim.GeoJSON().MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printSummary(ticks uint64, started time.Time, s engine.SimStats) {
	outcome := "fires remain"
	if s.CellsOnFire == 0 {
		outcome = "all fires out"
	}
	fmt.Printf("\nRun finished after %s ticks (%s, started %s): %s.\n",
		humanize.Comma(int64(ticks)), engine.SimTime(ticks), humanize.Time(started), outcome)
	fmt.Printf("  cells extinguished: %s, burned: %s, still burning: %s\n",
		humanize.Comma(int64(s.CellsExtinguished)), humanize.Comma(int64(s.CellsBurned)), humanize.Comma(int64(s.CellsOnFire)))
	fmt.Printf("  elections: %d, awards: %d, refusals: %d, stalls: %d, abandoned tasks: %d\n",
		s.Elections, s.Awards, s.Refusals, s.Stalls, s.Abandoned)
	fmt.Printf("  packets delivered: %s, dropped: %s\n",
		humanize.Comma(int64(s.PacketsDelivered)), humanize.Comma(int64(s.PacketsDropped)))
}
