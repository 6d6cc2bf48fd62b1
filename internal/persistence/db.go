// Package persistence provides the SQLite run store: one row per run, CBOR
// agent snapshots, the event log and free-form metadata.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/firecontrol/internal/agents"
	"github.com/talgya/firecontrol/internal/codec"
	"github.com/talgya/firecontrol/internal/engine"
)

// ErrNoRun is returned when a run ID has no row.
var ErrNoRun = errors.New("run not found")

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn  *sqlx.DB
	codec codec.Codec
}

// Run is one row of the runs table.
type Run struct {
	ID                int64  `db:"id" json:"id"`
	Seed              int64  `db:"seed" json:"seed"`
	StartedAt         int64  `db:"started_at" json:"started_at"`
	FinishedAt        *int64 `db:"finished_at" json:"finished_at,omitempty"`
	Ticks             uint64 `db:"ticks" json:"ticks"`
	UAVs              int    `db:"uavs" json:"uavs"`
	CellsOnFire       int    `db:"cells_on_fire" json:"cells_on_fire"`
	CellsBurned       int    `db:"cells_burned" json:"cells_burned"`
	CellsExtinguished int    `db:"cells_extinguished" json:"cells_extinguished"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	c, err := codec.CBOR()
	if err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, codec: c}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		ticks INTEGER NOT NULL DEFAULT 0,
		uavs INTEGER NOT NULL,
		cells_on_fire INTEGER NOT NULL DEFAULT 0,
		cells_burned INTEGER NOT NULL DEFAULT 0,
		cells_extinguished INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS agent_snapshots (
		run_id INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		state BLOB NOT NULL,
		PRIMARY KEY (run_id, agent_id, tick)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_snapshots_run_tick ON agent_snapshots(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun inserts a run row and returns its ID.
func (db *DB) BeginRun(seed int64, uavs int, started time.Time) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO runs (seed, started_at, uavs) VALUES (?, ?, ?)",
		seed, started.Unix(), uavs,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun records the final tick and fire statistics of a run.
func (db *DB) FinishRun(runID int64, ticks uint64, stats engine.SimStats, finished time.Time) error {
	res, err := db.conn.Exec(`UPDATE runs SET
		finished_at = ?, ticks = ?, cells_on_fire = ?, cells_burned = ?, cells_extinguished = ?
		WHERE id = ?`,
		finished.Unix(), ticks, stats.CellsOnFire, stats.CellsBurned, stats.CellsExtinguished, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %d: %w", runID, ErrNoRun)
	}
	return nil
}

// GetRun loads one run row.
func (db *DB) GetRun(runID int64) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %d: %w", runID, ErrNoRun)
	}
	return r, err
}

// SaveAgentStates writes a CBOR snapshot of every agent at the given tick.
func (db *DB) SaveAgentStates(runID int64, tick uint64, states []agents.State) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO agent_snapshots
		(run_id, agent_id, tick, state) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range states {
		blob, err := db.codec.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode agent %d: %w", s.ID, err)
		}
		if _, err := stmt.Exec(runID, int(s.ID), tick, blob); err != nil {
			return fmt.Errorf("insert agent %d: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

// LoadAgentStates returns the latest snapshot of every agent in a run,
// ordered by agent ID.
func (db *DB) LoadAgentStates(runID int64) ([]agents.State, error) {
	var rows []struct {
		State []byte `db:"state"`
	}
	err := db.conn.Select(&rows, `SELECT s.state FROM agent_snapshots s
		WHERE s.run_id = ? AND s.tick = (
			SELECT MAX(tick) FROM agent_snapshots WHERE run_id = s.run_id AND agent_id = s.agent_id)
		ORDER BY s.agent_id`, runID)
	if err != nil {
		return nil, err
	}

	out := make([]agents.State, 0, len(rows))
	for _, r := range rows {
		var s agents.State
		if err := db.codec.Unmarshal(r.State, &s); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// SaveEvents appends events to the run's log.
func (db *DB) SaveEvents(runID int64, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, description, category) VALUES (?, ?, ?, ?)",
			runID, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID int64, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// SaveCheckpoint persists the agents and pending events of a running
// simulation.
func (db *DB) SaveCheckpoint(runID int64, sim *engine.Simulation) error {
	tick := sim.CurrentTick()
	states := sim.AgentStates()

	if err := db.SaveAgentStates(runID, tick, states); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := db.SaveEvents(runID, sim.TakeEvents()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("checkpoint saved", "run", runID, "tick", tick, "agents", len(states))
	return nil
}
