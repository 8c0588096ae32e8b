package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"futures-core/internal/events"
)

// Journal is a write-only sqlite audit trail of signals, orders, and fills.
// It subscribes to the event bus and appends rows on its own goroutine; it is
// never read back at startup, so state does not persist across restarts.
type Journal struct {
	db *sql.DB
}

// Open creates (if needed) and opens the journal database at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers a single writer.
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) createTables() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy TEXT NOT NULL,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			direction INTEGER NOT NULL,
			ts INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy TEXT NOT NULL,
			symbol TEXT NOT NULL,
			order_id INTEGER NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			state TEXT NOT NULL,
			ts INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS fills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy TEXT NOT NULL,
			symbol TEXT NOT NULL,
			order_id INTEGER NOT NULL,
			avg_price REAL NOT NULL,
			quantity REAL NOT NULL,
			ts INTEGER NOT NULL
		);
	`)
	return err
}

// Run consumes bus events until ctx ends.
func (j *Journal) Run(ctx context.Context, bus *events.Bus) {
	signals, unsubSignals := bus.Subscribe(events.EventStrategySignal, 64)
	placed, unsubPlaced := bus.Subscribe(events.EventOrderPlaced, 64)
	filled, unsubFilled := bus.Subscribe(events.EventOrderFilled, 64)

	go func() {
		defer unsubSignals()
		defer unsubPlaced()
		defer unsubFilled()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-signals:
				if p, ok := msg.(events.SignalPayload); ok {
					j.insertSignal(p)
				}
			case msg := <-placed:
				if p, ok := msg.(events.OrderPayload); ok {
					j.insertOrder(p)
				}
			case msg := <-filled:
				if p, ok := msg.(events.OrderPayload); ok {
					j.insertFill(p)
				}
			}
		}
	}()
}

func (j *Journal) insertSignal(p events.SignalPayload) {
	_, err := j.db.Exec(
		`INSERT INTO signals (strategy, symbol, timeframe, direction, ts) VALUES (?, ?, ?, ?, ?)`,
		p.Strategy, p.Symbol, p.Timeframe, p.Direction, p.Time,
	)
	if err != nil {
		log.Printf("journal: insert signal: %v", err)
	}
}

func (j *Journal) insertOrder(p events.OrderPayload) {
	_, err := j.db.Exec(
		`INSERT INTO orders (strategy, symbol, order_id, side, quantity, state, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Strategy, p.Symbol, p.OrderID, p.Side, p.Quantity, p.State, p.Time,
	)
	if err != nil {
		log.Printf("journal: insert order: %v", err)
	}
}

func (j *Journal) insertFill(p events.OrderPayload) {
	_, err := j.db.Exec(
		`INSERT INTO fills (strategy, symbol, order_id, avg_price, quantity, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Strategy, p.Symbol, p.OrderID, p.AvgPrice, p.Quantity, p.Time,
	)
	if err != nil {
		log.Printf("journal: insert fill: %v", err)
	}
}

// Close releases the underlying DB handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
