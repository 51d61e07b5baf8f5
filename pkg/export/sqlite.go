package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jakabjo/cmdb-inventory/pkg/collector"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	host_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hosts (
	run_id TEXT NOT NULL,
	host TEXT NOT NULL,
	provider TEXT,
	collector TEXT,
	os_name TEXT,
	error TEXT,
	data JSON NOT NULL,
	PRIMARY KEY (run_id, host),
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_hosts_host ON hosts(host);
`

// SQLiteSink appends a run and its rows to a SQLite database. Earlier runs
// are kept so the file holds history.
type SQLiteSink struct {
	Path  string
	RunID string
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Write(ctx context.Context, rows []inventory.Row) error {
	db, err := sql.Open("sqlite", s.Path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	runID := s.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, host_count) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), len(rows)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO hosts (run_id, host, provider, collector, os_name, error, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		host := r.String(inventory.FieldHost)
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", host, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, host,
			r.String(inventory.FieldProvider), r.String(collector.KeyCollector),
			r.String(collector.KeyOSName), r.String(inventory.FieldError),
			string(data)); err != nil {
			return fmt.Errorf("failed to insert %s: %w", host, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
