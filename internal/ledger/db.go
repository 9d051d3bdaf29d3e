// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/skylapse/internal/config"
	"github.com/tomtom215/skylapse/internal/logging"
)

// Ledger wraps the embedded DuckDB connection holding every session,
// capture, and timelapse row.
type Ledger struct {
	conn *sql.DB
	cfg  config.DatabaseConfig

	stmtCache   map[string]*sql.Stmt
	stmtCacheMu sync.RWMutex
}

// New opens (creating if necessary) the ledger database at cfg.Path,
// configures its connection pool, and applies the schema.
func New(cfg config.DatabaseConfig) (*Ledger, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("ledger: create directory %s: %w", dbDir, err)
		}
	}

	preserveOrder := "true"
	if !cfg.PreserveInsertionOrder {
		preserveOrder = "false"
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory, preserveOrder)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", cfg.Path, err)
	}

	l := &Ledger{
		conn:      conn,
		cfg:       cfg,
		stmtCache: make(map[string]*sql.Stmt),
	}

	conn.SetMaxOpenConns(numThreads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := l.applySchema(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}

	// Flush the WAL immediately after schema setup so a crash before the
	// first real write never has to replay CREATE TABLE statements.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := l.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("checkpoint after schema setup failed")
	}
	cancel()

	return l, nil
}

// Conn exposes the underlying *sql.DB for packages that need read-only
// ad-hoc queries.
func (l *Ledger) Conn() *sql.DB {
	return l.conn
}

// Ping checks that the connection is alive.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.conn.PingContext(ctx)
}

// Checkpoint forces a WAL checkpoint, flushing pending writes to the main
// database file.
func (l *Ledger) Checkpoint(ctx context.Context) error {
	_, err := l.conn.ExecContext(ctx, "CHECKPOINT")
	if err != nil {
		return fmt.Errorf("ledger: checkpoint: %w", err)
	}
	return nil
}

// Close releases every cached prepared statement, checkpoints the WAL, and
// closes the connection.
func (l *Ledger) Close() error {
	l.stmtCacheMu.Lock()
	for _, stmt := range l.stmtCache {
		closeWithLog(stmt, nil, "prepared statement")
	}
	l.stmtCache = make(map[string]*sql.Stmt)
	l.stmtCacheMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := l.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("checkpoint before close failed")
	}
	cancel()

	return l.conn.Close()
}

func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}
