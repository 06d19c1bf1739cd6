package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"marginDiary/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const dateLayout = "2006-01-02"

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// Repository methods run inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repository implements ports.Store on SQLite.
type Repository struct {
	db     dbtx
	root   *sql.DB // nil inside a transaction
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (or creates) the diary database and ensures the schema.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/diary.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL for concurrent readers, foreign keys on so closures and financing
	// events cascade with their trade.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, root: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS portfolios (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT 'RUB',
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id),
		user_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		entry_price TEXT NOT NULL,
		exit_price TEXT DEFAULT NULL,
		quantity INTEGER NOT NULL,
		entry_date TEXT NOT NULL,
		exit_date TEXT DEFAULT NULL,
		margin_rate TEXT NOT NULL,
		leverage TEXT DEFAULT NULL,
		borrowed_amount TEXT DEFAULT NULL,
		collateral_amount TEXT DEFAULT NULL,
		maintenance_margin TEXT DEFAULT NULL,
		rate_type TEXT NOT NULL DEFAULT 'FIXED',
		financing_currency TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS trade_closures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id INTEGER NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
		closed_quantity INTEGER NOT NULL,
		exit_price TEXT NOT NULL,
		exit_date TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS financing_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id INTEGER NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
		event_date TEXT NOT NULL,
		event_type TEXT NOT NULL DEFAULT 'RATE_CHANGE',
		rate TEXT DEFAULT NULL,
		amount_change TEXT DEFAULT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS spot_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id),
		user_id INTEGER NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		ticker TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		price TEXT DEFAULT NULL,
		quantity TEXT DEFAULT NULL,
		amount TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_trades_user_symbol_exit ON trades (user_id, symbol, exit_date);
	CREATE INDEX IF NOT EXISTS idx_trades_portfolio ON trades (portfolio_id);
	CREATE INDEX IF NOT EXISTS idx_closures_trade ON trade_closures (trade_id);
	CREATE INDEX IF NOT EXISTS idx_events_trade ON financing_events (trade_id);
	CREATE INDEX IF NOT EXISTS idx_spot_portfolio ON spot_transactions (portfolio_id);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection. No-op on transactional views.
func (r *Repository) Close() error {
	if r.root != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.root.Close()
	}
	return nil
}

// InTransaction runs fn against a repository view bound to one transaction.
// SQLite serializes the writes, which is what keeps concurrent FIFO closes
// from double-allocating open quantity.
func (r *Repository) InTransaction(ctx context.Context, fn func(ports.Store) error) error {
	if r.root == nil {
		// Already inside a transaction; just reuse it.
		return fn(r)
	}
	tx, err := r.root.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ports.ErrDBConnection, err)
	}
	view := &Repository{db: tx, logger: r.logger}
	if err := fn(view); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error(ctx, rbErr, "Transaction rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ports.ErrUpdateFailed, err)
	}
	return nil
}
