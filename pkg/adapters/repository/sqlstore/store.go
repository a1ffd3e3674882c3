// Package sqlstore persists links, domains and tags in SQLite (local or
// libsql) or PostgreSQL through database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"                  // Postgres driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repository implements ports.Repository over either the pool or a transaction.
type repository struct {
	q       querier
	inTx    bool
	dialect dialect
	sb      squirrel.StatementBuilderType
	logger  *slog.Logger
}

// Store implements ports.Store.
type Store struct {
	*repository
	db *sql.DB
}

// New opens the database named by dbURL and migrates the schema.
func New(dbURL string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	d := dialectFor(dbURL)
	dsn := dbURL
	if d.name == sqliteDialect.name {
		dsn = sqliteDSN(dbURL)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	switch d.name {
	case sqliteDialect.name:
		// SQLite has a single writer; one connection serializes transactions
		// instead of surfacing SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	case postgresDialect.name:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(1 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	logger.Info("connected to database", "dialect", d.name)

	return &Store{
		repository: &repository{
			q:       db,
			dialect: d,
			sb:      squirrel.StatementBuilder.PlaceholderFormat(d.placeholder),
			logger:  logger,
		},
		db: db,
	}, nil
}

// WithTx executes the given function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ports.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	txRepo := &repository{
		q:       tx,
		inTx:    true,
		dialect: s.dialect,
		sb:      s.sb,
		logger:  s.logger,
	}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("closing database connection")
	return s.db.Close()
}

// withSavepoint runs fn inside a named savepoint when in a transaction, so a
// failed statement can be undone without aborting the transaction.
func (r *repository) withSavepoint(ctx context.Context, name string, fn func() error) error {
	if !r.inTx {
		return fn()
	}
	if _, err := r.q.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("creating savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if _, rbErr := r.q.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("rolling back to savepoint after %v: %w", err, rbErr)
		}
		_, _ = r.q.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
		return err
	}
	if _, err := r.q.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	return nil
}

// Ensure interface compliance
var _ ports.Store = (*Store)(nil)
