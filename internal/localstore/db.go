// Package localstore is the SQLite-backed local data store of notebooks, notes,
// tags, resources, linked notebooks, saved searches and the account user.
//
// Every entity has a local id owned by the store and an optional guid assigned
// by the remote service. Multi-table operations run inside a Transaction so a
// failure never leaves half-applied cascading state behind.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/notestore/internal/apperr"
)

// Defaults applied by Open.
const (
	DefaultPageSize    = 32768
	DefaultBusyTimeout = 5 * time.Second
)

// DB wraps a sql.DB with store operations.
type DB struct {
	conn        *sql.DB
	path        string
	logger      *slog.Logger
	pageSize    int
	busyTimeout time.Duration
	metrics     *metrics

	mu        sync.RWMutex
	observers []Observer
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for statement tracing and for rollback
// failures that cannot be returned to a caller.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) {
		db.logger = l
	}
}

// WithPageSize sets the page size used when the storage file is created.
func WithPageSize(n int) Option {
	return func(db *DB) {
		db.pageSize = n
	}
}

// WithBusyTimeout sets how long a statement waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(db *DB) {
		db.busyTimeout = d
	}
}

// WithObserver registers an observer of successful mutations.
func WithObserver(o Observer) Option {
	return func(db *DB) {
		db.observers = append(db.observers, o)
	}
}

// Open opens (or creates) the storage file at path with foreign keys enforced
// and write-ahead journaling, and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	db := &DB{
		path:        path,
		logger:      slog.Default(),
		pageSize:    DefaultPageSize,
		busyTimeout: DefaultBusyTimeout,
		metrics:     newMetrics(),
	}
	for _, opt := range opts {
		opt(db)
	}

	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", strconv.FormatInt(db.busyTimeout.Milliseconds(), 10))

	conn, err := sql.Open("sqlite3", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("localstore: open db: %w", err)
	}
	db.conn = conn

	if err := db.configure(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.createTables(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	db.logger.Debug("localstore: opened", slog.String("path", path))
	return db, nil
}

// configure sets the page size and journal mode on a single connection, so
// the page size takes effect before the file header is first written.
func (db *DB) configure(ctx context.Context) error {
	c, err := db.conn.Conn(ctx)
	if err != nil {
		return engineError("configure", err)
	}
	defer c.Close()

	stmts := []string{
		fmt.Sprintf("PRAGMA page_size = %d", db.pageSize),
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, s := range stmts {
		if _, err := c.ExecContext(ctx, s); err != nil {
			return engineError("configure", err)
		}
	}

	var fk int
	if err := c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		return engineError("configure", err)
	}
	if fk != 1 {
		return fmt.Errorf("localstore: configure: %w: foreign keys are not enforced", apperr.ErrEngine)
	}
	return nil
}

// Path returns the storage file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// engineError classifies an engine failure, keeping the native error in the chain.
// Unique-constraint violations are reported as ErrAlreadyExists.
func engineError(op string, err error) error {
	if isClassified(err) {
		return err
	}
	var se sqlite3.Error
	if errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("localstore: %s: %w: %w", op, apperr.ErrAlreadyExists, err)
	}
	return fmt.Errorf("localstore: %s: %w: %w", op, apperr.ErrEngine, err)
}

func isClassified(err error) bool {
	for _, target := range []error{
		apperr.ErrValidation, apperr.ErrNotFound, apperr.ErrAlreadyExists, apperr.ErrPermissionDenied,
		apperr.ErrEngine, apperr.ErrInvalidQuery, apperr.ErrAmbiguousFilter,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationError(op string, err error) error {
	return fmt.Errorf("localstore: %s: %w: %w", op, apperr.ErrValidation, err)
}

func notFound(op, format string, args ...any) error {
	return fmt.Errorf("localstore: %s: %w: %s", op, apperr.ErrNotFound, fmt.Sprintf(format, args...))
}

func alreadyExists(op, format string, args ...any) error {
	return fmt.Errorf("localstore: %s: %w: %s", op, apperr.ErrAlreadyExists, fmt.Sprintf(format, args...))
}
