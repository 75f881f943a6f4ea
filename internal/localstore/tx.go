package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/notestore/internal/apperr"
)

// TxMode selects how a Transaction acquires its locks.
type TxMode int

// Transaction modes.
const (
	// TxDefault is a plain deferred transaction.
	TxDefault TxMode = iota
	// TxSelection groups a burst of reads. It cannot be committed; call End.
	TxSelection
	// TxImmediate takes the write lock when the transaction begins.
	TxImmediate
	// TxExclusive takes an exclusive lock when the transaction begins.
	TxExclusive
)

func (m TxMode) String() string {
	switch m {
	case TxDefault:
		return "default"
	case TxSelection:
		return "selection"
	case TxImmediate:
		return "immediate"
	case TxExclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("TxMode(%d)", int(m))
	}
}

func (m TxMode) beginStatement() string {
	switch m {
	case TxImmediate:
		return "BEGIN IMMEDIATE"
	case TxExclusive:
		return "BEGIN EXCLUSIVE"
	default:
		return "BEGIN"
	}
}

var (
	// ErrSelectionCommit is returned by Commit on a selection transaction.
	ErrSelectionCommit = errors.New("selection transaction cannot be committed, end it instead")
	// ErrNotSelection is returned by End on a non-selection transaction.
	ErrNotSelection = errors.New("only selection transactions can be ended")
	// ErrTxFinished is returned when a finished transaction is used again.
	ErrTxFinished = errors.New("transaction already finished")
)

// querier is the statement surface shared by Transaction and the helpers that
// run inside one.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transaction is a scoped unit of work pinned to one connection.
//
// A Transaction that is closed without Commit (or End, for TxSelection) is
// rolled back. Rollback failures at that point are logged, not returned.
type Transaction struct {
	conn   *sql.Conn
	mode   TxMode
	logger *slog.Logger
	done   bool
}

// Begin starts a transaction in the given mode. A rejected BEGIN is a setup
// failure of the unit of work and is returned as an engine error.
func (db *DB) Begin(ctx context.Context, mode TxMode) (*Transaction, error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, engineError("begin "+mode.String()+" transaction", err)
	}
	if _, err := conn.ExecContext(ctx, mode.beginStatement()); err != nil {
		conn.Close()
		return nil, engineError("begin "+mode.String()+" transaction", err)
	}
	return &Transaction{conn: conn, mode: mode, logger: db.logger}, nil
}

// Mode returns the mode the transaction was started in.
func (t *Transaction) Mode() TxMode {
	return t.mode
}

// Commit commits a non-selection transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.mode == TxSelection {
		return fmt.Errorf("localstore: commit: %w", ErrSelectionCommit)
	}
	return t.finish(ctx, "COMMIT")
}

// End finishes a selection transaction.
func (t *Transaction) End(ctx context.Context) error {
	if t.mode != TxSelection {
		return fmt.Errorf("localstore: end: %w", ErrNotSelection)
	}
	return t.finish(ctx, "END")
}

func (t *Transaction) finish(ctx context.Context, stmt string) error {
	if t.done {
		return fmt.Errorf("localstore: %s: %w", stmt, ErrTxFinished)
	}
	if _, err := t.conn.ExecContext(ctx, stmt); err != nil {
		return engineError(stmt, err)
	}
	t.done = true
	return nil
}

// Close rolls back an unfinished transaction and releases the connection.
// It is safe to call after Commit or End and is meant to be deferred.
func (t *Transaction) Close() {
	if t.conn == nil {
		return
	}
	if !t.done {
		if _, err := t.conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
			t.logger.Error("localstore: rollback failed",
				slog.String("mode", t.mode.String()),
				slog.String("error", err.Error()))
		}
		t.done = true
	}
	if err := t.conn.Close(); err != nil {
		t.logger.Error("localstore: release connection failed", slog.String("error", err.Error()))
	}
	t.conn = nil
}

// ExecContext executes a statement inside the transaction.
func (t *Transaction) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.conn.ExecContext(ctx, query, args...)
	t.trace(query, args, start, err)
	return res, err
}

// QueryContext runs a query inside the transaction.
func (t *Transaction) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.conn.QueryContext(ctx, query, args...)
	t.trace(query, args, start, err)
	return rows, err
}

// QueryRowContext runs a single-row query inside the transaction.
func (t *Transaction) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.conn.QueryRowContext(ctx, query, args...)
	t.trace(query, args, start, row.Err())
	return row
}

func (t *Transaction) trace(query string, args []any, start time.Time, err error) {
	if !t.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{
		slog.String("sql", query),
		slog.Int("args", len(args)),
		slog.Duration("time", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	t.logger.Debug("localstore: statement", attrs...)
}

// inTransaction runs fn in a transaction of the given mode, committing (or
// ending) it when fn succeeds and rolling it back otherwise.
func (db *DB) inTransaction(ctx context.Context, mode TxMode, fn func(tx *Transaction) error) error {
	tx, err := db.Begin(ctx, mode)
	if err != nil {
		return err
	}
	defer tx.Close()

	if err := fn(tx); err != nil {
		return err
	}
	if mode == TxSelection {
		return tx.End(ctx)
	}
	return tx.Commit(ctx)
}

// read runs fn in a selection transaction.
func (db *DB) read(ctx context.Context, fn func(tx *Transaction) error) error {
	return db.inTransaction(ctx, TxSelection, fn)
}

// write runs fn in an immediate transaction.
func (db *DB) write(ctx context.Context, fn func(tx *Transaction) error) error {
	return db.inTransaction(ctx, TxImmediate, fn)
}

var _ querier = (*Transaction)(nil)

// errNoRows reports whether err is sql.ErrNoRows.
func errNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isNotFound reports whether err is classified as not found.
func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
