// Package account activates per-account stores: it resolves the storage
// file, holds the advisory lock that keeps a second process away from it,
// and opens the store with its schema applied.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofrs/flock"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/localstore"
	"github.com/starford/notestore/internal/storage"
)

// LockSuffix is appended to the storage file path to name its lock file.
const LockSuffix = ".lock"

// Session is an activated account: an open store plus the lock on its file.
type Session struct {
	Account storage.Account
	DB      *localstore.DB

	lock *flock.Flock
}

// Close closes the store and releases the lock.
func (s *Session) Close() error {
	err := s.DB.Close()
	if s.lock != nil {
		err = errors.Join(err, s.lock.Unlock())
	}
	return err
}

// Manager owns the active Session and switches between accounts.
type Manager struct {
	provider     storage.Provider
	logger       *slog.Logger
	storeOpts    []localstore.Option
	overrideLock bool

	mu      sync.Mutex
	current *Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithStoreOptions sets the options every store is opened with.
func WithStoreOptions(opts ...localstore.Option) Option {
	return func(m *Manager) {
		m.storeOpts = append(m.storeOpts, opts...)
	}
}

// WithOverrideLock makes a lock held by another process a logged warning
// instead of an error. It exists to recover from a crashed process that left
// a stale lock behind.
func WithOverrideLock(override bool) Option {
	return func(m *Manager) {
		m.overrideLock = override
	}
}

// NewManager creates a manager over the given account directory provider.
func NewManager(p storage.Provider, opts ...Option) *Manager {
	m := &Manager{provider: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Activate opens the store of a and makes it current. Any previously active
// session is closed first.
func (m *Manager) Activate(ctx context.Context, a storage.Account) (*Session, error) {
	return m.SwitchAccount(ctx, a, false)
}

// SwitchAccount deactivates the current session and activates a. With
// startFromScratch the target storage file is wiped before it is opened.
// On failure no session is active.
func (m *Manager) SwitchAccount(ctx context.Context, a storage.Account, startFromScratch bool) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		prev := m.current
		m.current = nil
		if err := prev.Close(); err != nil {
			m.logger.Error("account: close previous session",
				slog.String("account", prev.Account.String()),
				slog.String("error", err.Error()))
		}
	}

	s, err := m.open(ctx, a, startFromScratch)
	if err != nil {
		return nil, err
	}
	m.current = s
	m.logger.Info("account: activated",
		slog.String("account", a.String()),
		slog.String("path", s.DB.Path()))
	return s, nil
}

func (m *Manager) open(ctx context.Context, a storage.Account, startFromScratch bool) (*Session, error) {
	path, err := m.provider.DatabasePath(a)
	if err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}

	lock, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	release := func() {
		if lock != nil {
			_ = lock.Unlock()
		}
	}

	if startFromScratch {
		if err := m.provider.RemoveDatabaseFiles(a); err != nil {
			release()
			return nil, fmt.Errorf("account: start from scratch: %w", err)
		}
		if path, err = m.provider.DatabasePath(a); err != nil {
			release()
			return nil, fmt.Errorf("account: %w", err)
		}
		m.logger.Warn("account: storage wiped", slog.String("account", a.String()))
	}

	db, err := localstore.Open(ctx, path, m.storeOpts...)
	if err != nil {
		release()
		return nil, fmt.Errorf("account: open store: %w", err)
	}

	if err := m.provider.WriteMetadata(a); err != nil {
		_ = db.Close()
		release()
		return nil, fmt.Errorf("account: %w", err)
	}
	return &Session{Account: a, DB: db, lock: lock}, nil
}

// acquire takes the lock beside the storage file at path. With the override
// set a lock held elsewhere is logged and nil is returned.
func (m *Manager) acquire(path string) (*flock.Flock, error) {
	lock := flock.New(path + LockSuffix)
	ok, err := lock.TryLock()
	switch {
	case err != nil:
		if !m.overrideLock {
			return nil, fmt.Errorf("account: lock %s: %w", path, err)
		}
		m.logger.Warn("account: lock failed, continuing", slog.String("path", path), slog.String("error", err.Error()))
		return nil, nil
	case !ok:
		if !m.overrideLock {
			return nil, fmt.Errorf("account: %s: %w", path, apperr.ErrStorageLocked)
		}
		m.logger.Warn("account: storage is locked by another process, continuing", slog.String("path", path))
		return nil, nil
	}
	return lock, nil
}

// Close closes the active session, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}
