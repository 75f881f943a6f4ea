package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the storage root
}

// NewFS creates a new FS provider rooted at the given directory, creating
// the directory when it does not exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute storage root.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// accountDir returns the absolute directory of a, creating it.
func (f *FS) accountDir(a Account) (string, error) {
	if err := a.Validate(); err != nil {
		return "", fmt.Errorf("storage: account %s: %w", a.Name, err)
	}
	dir, err := f.safePath(a.Dir())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}
	return dir, nil
}

// DatabasePath returns the storage file of a, creating it empty when absent.
func (f *FS) DatabasePath(a Account) (string, error) {
	dir, err := f.accountDir(a)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, DatabaseFile)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return "", fmt.Errorf("storage: create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("storage: close database file: %w", err)
	}
	return path, nil
}

// RemoveDatabaseFiles deletes the storage file of a with its -wal and -shm
// side files. Missing files are not an error.
func (f *FS) RemoveDatabaseFiles(a Account) error {
	dir, err := f.accountDir(a)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, DatabaseFile)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// WriteMetadata atomically writes a to the account's metadata file.
func (f *FS) WriteMetadata(a Account) error {
	dir, err := f.accountDir(a)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("storage: encode metadata: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(dir, MetadataFile), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("storage: write metadata: %w", err)
	}
	return nil
}

// ReadMetadata reads the metadata file stored in the account directory rel.
func (f *FS) ReadMetadata(rel string) (Account, error) {
	dir, err := f.safePath(rel)
	if err != nil {
		return Account{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return Account{}, fmt.Errorf("storage: read metadata: %w", err)
	}
	var a Account
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Account{}, fmt.Errorf("storage: decode metadata: %w", err)
	}
	return a, nil
}

// ListAccounts enumerates account directories. An account is described by
// its metadata file when present and by its directory name otherwise;
// directories matching neither are skipped.
func (f *FS) ListAccounts() ([]Account, error) {
	var out []Account
	for _, kind := range []struct {
		dir string
		typ Type
	}{
		{LocalAccountsDir, TypeLocal},
		{EvernoteAccountsDir, TypeEvernote},
	} {
		entries, err := os.ReadDir(filepath.Join(f.root, kind.dir))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list accounts: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			a, err := f.ReadMetadata(filepath.Join(kind.dir, e.Name()))
			if err != nil || a.Type != kind.typ || a.Dir() != filepath.Join(kind.dir, e.Name()) {
				var ok bool
				if a, ok = accountFromDir(kind.typ, e.Name()); !ok {
					continue
				}
			}
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type > out[j].Type
		}
		return out[i].Dir() < out[j].Dir()
	})
	return out, nil
}

func accountFromDir(t Type, name string) (Account, bool) {
	if t == TypeLocal {
		return Account{Type: TypeLocal, Name: name}, true
	}
	return parseRemoteDir(name)
}
