// Package storage lays out per-account directories on the local file system.
//
// Every account owns one directory under the storage root holding its
// database file and a small metadata file:
//
//	<root>/LocalAccounts/<name>/
//	<root>/EvernoteAccounts/<name>_<host>_<userID>/
package storage

// Provider resolves and manages account directories.
type Provider interface {
	// DatabasePath returns the storage file of a, creating its directory and
	// an empty file when absent.
	DatabasePath(a Account) (string, error)
	// RemoveDatabaseFiles deletes the storage file of a together with its
	// write-ahead log and shared-memory side files.
	RemoveDatabaseFiles(a Account) error
	// WriteMetadata atomically records a in its directory.
	WriteMetadata(a Account) error
	// ListAccounts enumerates the accounts present under the root.
	ListAccounts() ([]Account, error)
}
