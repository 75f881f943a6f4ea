package storage

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Type distinguishes local-only accounts from remote-backed ones.
type Type string

// Account types.
const (
	TypeLocal    Type = "local"
	TypeEvernote Type = "evernote"
)

// Layout directory names.
const (
	LocalAccountsDir    = "LocalAccounts"
	EvernoteAccountsDir = "EvernoteAccounts"
	DatabaseFile        = "storage.sqlite"
	MetadataFile        = "account.yaml"
)

// Account identifies one account's storage.
type Account struct {
	Type   Type   `yaml:"type" json:"type"`
	Name   string `yaml:"name" json:"name"`
	Host   string `yaml:"host,omitempty" json:"host,omitempty"`
	UserID int32  `yaml:"user_id,omitempty" json:"user_id,omitempty"`
}

var errSeparator = validation.NewError("validation_no_separator", "must not contain path separators")

func noSeparator(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
		return errSeparator
	}
	return nil
}

// Validate checks that a names a well-formed account.
func (a Account) Validate() error {
	remote := a.Type == TypeEvernote
	return validation.ValidateStruct(&a,
		validation.Field(&a.Type, validation.Required, validation.In(TypeLocal, TypeEvernote)),
		validation.Field(&a.Name, validation.Required, validation.By(noSeparator)),
		validation.Field(&a.Host, validation.When(remote, validation.Required, validation.By(noSeparator))),
		validation.Field(&a.UserID, validation.When(remote, validation.Required, validation.Min(int32(1)))),
	)
}

// Dir returns the account directory relative to the storage root.
func (a Account) Dir() string {
	if a.Type == TypeEvernote {
		return filepath.Join(EvernoteAccountsDir,
			a.Name+"_"+a.Host+"_"+strconv.FormatInt(int64(a.UserID), 10))
	}
	return filepath.Join(LocalAccountsDir, a.Name)
}

func (a Account) String() string {
	if a.Type == TypeEvernote {
		return fmt.Sprintf("%s (%s, user %d)", a.Name, a.Host, a.UserID)
	}
	return a.Name + " (local)"
}

// parseRemoteDir splits an EvernoteAccounts directory name. The user id and
// host are taken from the right so names may contain underscores.
func parseRemoteDir(name string) (Account, bool) {
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return Account{}, false
	}
	id, err := strconv.ParseInt(name[i+1:], 10, 32)
	if err != nil {
		return Account{}, false
	}
	rest := name[:i]
	j := strings.LastIndex(rest, "_")
	if j <= 0 || j == len(rest)-1 {
		return Account{}, false
	}
	return Account{Type: TypeEvernote, Name: rest[:j], Host: rest[j+1:], UserID: int32(id)}, true
}
