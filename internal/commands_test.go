package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/neilotoole/slogt"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/storage"
)

func testOptions(t *testing.T) (*Config, []Option) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Storage.Root = t.TempDir()
	return cfg, []Option{WithConfig(cfg), WithLogger(slogt.New(t))}
}

func TestStats_EmptyAccount(t *testing.T) {
	cfg, opts := testOptions(t)

	var buf bytes.Buffer
	if err := Stats(context.Background(), &buf, opts...); err != nil {
		t.Fatalf("Stats: %v", err)
	}

	var counts map[string]int
	if err := json.Unmarshal(buf.Bytes(), &counts); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if counts["notes"] != 0 || counts["notebooks"] != 0 {
		t.Errorf("counts = %v, want zeros", counts)
	}

	dbPath := filepath.Join(cfg.Storage.Root, storage.LocalAccountsDir, "default", storage.DatabaseFile)
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("storage file not created: %v", err)
	}
}

func TestSearch_Command(t *testing.T) {
	_, opts := testOptions(t)

	var buf bytes.Buffer
	if err := Search(context.Background(), &buf, "milk", 10, opts...); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Errorf("output = %q, want []", got)
	}

	err := Search(context.Background(), &buf, "notebook:", 10, opts...)
	if !errors.Is(err, apperr.ErrInvalidQuery) {
		t.Errorf("err = %v, want invalid query", err)
	}
}

func TestAccounts_Command(t *testing.T) {
	_, opts := testOptions(t)

	if err := Stats(context.Background(), &bytes.Buffer{}, opts...); err != nil {
		t.Fatalf("Stats: %v", err)
	}

	var buf bytes.Buffer
	if err := Accounts(context.Background(), &buf, opts...); err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	var accounts []storage.Account
	if err := json.Unmarshal(buf.Bytes(), &accounts); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if len(accounts) != 1 || accounts[0].Name != "default" || accounts[0].Type != storage.TypeLocal {
		t.Errorf("accounts = %+v", accounts)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}
