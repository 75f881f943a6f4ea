package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestStorageConfig_PageSize(t *testing.T) {
	for _, tt := range []struct {
		size  int
		valid bool
	}{
		{512, true},
		{4096, true},
		{65536, true},
		{0, false},
		{256, false},
		{3000, false},
		{131072, false},
	} {
		cfg := NewDefaultConfig().Storage
		cfg.PageSize = tt.size
		err := cfg.Validate()
		if tt.valid && err != nil {
			t.Errorf("page size %d: unexpected error %v", tt.size, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("page size %d: expected error", tt.size)
		}
	}
}

func TestStorageConfig_RootRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Root = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty storage root should fail")
	}
}

func TestAccountConfig_Validate(t *testing.T) {
	cfg := AccountConfig{Type: "evernote", Name: "alice"}
	if err := cfg.Validate(); err == nil {
		t.Error("remote account without host and user id should fail")
	}

	cfg.Host = "www.evernote.com"
	cfg.UserID = 42
	if err := cfg.Validate(); err != nil {
		t.Errorf("remote account: %v", err)
	}

	cfg = AccountConfig{Type: "ftp", Name: "x"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown account type should fail")
	}

	cfg = AccountConfig{Type: "local", Name: "a/b"}
	if err := cfg.Validate(); err == nil {
		t.Error("name with a path separator should fail")
	}
}

func TestStorageConfig_StoreOptions(t *testing.T) {
	cfg := NewDefaultConfig().Storage
	if got := len(cfg.StoreOptions()); got != 2 {
		t.Errorf("StoreOptions() = %d options, want 2", got)
	}
}
