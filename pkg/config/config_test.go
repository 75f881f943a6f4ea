package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

func (s *sample) Validate() error {
	if s.Port < 0 {
		return os.ErrInvalid
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_KeepsDefaults(t *testing.T) {
	path := writeFile(t, "name: notes\n")
	cfg := sample{Port: 8080, Timeout: time.Second}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "notes" || cfg.Port != 8080 || cfg.Timeout != time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("NOTESTORE_TEST_PORT", "9090")
	path := writeFile(t, "port: ${NOTESTORE_TEST_PORT}\nname: ${NOTESTORE_TEST_UNSET:-fallback}\ntimeout: 5s\n")
	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 || cfg.Name != "fallback" || cfg.Timeout != 5*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "name: x\nprot: 1\n")
	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("unknown key should fail")
	}
}

func TestLoad_Validation(t *testing.T) {
	path := writeFile(t, "port: -1\n")
	var cfg sample
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "")
	cfg := sample{Port: 1}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if cfg.Port != 1 {
		t.Errorf("port = %d", cfg.Port)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeFile(t, "name: default\n")
	var cfg sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &cfg); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Name != "default" {
		t.Errorf("name = %q", cfg.Name)
	}

	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &cfg); err == nil {
		t.Error("missing file without default should fail")
	}
}

func TestExpand(t *testing.T) {
	t.Setenv("NOTESTORE_TEST_SET", "v")
	for in, want := range map[string]string{
		"$NOTESTORE_TEST_SET":           "v",
		"${NOTESTORE_TEST_SET:-d}":      "v",
		"${NOTESTORE_TEST_UNSET:-d}":    "d",
		"${NOTESTORE_TEST_UNSET}":       "",
		"a-${NOTESTORE_TEST_UNSET:-}-b": "a--b",
	} {
		if got := Expand(in); got != want {
			t.Errorf("Expand(%q) = %q, want %q", in, got, want)
		}
	}
}
