// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration from a YAML file over the values already in
// target. References of the form $VAR, ${VAR} and ${VAR:-default} are
// expanded before decoding. Unknown keys are rejected.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := Decode(bytes.NewReader(data), target); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", filename, err)
	}
	return nil
}

// Decode is Load for an already opened document.
func Decode[T any](r io.Reader, target *T) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(strings.NewReader(Expand(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse: %w", err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadWithDefaults loads configuration with fallback to a default file.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		return fmt.Errorf("config file not found: %s", filename)
	}
	return Load(filename, target)
}

// Expand replaces environment references in s. ${VAR:-default} yields
// default when VAR is unset or empty.
func Expand(s string) string {
	return os.Expand(s, func(ref string) string {
		name, def, hasDefault := strings.Cut(ref, ":-")
		if v := os.Getenv(name); v != "" || !hasDefault {
			return v
		}
		return def
	})
}
