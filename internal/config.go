package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notestore/internal/localstore"
	"github.com/starford/notestore/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Account AccountConfig     `yaml:"account"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Account.Validate(); err != nil {
		return fmt.Errorf("account: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig holds the account root and engine settings.
type StorageConfig struct {
	Root        string        `yaml:"root"`
	PageSize    int           `yaml:"page_size"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	// OverrideLock continues when another process holds the storage lock.
	OverrideLock bool `yaml:"override_lock"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.PageSize, validation.Required, validation.By(powerOfTwo), validation.Min(512), validation.Max(65536)),
		validation.Field(&c.BusyTimeout, validation.Min(time.Duration(0))),
	)
}

// StoreOptions returns the store options the configuration selects.
func (c *StorageConfig) StoreOptions() []localstore.Option {
	return []localstore.Option{
		localstore.WithPageSize(c.PageSize),
		localstore.WithBusyTimeout(c.BusyTimeout),
	}
}

func powerOfTwo(v any) error {
	n, _ := v.(int)
	if n&(n-1) != 0 {
		return validation.NewError("validation_power_of_two", "must be a power of two")
	}
	return nil
}

// AccountConfig selects the account activated at startup.
type AccountConfig struct {
	Type   string `yaml:"type"`
	Name   string `yaml:"name"`
	Host   string `yaml:"host"`
	UserID int32  `yaml:"user_id"`
	// StartFromScratch wipes the account's storage before it is opened.
	StartFromScratch bool `yaml:"start_from_scratch"`
}

// Account returns the storage account the configuration names.
func (c *AccountConfig) Account() storage.Account {
	return storage.Account{Type: storage.Type(c.Type), Name: c.Name, Host: c.Host, UserID: c.UserID}
}

// Validate validates the account configuration.
func (c *AccountConfig) Validate() error {
	return c.Account().Validate()
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Root:        "./data",
			PageSize:    localstore.DefaultPageSize,
			BusyTimeout: localstore.DefaultBusyTimeout,
		},
		Account: AccountConfig{
			Type: string(storage.TypeLocal),
			Name: "default",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
