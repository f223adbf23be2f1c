// Package config provides configuration loading and management for the
// registry server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/packtory/packtory/internal/store"
	"github.com/packtory/packtory/internal/validate"
)

const (
	// StorageTypeMemory keeps all state in process memory.
	StorageTypeMemory = "memory"

	// StorageTypePostgres persists state in PostgreSQL.
	StorageTypePostgres = "postgres"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Storage selects the persistence backend: memory or postgres.
	// Defaults to memory if not specified.
	Storage string `yaml:"storage,omitempty"`

	Database *DatabaseConfig `yaml:"database,omitempty"`
	GitHub   *GitHubConfig   `yaml:"github,omitempty"`
	Policy   *PolicyConfig   `yaml:"policy,omitempty"`
}

// GitHubConfig defines GitHub API access settings
type GitHubConfig struct {
	// APIBase overrides the GitHub REST API base URL, mainly for testing
	// against a stub or a GitHub Enterprise instance
	APIBase string `yaml:"apiBase,omitempty"`
}

// PolicyConfig extends the built-in package name policy
type PolicyConfig struct {
	// BlockedPatterns are extra regular expressions rejected as package
	// names. They are matched against the name with "." and "-" stripped.
	BlockedPatterns []string `yaml:"blockedPatterns,omitempty"`

	// AllowedVendors are extra vendor prefixes exempt from the blocklist
	AllowedVendors []string `yaml:"allowedVendors,omitempty"`

	// ReservedNames are extra per-segment reserved words
	ReservedNames []string `yaml:"reservedNames,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from PACKTORY_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv("PACKTORY_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or PACKTORY_DATABASE_PASSWORD environment variable",
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// StoreConfig converts the database settings to the store layer's form.
func (d *DatabaseConfig) StoreConfig() (*store.PostgresConfig, error) {
	password, err := d.GetPassword()
	if err != nil {
		return nil, err
	}
	return &store.PostgresConfig{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
	}, nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	// As of now, this is required because there's no other options to load
	// configuration. Once we add more options, we can remove this check.
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{Storage: StorageTypeMemory}
}

// GetStorage returns the storage type, using memory if not specified
func (c *Config) GetStorage() string {
	if c.Storage == "" {
		return StorageTypeMemory
	}
	return c.Storage
}

// BuildPolicy compiles the name policy with the configured extensions.
func (c *Config) BuildPolicy() (*validate.Policy, error) {
	cfg := validate.PolicyConfig{}
	if c.Policy != nil {
		cfg.BlockedPatterns = c.Policy.BlockedPatterns
		cfg.AllowedVendors = c.Policy.AllowedVendors
		cfg.ReservedNames = c.Policy.ReservedNames
	}
	policy, err := validate.NewPolicy(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid name policy: %w", err)
	}
	return policy, nil
}

// Validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	switch c.GetStorage() {
	case StorageTypeMemory:
		// No further settings required.
	case StorageTypePostgres:
		if c.Database == nil {
			return fmt.Errorf("postgres storage requires a database section")
		}
		if c.Database.Host == "" {
			return fmt.Errorf("database: host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("database: port must be between 1 and 65535")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database: user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database: database name is required")
		}
	default:
		return fmt.Errorf("unknown storage type '%s' (expected %s or %s)",
			c.Storage, StorageTypeMemory, StorageTypePostgres)
	}

	if c.GitHub != nil && c.GitHub.APIBase != "" {
		if _, err := url.ParseRequestURI(c.GitHub.APIBase); err != nil {
			return fmt.Errorf("github: invalid apiBase: %w", err)
		}
	}

	return nil
}
