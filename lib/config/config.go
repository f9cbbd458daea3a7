// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable read by [Load].
const EnvVar = "CUSTODY_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config is the custody service configuration.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	Paths   PathsConfig   `yaml:"paths"`
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Tokens  TokensConfig  `yaml:"tokens"`
	Logging LoggingConfig `yaml:"logging"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	HTTP    *HTTPConfig    `yaml:"http,omitempty"`
	Store   *StoreConfig   `yaml:"store,omitempty"`
	Tokens  *TokensConfig  `yaml:"tokens,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty"`
}

// PathsConfig configures file locations.
type PathsConfig struct {
	// Root is the base directory for custody data.
	Root string `yaml:"root"`

	// Store is the FileStore root (blobs and temp files).
	Store string `yaml:"store"`

	// State holds the token signing keypair.
	State string `yaml:"state"`

	// Socket is the Unix socket of the CBOR service surface.
	Socket string `yaml:"socket"`

	// Journal is the ledger journal file. Empty disables the journal.
	Journal string `yaml:"journal"`

	// AccessLog is the SQLite access-log database. Empty disables it.
	AccessLog string `yaml:"access_log"`
}

// HTTPConfig configures the JSON HTTP surface.
type HTTPConfig struct {
	// Address is the TCP listen address. Empty disables HTTP.
	Address string `yaml:"address"`
}

// StoreConfig configures evidence byte storage.
type StoreConfig struct {
	// Backend is "file" or "memory".
	Backend string `yaml:"backend"`

	// Compression is "auto", "none", "lz4", or "zstd".
	Compression string `yaml:"compression"`

	// EncryptionKeyFile holds a raw 32-byte master key. Empty stores
	// blobs unencrypted.
	EncryptionKeyFile string `yaml:"encryption_key_file"`
}

// TokensConfig configures token minting defaults.
type TokensConfig struct {
	// TTL is a Go duration string.
	TTL string `yaml:"ttl"`
}

// LoggingConfig configures the service logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`
}

// Default returns the base configuration that a file is merged into.
// Paths derive from ${CUSTODY_ROOT} so that setting paths.root alone
// relocates everything.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:      filepath.Join(homeDir, ".local", "share", "custody"),
			Store:     "${CUSTODY_ROOT}/store",
			State:     "${CUSTODY_ROOT}/state",
			Socket:    "${CUSTODY_ROOT}/custody.sock",
			Journal:   "${CUSTODY_ROOT}/ledger.journal",
			AccessLog: "${CUSTODY_ROOT}/access.db",
		},
		HTTP: HTTPConfig{
			Address: "127.0.0.1:8440",
		},
		Store: StoreConfig{
			Backend:     BackendFile,
			Compression: "auto",
		},
		Tokens: TokensConfig{
			TTL: "8h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by CUSTODY_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your custody.yaml config file, or use --config", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so the stripped document goes
		// through the same decoder and the same struct tags.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Logging: &LoggingConfig{Level: "info"},
			}
		}
	}
	if overrides == nil {
		return
	}

	if paths := overrides.Paths; paths != nil {
		override(&c.Paths.Root, paths.Root)
		override(&c.Paths.Store, paths.Store)
		override(&c.Paths.State, paths.State)
		override(&c.Paths.Socket, paths.Socket)
		override(&c.Paths.Journal, paths.Journal)
		override(&c.Paths.AccessLog, paths.AccessLog)
	}
	if http := overrides.HTTP; http != nil {
		override(&c.HTTP.Address, http.Address)
	}
	if store := overrides.Store; store != nil {
		override(&c.Store.Backend, store.Backend)
		override(&c.Store.Compression, store.Compression)
		override(&c.Store.EncryptionKeyFile, store.EncryptionKeyFile)
	}
	if tokens := overrides.Tokens; tokens != nil {
		override(&c.Tokens.TTL, tokens.TTL)
	}
	if logging := overrides.Logging; logging != nil {
		override(&c.Logging.Level, logging.Level)
	}
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"CUSTODY_ROOT": c.Paths.Root,
		"HOME":         os.Getenv("HOME"),
	}
	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["CUSTODY_ROOT"] = c.Paths.Root

	for _, field := range []*string{
		&c.Paths.Store,
		&c.Paths.State,
		&c.Paths.Socket,
		&c.Paths.Journal,
		&c.Paths.AccessLog,
		&c.Store.EncryptionKeyFile,
	} {
		*field = expandVars(*field, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	compressionModes = []string{"auto", "none", "lz4", "zstd"}
	logLevels        = []string{"debug", "info", "warn", "error"}
)

// Validate checks the configuration for errors and reports all of them.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.Socket == "" {
		errs = append(errs, fmt.Errorf("paths.socket is required"))
	}
	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Paths.Store == "" {
			errs = append(errs, fmt.Errorf("paths.store is required for the file backend"))
		}
	case BackendMemory:
		if c.Store.EncryptionKeyFile != "" {
			errs = append(errs, fmt.Errorf("store.encryption_key_file requires the file backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be one of: [%s %s]", BackendFile, BackendMemory))
	}
	if !slices.Contains(compressionModes, c.Store.Compression) {
		errs = append(errs, fmt.Errorf("store.compression must be one of: %v", compressionModes))
	}
	if c.Environment == Production {
		if c.Store.Backend != BackendFile {
			errs = append(errs, fmt.Errorf("production requires the file store backend"))
		}
		if c.Store.EncryptionKeyFile == "" {
			errs = append(errs, fmt.Errorf("production requires store.encryption_key_file"))
		}
	}

	if _, err := c.TokenTTL(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}

	return errors.Join(errs...)
}

// TokenTTL parses tokens.ttl.
func (c *Config) TokenTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Tokens.TTL)
	if err != nil {
		return 0, fmt.Errorf("tokens.ttl: %w", err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("tokens.ttl must be positive, got %s", c.Tokens.TTL)
	}
	return ttl, nil
}

// EnsurePaths creates the configured directories. Directories are
// private to the service user.
func (c *Config) EnsurePaths() error {
	directories := []string{c.Paths.Root, c.Paths.State, filepath.Dir(c.Paths.Socket)}
	if c.Store.Backend == BackendFile {
		directories = append(directories, c.Paths.Store)
	}
	for _, file := range []string{c.Paths.Journal, c.Paths.AccessLog} {
		if file != "" {
			directories = append(directories, filepath.Dir(file))
		}
	}
	for _, directory := range directories {
		if directory == "" {
			continue
		}
		if err := os.MkdirAll(directory, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}
