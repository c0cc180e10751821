package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Environment variables that override file values.
const (
	EnvHome         = "WHISPERKEY_HOME"
	EnvDirectoryURL = "WHISPERKEY_DIRECTORY_URL"
	EnvStoreBackend = "WHISPERKEY_STORE_BACKEND"
	EnvStorePath    = "WHISPERKEY_STORE_PATH"
	EnvStoreTimeout = "WHISPERKEY_STORE_TIMEOUT"
	EnvHTTPTimeout  = "WHISPERKEY_HTTP_TIMEOUT"
	EnvPassphrase   = "WHISPERKEY_PASSPHRASE"
)

// ConfigFileName is looked up in Home when no config path is given.
const ConfigFileName = "config.yaml"

// Config holds runtime wiring options for building the app.
type Config struct {
	// Home is the config directory, e.g. $HOME/.whisperkey.
	Home string `yaml:"home"`

	// DirectoryURL is the public key directory base URL,
	// e.g. http://127.0.0.1:8080.
	DirectoryURL string `yaml:"directory_url"`

	// Store selects where private keys live.
	Store StoreConfig `yaml:"store"`

	// StoreTimeout bounds each key store read or write. Default: 5s.
	StoreTimeout time.Duration `yaml:"store_timeout"`

	// HTTPTimeout bounds each directory request. Default: 10s.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Passphrase seals the file store. It is only taken from flags or the
	// environment, never from the config file.
	Passphrase string `yaml:"-"`

	HTTP       *http.Client          `yaml:"-"` // optional; built from HTTPTimeout
	Logger     *slog.Logger          `yaml:"-"` // optional; discards by default
	Registerer prometheus.Registerer `yaml:"-"` // optional; metrics stay unregistered
}

// StoreConfig configures the private key store.
type StoreConfig struct {
	// Backend is one of file, sqlite or memory. Default: file.
	Backend string `yaml:"backend"`

	// Path is the store directory (file) or database file (sqlite).
	// Default: Home for file, Home/keys.db for sqlite.
	Path string `yaml:"path"`
}

// Default returns the configuration used before any file or environment
// override is applied.
func Default() Config {
	home := ".whisperkey"
	if dir, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(dir, ".whisperkey")
	}
	return Config{
		Home:         home,
		DirectoryURL: "http://127.0.0.1:8080",
		Store:        StoreConfig{Backend: BackendFile},
		StoreTimeout: 5 * time.Second,
		HTTPTimeout:  10 * time.Second,
	}
}

// Load builds a Config from defaults, then the YAML file at path, then
// WHISPERKEY_* environment variables. An empty path means Home/config.yaml,
// which may be absent.
func Load(path string) (Config, error) {
	cfg := Default()
	if v, ok := os.LookupEnv(EnvHome); ok && v != "" {
		cfg.Home = v
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.Home, ConfigFileName)
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile merges the YAML file at path into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		EnvHome:         &c.Home,
		EnvDirectoryURL: &c.DirectoryURL,
		EnvStoreBackend: &c.Store.Backend,
		EnvStorePath:    &c.Store.Path,
		EnvPassphrase:   &c.Passphrase,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		EnvStoreTimeout: &c.StoreTimeout,
		EnvHTTPTimeout:  &c.HTTPTimeout,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// minPassphraseLength is the shortest passphrase accepted for sealing.
const minPassphraseLength = 12

// ErrWeakPassphrase is returned by Validate when the passphrase fails the
// strength policy.
var ErrWeakPassphrase = fmt.Errorf(
	"passphrase must be at least %d characters with upper, lower, digit and symbol", minPassphraseLength)

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("store.backend %q: want %s, %s or %s",
			c.Store.Backend, BackendFile, BackendSQLite, BackendMemory)
	}
	if c.Home == "" && c.Store.Backend != BackendMemory && c.Store.Path == "" {
		return errors.New("home or store.path required")
	}
	if c.DirectoryURL == "" {
		return errors.New("directory_url required")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store_timeout %s must be positive", c.StoreTimeout)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout %s must be positive", c.HTTPTimeout)
	}
	if c.Passphrase != "" && !isSecurePassphrase(c.Passphrase) {
		return ErrWeakPassphrase
	}
	return nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len([]rune(passphrase)) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// StorePath resolves the store location for the configured backend.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Backend == BackendSQLite {
		return filepath.Join(c.Home, "keys.db")
	}
	return c.Home
}
