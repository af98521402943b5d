// Package config resolves the Homeboy config root and the process-level
// settings read from flags, environment and homeboy.json.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/homeboy-cli/homeboy/domain"
)

const (
	AppName = "homeboy"

	ProjectsDir   = "projects"
	ServersDir    = "servers"
	ComponentsDir = "components"
	ModulesDir    = "modules"
	KeysDir       = "keys"
	BackupsDir    = "backups"

	AppConfigFile = "homeboy.json"
	HistoryDBFile = "history.db"
	EnvFile       = ".env"
)

// Environment variables read at startup.
const (
	EnvConfigDir    = "HOMEBOY_CONFIG_DIR"
	EnvLogLevel     = "HOMEBOY_LOG_LEVEL"
	EnvColorEnabled = "HOMEBOY_COLOR_ENABLED"
	EnvKeyringKey   = "HOMEBOY_KEYRING_KEY"
	EnvNoColor      = "NO_COLOR"
)

// EnvProvider abstracts environment variable access for testing
type EnvProvider interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
}

// DefaultEnvProvider implements EnvProvider using real OS functions
type DefaultEnvProvider struct{}

func (p *DefaultEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (p *DefaultEnvProvider) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// GetDefaultRoot returns the config root: HOMEBOY_CONFIG_DIR, else the XDG
// config home joined with "homeboy".
func GetDefaultRoot() string {
	return getDefaultRootWithEnv(&DefaultEnvProvider{})
}

func getDefaultRootWithEnv(env EnvProvider) string {
	if v := env.Getenv(EnvConfigDir); v != "" {
		return v
	}
	if v := env.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, AppName)
	}
	if xdg.ConfigHome != "" {
		return filepath.Join(xdg.ConfigHome, AppName)
	}
	home, _ := env.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// Paths lists every location derived from the config root.
type Paths struct {
	Root       string `json:"root"`
	Projects   string `json:"projects"`
	Servers    string `json:"servers"`
	Components string `json:"components"`
	Modules    string `json:"modules"`
	Keys       string `json:"keys"`
	Backups    string `json:"backups"`
	AppConfig  string `json:"app_config"`
	HistoryDB  string `json:"history_db"`
	EnvFile    string `json:"env_file"`
}

// NewPaths derives all paths from root.
func NewPaths(root string) Paths {
	return Paths{
		Root:       root,
		Projects:   filepath.Join(root, ProjectsDir),
		Servers:    filepath.Join(root, ServersDir),
		Components: filepath.Join(root, ComponentsDir),
		Modules:    filepath.Join(root, ModulesDir),
		Keys:       filepath.Join(root, KeysDir),
		Backups:    filepath.Join(root, BackupsDir),
		AppConfig:  filepath.Join(root, AppConfigFile),
		HistoryDB:  filepath.Join(root, HistoryDBFile),
		EnvFile:    filepath.Join(root, EnvFile),
	}
}

// EntityDir returns the directory holding records of type t.
func (p Paths) EntityDir(t domain.EntityType) string {
	return filepath.Join(p.Root, t.Dir())
}

// Ensure creates the root and every record directory.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Root, p.Projects, p.Servers, p.Components, p.Modules, p.Keys, p.Backups} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Config holds configuration resolved once per invocation
type Config struct {
	Paths

	// Logging
	LogLevel     string
	ColorEnabled bool

	// Keyring
	KeyringKey string

	// App is the persisted homeboy.json content.
	App *AppConfig

	env EnvProvider
}

// NewConfigForCLI creates a new configuration for CLI usage with optional config directory override
func NewConfigForCLI(cliConfigDir string) (*Config, error) {
	return newConfigWithEnv(&DefaultEnvProvider{}, cliConfigDir)
}

// NewConfigForCLIWithEnv creates a new configuration with custom environment provider (for testing)
func NewConfigForCLIWithEnv(env EnvProvider, cliConfigDir string) (*Config, error) {
	return newConfigWithEnv(env, cliConfigDir)
}

func newConfigWithEnv(env EnvProvider, cliConfigDir string) (*Config, error) {
	root := getDefaultRootWithEnv(env)
	if cliConfigDir != "" {
		root = cliConfigDir
	}
	c := &Config{Paths: NewPaths(root), env: env}

	app, err := LoadAppConfig(c.Paths.AppConfig)
	if err != nil {
		return nil, err
	}
	c.App = app

	// Defaults first, then homeboy.json, then environment
	c.setDefaults()
	c.loadFromApp()
	c.loadFromEnv()

	if c.KeyringKey == "" {
		c.KeyringKey = c.readEnvFileValue(EnvKeyringKey)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) setDefaults() {
	c.LogLevel = "silent"
	c.ColorEnabled = true
}

func (c *Config) loadFromApp() {
	if c.App.LogLevel != "" {
		c.LogLevel = c.App.LogLevel
	}
	if c.App.ColorEnabled != nil {
		c.ColorEnabled = *c.App.ColorEnabled
	}
}

func (c *Config) loadFromEnv() {
	if v := c.env.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := c.env.Getenv(EnvColorEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.ColorEnabled = enabled
		}
	}
	if c.env.Getenv(EnvNoColor) != "" {
		c.ColorEnabled = false
	}
	if v := c.env.Getenv(EnvKeyringKey); v != "" {
		c.KeyringKey = v
	}
}

// readEnvFileValue reads key from the .env file in the config root.
func (c *Config) readEnvFileValue(key string) string {
	values, err := godotenv.Read(c.Paths.EnvFile)
	if err != nil {
		// A missing .env is normal
		return ""
	}
	return values[key]
}

// PersistEnvValue stores key=value in the config root's .env file, keeping
// any other entries already present.
func (c *Config) PersistEnvValue(key, value string) error {
	values, err := godotenv.Read(c.Paths.EnvFile)
	if err != nil {
		values = map[string]string{}
	}
	values[key] = value

	if err := os.MkdirAll(c.Paths.Root, 0o755); err != nil {
		return fmt.Errorf("failed to create config root: %w", err)
	}
	if err := godotenv.Write(values, c.Paths.EnvFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Paths.EnvFile, err)
	}
	return os.Chmod(c.Paths.EnvFile, 0o600)
}

func (c *Config) validate() error {
	if !IsValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warning, error, or silent)", c.LogLevel)
	}
	return nil
}

// IsValidLogLevel reports whether level is accepted by --log-level.
func IsValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "error", "silent":
		return true
	default:
		return false
	}
}

// GetLogLevel returns the configured log level
func (c *Config) GetLogLevel() string {
	return c.LogLevel
}
