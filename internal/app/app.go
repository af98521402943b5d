// Package app holds the process-wide services of a Homeboy invocation: the
// resolved configuration, the record store, the module registry, the
// subprocess runner, run history and the keyring.
package app

import (
	"log/slog"
	"time"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/build"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/db"
	"github.com/homeboy-cli/homeboy/deploy"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/keyring"
	"github.com/homeboy-cli/homeboy/modules"
	"github.com/homeboy-cli/homeboy/pipeline"
	"github.com/homeboy-cli/homeboy/repository"
	"github.com/homeboy-cli/homeboy/runner"
	"github.com/homeboy-cli/homeboy/ssh"
	"github.com/homeboy-cli/homeboy/store"
)

var (
	cfg       *config.Config
	records   *store.Store
	registry  *modules.Registry
	procs     runner.Runner
	history   repository.RunRepository
	keys      *keyring.Keyring
	connector deploy.Connector
	clock     func() time.Time
)

// InitializeWithConfig wires every service from c. Run history is
// best-effort: when the database cannot be opened a warning is logged and
// history recording is disabled.
func InitializeWithConfig(c *config.Config) error {
	if err := c.Paths.Ensure(); err != nil {
		return apperror.IO("create", c.Paths.Root, err)
	}

	cfg = c
	records = store.New(c.Paths)
	registry = modules.NewRegistry(c.Paths.Modules)
	procs = runner.New()
	keys = nil
	connector = nil
	clock = time.Now

	history = nil
	database, err := db.InitDB(c.Paths.HistoryDB)
	if err != nil {
		slog.Warn("Run history disabled", "path", c.Paths.HistoryDB, "error", err)
	} else {
		history = repository.NewRunRepository(database)
	}
	return nil
}

// InitializeForTesting wires the services against a config root without
// reading the environment.
func InitializeForTesting(root string) error {
	return InitializeWithConfig(&config.Config{
		Paths:    config.NewPaths(root),
		LogLevel: "silent",
		App:      config.DefaultAppConfig(),
	})
}

func GetConfig() *config.Config {
	return cfg
}

func GetStore() *store.Store {
	return records
}

func GetRegistry() *modules.Registry {
	return registry
}

func GetRunner() runner.Runner {
	return procs
}

// GetHistory returns the run repository, or nil when history is disabled.
func GetHistory() repository.RunRepository {
	return history
}

// GetKeyring opens the keyring, generating and persisting a key into the
// config root's .env the first time one is needed.
func GetKeyring() (*keyring.Keyring, error) {
	if keys != nil {
		return keys, nil
	}
	if cfg.KeyringKey == "" {
		generated, err := keyring.GenerateKey()
		if err != nil {
			return nil, err
		}
		if err := cfg.PersistEnvValue(config.EnvKeyringKey, generated); err != nil {
			return nil, apperror.IO("write", cfg.Paths.EnvFile, err)
		}
		slog.Info("Generated keyring key", "path", cfg.Paths.EnvFile)
		cfg.KeyringKey = generated
	}
	k, err := keyring.New(cfg.Paths.Keys, cfg.KeyringKey)
	if err != nil {
		return nil, err
	}
	keys = k
	return keys, nil
}

// Connect opens a remote for a server record over ssh.
func Connect(s *domain.Server) (deploy.Remote, error) {
	if connector != nil {
		return connector(s)
	}
	return ssh.New(procs, s)
}

// NewBuilder returns a local builder using the configured permissions.
func NewBuilder() *build.Builder {
	return &build.Builder{
		Runner:   procs,
		DirMode:  cfg.App.Permissions.LocalDirMode,
		FileMode: cfg.App.Permissions.LocalFileMode,
	}
}

// NewReleaseEngine returns a release pipeline engine bound to the current
// services.
func NewReleaseEngine(progress pipeline.Progress) *pipeline.Engine {
	return &pipeline.Engine{
		Planner:  pipeline.Planner{Registry: registry},
		Runner:   procs,
		Builder:  NewBuilder(),
		App:      cfg.App,
		History:  history,
		Progress: progress,
		Now:      clock,
	}
}

// NewDeployService returns a project deploy service bound to the current
// services.
func NewDeployService() *deploy.Service {
	return &deploy.Service{
		Store:       records,
		Registry:    registry,
		Builder:     NewBuilder(),
		Connect:     Connect,
		Permissions: cfg.App.Permissions,
		History:     history,
	}
}

// SetRunnerForTesting replaces the subprocess runner.
func SetRunnerForTesting(r runner.Runner) {
	procs = r
}

// SetConnectorForTesting replaces how remotes are opened.
func SetConnectorForTesting(c deploy.Connector) {
	connector = c
}

// SetClockForTesting fixes the time used for release dates.
func SetClockForTesting(now func() time.Time) {
	clock = now
}
