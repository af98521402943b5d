package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/fileutil"
	"github.com/homeboy-cli/homeboy/internal/validation"
)

// Default permission modes applied before builds and after deploys.
const (
	DefaultFileMode = "g+rw"
	DefaultDirMode  = "g+rwx"
)

// Permissions holds the chmod modes used locally and on remote hosts.
type Permissions struct {
	LocalFileMode  string `json:"local_file_mode" validate:"chmod"`
	LocalDirMode   string `json:"local_dir_mode" validate:"chmod"`
	RemoteFileMode string `json:"remote_file_mode" validate:"chmod"`
	RemoteDirMode  string `json:"remote_dir_mode" validate:"chmod"`
}

// ChangelogDefaults apply to components and projects that do not override them.
type ChangelogDefaults struct {
	NextSectionLabel   string                `json:"next_section_label" validate:"required"`
	NextSectionAliases []string              `json:"next_section_aliases"`
	RefactorPolicy     domain.RefactorPolicy `json:"refactor_policy" validate:"oneof=as_changed as_refactored"`
}

// AppConfig is the singleton homeboy.json record.
type AppConfig struct {
	ActiveProjectID string            `json:"active_project_id,omitempty"`
	UpdateCheck     bool              `json:"update_check"`
	Permissions     Permissions       `json:"permissions"`
	Changelog       ChangelogDefaults `json:"changelog"`
	LogLevel        string            `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warning error silent"`
	ColorEnabled    *bool             `json:"color_enabled,omitempty"`
}

// DefaultAppConfig returns the values used when homeboy.json is absent.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		UpdateCheck: true,
		Permissions: Permissions{
			LocalFileMode:  DefaultFileMode,
			LocalDirMode:   DefaultDirMode,
			RemoteFileMode: DefaultFileMode,
			RemoteDirMode:  DefaultDirMode,
		},
		Changelog: ChangelogDefaults{
			NextSectionLabel:   domain.DefaultChangelogLabel,
			NextSectionAliases: []string{},
			RefactorPolicy:     domain.RefactorAsRefactored,
		},
	}
}

// LoadAppConfig reads path over the defaults. A missing file yields defaults.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, apperror.IO("read", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, apperror.InvalidConfigJSON(path, err)
	}
	if cfg.Changelog.NextSectionAliases == nil {
		cfg.Changelog.NextSectionAliases = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveAppConfig validates and atomically writes cfg to path.
func SaveAppConfig(path string, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := fileutil.WriteJSONAtomic(path, cfg); err != nil {
		return apperror.IO("write", path, err)
	}
	return nil
}

// Validate checks every field against its declared constraints.
func (c *AppConfig) Validate() error {
	return validation.Struct(c)
}

type setter func(c *AppConfig, value string) error

var setters = map[string]setter{
	"active_project_id": func(c *AppConfig, v string) error {
		c.ActiveProjectID = v
		return nil
	},
	"update_check": func(c *AppConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperror.InvalidValue("update_check", v, "must be true or false")
		}
		c.UpdateCheck = b
		return nil
	},
	"permissions.local_file_mode":  modeSetter("permissions.local_file_mode", func(c *AppConfig) *string { return &c.Permissions.LocalFileMode }),
	"permissions.local_dir_mode":   modeSetter("permissions.local_dir_mode", func(c *AppConfig) *string { return &c.Permissions.LocalDirMode }),
	"permissions.remote_file_mode": modeSetter("permissions.remote_file_mode", func(c *AppConfig) *string { return &c.Permissions.RemoteFileMode }),
	"permissions.remote_dir_mode":  modeSetter("permissions.remote_dir_mode", func(c *AppConfig) *string { return &c.Permissions.RemoteDirMode }),
	"changelog.next_section_label": func(c *AppConfig, v string) error {
		if strings.TrimSpace(v) == "" {
			return apperror.InvalidValue("changelog.next_section_label", v, "must not be empty")
		}
		c.Changelog.NextSectionLabel = strings.TrimSpace(v)
		return nil
	},
	"changelog.next_section_aliases": func(c *AppConfig, v string) error {
		aliases := []string{}
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		c.Changelog.NextSectionAliases = aliases
		return nil
	},
	"changelog.refactor_policy": func(c *AppConfig, v string) error {
		p, err := domain.ParseRefactorPolicy(v)
		if err != nil {
			return apperror.InvalidValue("changelog.refactor_policy", v, "must be as_changed or as_refactored")
		}
		c.Changelog.RefactorPolicy = p
		return nil
	},
	"log_level": func(c *AppConfig, v string) error {
		if !IsValidLogLevel(v) {
			return apperror.InvalidValue("log_level", v, "must be debug, info, warning, error, or silent")
		}
		c.LogLevel = v
		return nil
	},
	"color_enabled": func(c *AppConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperror.InvalidValue("color_enabled", v, "must be true or false")
		}
		c.ColorEnabled = &b
		return nil
	},
}

func modeSetter(key string, field func(c *AppConfig) *string) setter {
	return func(c *AppConfig, v string) error {
		if err := validation.Var(key, v, "chmod"); err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
}

// Keys lists the settable homeboy.json keys.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a dotted key from its string form.
func (c *AppConfig) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return apperror.InvalidArgument("key", "unknown config key '"+key+"'", apperror.Suggest(key, Keys(), 3))
	}
	return set(c, value)
}

// RefactorPolicyFor resolves the policy for a project, falling back to the
// app default.
func (c *AppConfig) RefactorPolicyFor(p *domain.Project) domain.RefactorPolicy {
	if p != nil {
		if policy := p.RefactorPolicy(); policy.IsValid() {
			return policy
		}
	}
	if c.Changelog.RefactorPolicy.IsValid() {
		return c.Changelog.RefactorPolicy
	}
	return domain.RefactorAsRefactored
}
