// Package config loads layercfg settings from layercfg.yml, then applies
// LAYERCFG_* environment overrides and finally command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/layercfg/internal/flagset"
)

// Config holds the settings of a layercfg run.
type Config struct {
	DataDir     string `yaml:"dataDir,omitempty"     env:"LAYERCFG_DATA_DIR"`
	UserDataDir string `yaml:"userDataDir,omitempty" env:"LAYERCFG_USER_DATA_DIR"`
	// Core is the preferred core id.
	Core     string `yaml:"core,omitempty"     env:"LAYERCFG_CORE"`
	NoAddons bool   `yaml:"noAddons,omitempty" env:"LAYERCFG_NO_ADDONS"`
	NoCache  bool   `yaml:"noCache,omitempty"  env:"LAYERCFG_NO_CACHE"`
	// ForceValidCache keeps compiled trees even when content changed.
	ForceValidCache bool   `yaml:"forceValidCache,omitempty" env:"LAYERCFG_FORCE_VALID_CACHE"`
	ValidateCore    bool   `yaml:"validateCore,omitempty"    env:"LAYERCFG_VALIDATE_CORE"`
	ValidateAddon   string `yaml:"validateAddon,omitempty"   env:"LAYERCFG_VALIDATE_ADDON"`
	// SchemaPath is relative to DataDir unless absolute.
	SchemaPath string `yaml:"schema,omitempty" env:"LAYERCFG_SCHEMA"`
	Debug      bool   `yaml:"debug,omitempty"  env:"LAYERCFG_DEBUG"`
	MPTest     bool   `yaml:"mpTest,omitempty" env:"LAYERCFG_MP_TEST"`
	// Defines are extra flags added to every resolution.
	Defines map[string]string `yaml:"defines,omitempty" env:"LAYERCFG_DEFINES" envSeparator:"," envKeyValSeparator:"="`
	// Extensions is the enabled selection; unset enables all.
	Extensions     []string `yaml:"extensions,omitempty" env:"LAYERCFG_EXTENSIONS" envSeparator:","`
	LogLevel       string   `yaml:"logLevel,omitempty"   env:"LAYERCFG_LOG_LEVEL"`
	ProvenancePath string   `yaml:"provenance,omitempty" env:"LAYERCFG_PROVENANCE"`
}

// DefaultSchemaPath is the core schema location under the data directory.
const DefaultSchemaPath = "schema/game_config.yml"

// Load attempts to read layercfg.yml or layercfg.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"layercfg.yml", "layercfg.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &Config{}, nil
}

// ApplyEnv overrides fields whose LAYERCFG_* variable is set.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// AddFlags registers command-line overrides on flagSet, defaulting to the
// current values.
func (c *Config) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.DataDir, "data-dir", c.DataDir, "game data directory holding cores.yml")
	flagSet.StringVar(&c.UserDataDir, "user-data-dir", c.UserDataDir, "user data directory holding data/add-ons")
	flagSet.StringVar(&c.Core, "core", c.Core, "preferred core id")
	flagSet.BoolVar(&c.NoAddons, "noaddons", c.NoAddons, "do not load extensions")
	flagSet.BoolVar(&c.NoCache, "nocache", c.NoCache, "do not memoize compiled trees")
	flagSet.BoolVar(&c.ForceValidCache, "validcache", c.ForceValidCache, "assume compiled trees are valid")
	flagSet.BoolVar(&c.ValidateCore, "validate-core", c.ValidateCore, "validate the active core against the schema")
	flagSet.StringVar(&c.ValidateAddon, "validate-addon", c.ValidateAddon, "validate the extension with this id")
	flagSet.StringVar(&c.SchemaPath, "schema", c.SchemaPath, "schema file used for validation")
	flagSet.BoolVarP(&c.Debug, "debug", "d", c.Debug, "define DEBUG_MODE")
	flagSet.BoolVar(&c.MPTest, "mp-test", c.MPTest, "define MP_TEST for multiplayer resolutions")
	flagSet.VarP((*definesValue)(&c.Defines), "define", "D", "extra flag, NAME or NAME=VALUE (repeatable)")
	flagSet.StringSliceVar(&c.Extensions, "extensions", c.Extensions, "enabled extensions (default all)")
	flagSet.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	flagSet.StringVar(&c.ProvenancePath, "provenance", c.ProvenancePath, "persist the provenance graph under this path")
}

// definesValue adds -D items to the defines loaded from file and env.
type definesValue map[string]string

func (d *definesValue) String() string {
	return flagset.Set(*d).Key()
}

func (d *definesValue) Set(item string) error {
	parsed := flagset.Parse(item)
	if len(parsed) == 0 {
		return fmt.Errorf("empty flag name in %q", item)
	}
	if *d == nil {
		*d = make(map[string]string)
	}
	for k, v := range parsed {
		(*d)[k] = v
	}
	return nil
}

func (d *definesValue) Type() string { return "flag" }

// Normalize fills defaults and applies implied settings. Validation only
// happens while compiling, so any validation option disables the cache.
func (c *Config) Normalize() {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.UserDataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.UserDataDir = filepath.Join(home, ".local", "share", "layercfg")
		}
	}
	if c.SchemaPath == "" {
		c.SchemaPath = DefaultSchemaPath
	}
	if c.ValidationRequested() {
		c.NoCache = true
	}
}

// ValidationRequested reports whether any validation option is set.
func (c *Config) ValidationRequested() bool {
	return c.ValidateCore || c.ValidateAddon != ""
}

// AddonsDir is the user extensions directory.
func (c *Config) AddonsDir() string {
	return filepath.Join(c.UserDataDir, "data", "add-ons")
}

// Schema returns the schema path resolved against DataDir.
func (c *Config) Schema() string {
	if filepath.IsAbs(c.SchemaPath) {
		return c.SchemaPath
	}
	return filepath.Join(c.DataDir, c.SchemaPath)
}

// Flags returns the extra defines as a flag set.
func (c *Config) Flags() flagset.Set {
	s := make(flagset.Set, len(c.Defines))
	for k, v := range c.Defines {
		if k = strings.TrimSpace(k); k != "" {
			s[k] = v
		}
	}
	return s
}

// Selection returns the enabled extensions, or flagset.All when unset.
func (c *Config) Selection() flagset.Selection {
	if c.Extensions == nil {
		return flagset.All
	}
	return flagset.Select(c.Extensions...)
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
