// Package config loads the settings of the configuration build from an
// optional YAML file, a .env file and IOCOMGEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to environment variable names, e.g.
	// IOCOMGEN_CODEROOT.
	EnvPrefix = "IOCOMGEN"

	// DefaultFile is read from the working directory when no file is given.
	DefaultFile = "iocomgen.yaml"
)

// Config holds the build settings.
type Config struct {
	// CodeRoot is the root of the source tree holding shared configuration.
	CodeRoot string `mapstructure:"coderoot"`

	// Imports is the shared configuration directory searched after the
	// application's own. Defaults to <coderoot>/iocom/config.
	Imports string `mapstructure:"imports"`

	Strict        bool `mapstructure:"strict"`
	HashPasswords bool `mapstructure:"hash_passwords"`

	// Jobs limits how many hardware configurations are built at once;
	// zero means no limit.
	Jobs int `mapstructure:"jobs"`

	Verbose bool `mapstructure:"verbose"`
}

// DefaultCodeRoot returns the conventional code root of the platform.
func DefaultCodeRoot() string {
	if runtime.GOOS == "windows" {
		return "c:/coderoot"
	}
	return "/coderoot"
}

// Load reads the configuration. An empty path falls back to DefaultFile
// when it exists; a named file must exist.
func Load(path string) (*Config, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("coderoot", DefaultCodeRoot())
	v.SetDefault("imports", "")
	v.SetDefault("strict", false)
	v.SetDefault("hash_passwords", false)
	v.SetDefault("jobs", 0)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking %s: %w", DefaultFile, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Imports == "" {
		cfg.Imports = ImportsDir(cfg.CodeRoot)
	}
	return &cfg, nil
}

// ImportsDir returns the shared configuration directory below codeRoot.
func ImportsDir(codeRoot string) string {
	return filepath.Join(codeRoot, "iocom", "config")
}
