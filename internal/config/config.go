// Package config manages configuration for the opsbook CLI.
// It uses Viper for unified configuration management from files and environment variables.
// The config file also holds the stored API key, the credential shared by every command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/opsbook/opsbook/internal/constants"
)

// Config represents the CLI configuration.
// It supports loading from YAML files and environment variables.
type Config struct {
	APIEndpoint string `mapstructure:"api_endpoint" yaml:"api_endpoint" validate:"required,url"`
	APIKey      string `mapstructure:"api_key" yaml:"api_key"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// Config keys.
const (
	keyAPIEndpoint = "api_endpoint"
	keyAPIKey      = "api_key"
	keyLogLevel    = "log_level"
)

var validate = validator.New()

// Load loads the configuration from ~/.opsbook/config.yaml.
// A missing config file is not an error; defaults apply.
// Environment variables (OPSBOOK_ prefix) take precedence over config file values.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from the given file path.
func LoadFrom(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("error loading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.APIEndpoint = strings.TrimSpace(cfg.APIEndpoint)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its validation rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Save saves the configuration to the user's home directory.
// Overwrites the existing config file if it exists.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration to path with owner-only permissions.
func SaveTo(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPermissions); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	v := viper.New()
	v.Set(keyAPIEndpoint, cfg.APIEndpoint)
	v.Set(keyAPIKey, cfg.APIKey)
	if cfg.LogLevel != "" {
		v.Set(keyLogLevel, cfg.LogLevel)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	if err := os.Chmod(path, constants.ConfigFilePermissions); err != nil {
		return fmt.Errorf("error setting config file permissions: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("error getting current user: %w", err)
	}

	return constants.ConfigFilePath(currentUser.HomeDir), nil
}

// GetLogLevel returns the slog.Level from the string configuration.
// Defaults to INFO if the level string is invalid.
func (c *Config) GetLogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(keyAPIEndpoint, constants.DefaultAPIEndpoint)
	v.SetDefault(keyAPIKey, "")
	v.SetDefault(keyLogLevel, "INFO")

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{keyAPIEndpoint, keyAPIKey, keyLogLevel} {
		_ = v.BindEnv(key, constants.EnvPrefix+"_"+strings.ToUpper(key))
	}
	return v
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
