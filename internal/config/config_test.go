package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbook/opsbook/internal/constants"
)

func TestConfig_GetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		expected slog.Level
	}{
		{
			name:     "DEBUG level",
			logLevel: "DEBUG",
			expected: slog.LevelDebug,
		},
		{
			name:     "WARN level",
			logLevel: "WARN",
			expected: slog.LevelWarn,
		},
		{
			name:     "invalid level defaults to INFO",
			logLevel: "INVALID",
			expected: slog.LevelInfo,
		},
		{
			name:     "empty string defaults to INFO",
			logLevel: "",
			expected: slog.LevelInfo,
		},
		{
			name:     "lowercase level",
			logLevel: "debug",
			expected: slog.LevelDebug,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.expected, cfg.GetLogLevel())
		})
	}
}

func TestValidationRules(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg:  Config{APIEndpoint: "http://localhost:8000/api", APIKey: "k"},
		},
		{
			name:    "missing endpoint",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name:    "endpoint is not a url",
			cfg:     Config{APIEndpoint: "not a url"},
			wantErr: true,
		},
		{
			name:    "unknown log level",
			cfg:     Config{APIEndpoint: "http://x", LogLevel: "TRACE"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultAPIEndpoint, cfg.APIEndpoint)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestSaveToAndLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".opsbook", "config.yaml")

	err := SaveTo(path, &Config{
		APIEndpoint: "https://runbooks.example.com/api",
		APIKey:      "test-key-12345",
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(constants.ConfigFilePermissions), info.Mode().Perm())

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://runbooks.example.com/api", cfg.APIEndpoint)
	assert.Equal(t, "test-key-12345", cfg.APIKey)
}

func TestSaveTo_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	err := SaveTo(path, &Config{APIEndpoint: "::"})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadFrom_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveTo(path, &Config{APIEndpoint: "http://file.example.com/api", APIKey: "file-key"}))

	t.Setenv("OPSBOOK_API_ENDPOINT", "http://env.example.com/api")
	t.Setenv("OPSBOOK_LOG_LEVEL", "DEBUG")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.example.com/api", cfg.APIEndpoint)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_endpoint: [unclosed"), 0o600))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config file")
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(constants.ConfigDirName, constants.ConfigFileName),
		filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
