package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbook/opsbook/internal/config"
	"github.com/opsbook/opsbook/internal/constants"
)

func TestConfigureService_Configure(t *testing.T) {
	tests := []struct {
		name         string
		endpoint     string
		prompts      []string
		existing     *config.Config
		saveErr      error
		wantEndpoint string
		wantKey      string
		wantErr      bool
		wantLoginTip bool
	}{
		{
			name:         "new configuration from prompt",
			prompts:      []string{"https://runbooks.example.com/api"},
			wantEndpoint: "https://runbooks.example.com/api",
			wantLoginTip: true,
		},
		{
			name:         "empty answer uses the default",
			prompts:      []string{""},
			wantEndpoint: constants.DefaultAPIEndpoint,
			wantLoginTip: true,
		},
		{
			name:         "flag keeps the stored key",
			endpoint:     "https://new.example.com/api",
			existing:     &config.Config{APIEndpoint: "https://old.example.com/api", APIKey: "key-1", LogLevel: "DEBUG"},
			wantEndpoint: "https://new.example.com/api",
			wantKey:      "key-1",
		},
		{
			name:         "empty answer keeps the existing endpoint",
			prompts:      []string{""},
			existing:     &config.Config{APIEndpoint: "https://old.example.com/api", APIKey: "key-1"},
			wantEndpoint: "https://old.example.com/api",
			wantKey:      "key-1",
		},
		{
			name:     "save failure",
			endpoint: "https://x.example.com",
			saveErr:  errors.New("permission denied"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved *config.Config
			loader := ConfigLoaderFunc(func() (*config.Config, error) {
				if tt.existing == nil {
					return nil, errors.New("no config")
				}
				return tt.existing, nil
			})
			saver := ConfigSaverFunc(func(cfg *config.Config) error {
				saved = cfg
				return tt.saveErr
			})
			paths := ConfigPathGetterFunc(func() (string, error) { return "/home/u/.opsbook/config.yaml", nil })
			out := &mockOutputInterface{prompts: tt.prompts}

			err := NewConfigureService(out, saver, loader, paths).Configure(context.Background(), tt.endpoint)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, saved)
			assert.Equal(t, tt.wantEndpoint, saved.APIEndpoint)
			assert.Equal(t, tt.wantKey, saved.APIKey)
			if tt.existing != nil {
				assert.Equal(t, tt.existing.LogLevel, saved.LogLevel)
			}

			path, ok := out.keyValue("Configuration path")
			assert.True(t, ok)
			assert.Equal(t, "/home/u/.opsbook/config.yaml", path)
			assert.Equal(t, tt.wantLoginTip, out.hasMessage("Infof", "opsbook login"))
		})
	}
}
