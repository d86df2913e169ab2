package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/client/output"
	"github.com/opsbook/opsbook/internal/config"
	"github.com/opsbook/opsbook/internal/constants"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure the backend endpoint URL",
	Long: fmt.Sprintf(`Configure the backend endpoint URL.
This creates or updates the configuration file at ~/%s/%s.
The stored API key is kept; use login or signup to change it.`, constants.ConfigDirName, constants.ConfigFileName),
	Example: fmt.Sprintf(`  - %s configure
  - %s configure --endpoint https://runbooks.example.com/api`, constants.ProjectName, constants.ProjectName),
	Run: runConfigure,
}

var configureEndpoint string

func init() {
	configureCmd.Flags().StringVar(&configureEndpoint, "endpoint", "", "API endpoint URL (prompted when omitted)")
	markPublic(configureCmd)
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, _ []string) {
	service := NewConfigureService(
		NewOutputWrapper(),
		NewConfigSaver(),
		NewConfigLoader(),
		NewConfigPathGetter(),
	)
	if err := service.Configure(cmd.Context(), configureEndpoint); err != nil {
		output.Errorf("%v", err)
	}
}

// ConfigLoader defines an interface for loading configuration
type ConfigLoader interface {
	Load() (*config.Config, error)
}

// ConfigSaver defines an interface for saving configuration
type ConfigSaver interface {
	Save(*config.Config) error
}

// ConfigPathGetter defines an interface for retrieving the configuration path
type ConfigPathGetter interface {
	GetConfigPath() (string, error)
}

// ConfigLoaderFunc adapts a function to the ConfigLoader interface
type ConfigLoaderFunc func() (*config.Config, error)

// Load executes the underlying function to load configuration
func (f ConfigLoaderFunc) Load() (*config.Config, error) {
	return f()
}

// ConfigSaverFunc adapts a function to the ConfigSaver interface
type ConfigSaverFunc func(*config.Config) error

// Save executes the underlying function to persist configuration
func (f ConfigSaverFunc) Save(cfg *config.Config) error {
	return f(cfg)
}

// ConfigPathGetterFunc adapts a function to the ConfigPathGetter interface
type ConfigPathGetterFunc func() (string, error)

// GetConfigPath executes the underlying function to retrieve the config path
func (f ConfigPathGetterFunc) GetConfigPath() (string, error) {
	return f()
}

// NewConfigLoader creates a ConfigLoader using the global config.Load function
func NewConfigLoader() ConfigLoader {
	return ConfigLoaderFunc(config.Load)
}

// NewConfigSaver creates a ConfigSaver using the global config.Save function
func NewConfigSaver() ConfigSaver {
	return ConfigSaverFunc(config.Save)
}

// NewConfigPathGetter creates a ConfigPathGetter using the global config.GetConfigPath function
func NewConfigPathGetter() ConfigPathGetter {
	return ConfigPathGetterFunc(config.GetConfigPath)
}

// ConfigureService handles configuration logic
type ConfigureService struct {
	output           OutputInterface
	configSaver      ConfigSaver
	configLoader     ConfigLoader
	configPathGetter ConfigPathGetter
}

// NewConfigureService creates a new ConfigureService with the provided dependencies
func NewConfigureService(
	outputter OutputInterface,
	configSaver ConfigSaver,
	configLoader ConfigLoader,
	configPathGetter ConfigPathGetter,
) *ConfigureService {
	return &ConfigureService{
		output:           outputter,
		configSaver:      configSaver,
		configLoader:     configLoader,
		configPathGetter: configPathGetter,
	}
}

// Configure runs the configuration flow. An empty endpoint is prompted for.
func (s *ConfigureService) Configure(_ context.Context, endpoint string) error {
	existingConfig, err := s.configLoader.Load()
	configExists := err == nil
	if configExists {
		s.output.Successf("Found existing configuration")
	} else {
		existingConfig = &config.Config{}
		s.output.Infof("Creating new configuration")
	}

	if endpoint == "" {
		endpoint = s.output.Prompt(fmt.Sprintf("Enter API endpoint URL [%s]", defaultEndpoint(existingConfig)))
	}
	if endpoint == "" {
		endpoint = defaultEndpoint(existingConfig)
		s.output.Infof("Using endpoint: %s", endpoint)
	}

	cfg := &config.Config{
		APIEndpoint: endpoint,
		APIKey:      existingConfig.APIKey,
		LogLevel:    existingConfig.LogLevel,
	}

	if err = s.configSaver.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	configPath, err := s.configPathGetter.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	s.output.Successf("Configuration saved successfully")
	s.output.KeyValue("Configuration path", configPath)
	s.output.KeyValue("API endpoint", endpoint)
	if cfg.APIKey == "" {
		s.output.Infof("Next, log in with %s", s.output.Bold(constants.ProjectName+" login"))
	}
	return nil
}

func defaultEndpoint(cfg *config.Config) string {
	if cfg.APIEndpoint != "" {
		return cfg.APIEndpoint
	}
	return constants.DefaultAPIEndpoint
}
