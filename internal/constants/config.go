package constants

// DefaultAPIEndpoint is the default base URL of the runbook backend API.
// This can be overridden via configuration (OPSBOOK_API_ENDPOINT env var or config file).
const DefaultAPIEndpoint = "http://localhost:8000/api"

// ConfigDirName is the name of the configuration directory in the user's home directory.
const ConfigDirName = "." + ProjectName

// ConfigFileName is the name of the global configuration file.
const ConfigFileName = "config.yaml"

// EnvPrefix is the prefix for environment variables overriding config values.
const EnvPrefix = "OPSBOOK"

// ConfigDirPath returns the full path to the global configuration directory.
func ConfigDirPath(homeDir string) string {
	return homeDir + "/" + ConfigDirName
}

// ConfigFilePath returns the full path to the global configuration file.
func ConfigFilePath(homeDir string) string {
	return ConfigDirPath(homeDir) + "/" + ConfigFileName
}

// ConfigDirPermissions is the file system permissions for config directory (0750).
const ConfigDirPermissions = 0o750

// ConfigFilePermissions is the file system permissions for config file (0600).
const ConfigFilePermissions = 0o600

// RunbookFileExtensions are the file extensions accepted for runbook files.
var RunbookFileExtensions = []string{".yaml", ".yml"}

// RunbookFilePermissions is the mode of exported runbook files
const RunbookFilePermissions = 0o600
