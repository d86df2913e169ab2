package constants

// Environment represents the execution environment of the process (e.g., CLI).
type Environment string

// Environment types for logger configuration.
const (
	Development Environment = "development"
	Production  Environment = "production"
	CLI         Environment = "cli"
)
