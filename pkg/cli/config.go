package cli

import "github.com/zuzpack/zuz/pkg/config"

// Config holds the values of the global flags
type Config struct {
	ProjectFile  string
	SettingsFile string
	Verbosity    string
	Concurrency  int
	Compiler     string
	Version      string
}

// NewConfig creates a CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		ProjectFile: config.DefaultProjectFile,
		Version:     "dev",
	}
}
