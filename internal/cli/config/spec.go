package config

// CLIConfig is the configuration for chatmesh-client.
type CLIConfig struct {
	// Server is the client port of the server to attach to.
	Server string `yaml:"server"`
	// Admin is the base URL of a server's admin endpoint, used by "status".
	Admin string `yaml:"admin"`
	// AdminCA is a PEM bundle trusted in addition to the system roots when
	// Admin is an https URL.
	AdminCA string `yaml:"admin_ca"`
	Output  string `yaml:"output"` // table, json, yaml

	Log     LogConfig `yaml:"log"`
	History string    `yaml:"history_file"`
}

// LogConfig configures the client logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "localhost:2050",
		Admin:  "http://localhost:9090",
		Output: "table",
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}
