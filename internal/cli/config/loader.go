package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables read by Merge.
const EnvPrefix = "CHATMESH_"

// Keys accepted by Merge in both the env and flags maps. Environment keys
// carry EnvPrefix and are upper case.
const (
	KeyServer    = "server"
	KeyAdmin     = "admin"
	KeyOutput    = "output"
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
	KeyHistory   = "history"
	KeyAdminCA   = "admin-ca"
)

// Keys lists every key Merge understands.
var Keys = []string{KeyServer, KeyAdmin, KeyAdminCA, KeyOutput, KeyLogLevel, KeyLogFormat, KeyHistory}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".chatmesh", "client.yaml")
}

// Load reads the configuration at path on top of the defaults. A missing
// file yields the defaults.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Merge overrides cfg with environment values and then with flag values.
// Empty values are ignored.
func Merge(cfg *CLIConfig, env map[string]string, flags map[string]string) *CLIConfig {
	for _, key := range Keys {
		set(cfg, key, env[envName(key)])
	}
	for key, value := range flags {
		set(cfg, key, value)
	}
	return cfg
}

// Environ collects the CHATMESH_* variables Merge understands.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, key := range Keys {
		if v, ok := os.LookupEnv(envName(key)); ok {
			env[envName(key)] = v
		}
	}
	return env
}

func envName(key string) string {
	name := []byte(EnvPrefix + key)
	for i, c := range name {
		switch {
		case c == '-':
			name[i] = '_'
		case c >= 'a' && c <= 'z':
			name[i] = c - 'a' + 'A'
		}
	}
	return string(name)
}

func set(cfg *CLIConfig, key, value string) {
	if value == "" {
		return
	}
	switch key {
	case KeyServer:
		cfg.Server = value
	case KeyAdmin:
		cfg.Admin = value
	case KeyAdminCA:
		cfg.AdminCA = value
	case KeyOutput:
		cfg.Output = value
	case KeyLogLevel:
		cfg.Log.Level = value
	case KeyLogFormat:
		cfg.Log.Format = value
	case KeyHistory:
		cfg.History = value
	}
}
