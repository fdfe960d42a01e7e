package config

import "time"

// Config is the top-level configuration structure for jenkey.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Templates TemplatesConfig `yaml:"templates"`
	Sync      SyncConfig      `yaml:"sync"`
	Log       LogConfig       `yaml:"log"`

	// Manifests is the directory holding one YAML file per project.
	Manifests string `yaml:"manifests"`
}

// ServerConfig describes the Jenkins controller.
type ServerConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`

	// Token is the API token. TokenEnv names an environment variable to read
	// it from instead.
	Token    string        `yaml:"token,omitempty"`
	TokenEnv string        `yaml:"tokenEnv,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TemplatesConfig lists the template search roots in lookup order.
type TemplatesConfig struct {
	Paths     []string `yaml:"paths"`
	Extension string   `yaml:"extension"`
}

// SyncConfig configures reconciliation.
type SyncConfig struct {
	Parallel bool `yaml:"parallel"`
	Workers  int  `yaml:"workers"`

	// Prune is one of ask, always or never.
	Prune string `yaml:"prune"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
