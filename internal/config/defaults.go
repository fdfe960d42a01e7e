package config

import "time"

const (
	// DefaultURL is the Jenkins controller used when none is configured.
	DefaultURL = "http://127.0.0.1:8080/"

	// DefaultUsername is the Jenkins user used when none is configured.
	DefaultUsername = "admin"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultExtension is appended to logical template paths.
	DefaultExtension = ".tmpl"

	// DefaultWorkers is the worker pool width for parallel sync.
	DefaultWorkers = 32

	// DefaultPrune asks before deleting unmanaged jobs.
	DefaultPrune = "ask"

	// DefaultManifests is the manifest directory, relative to the working
	// directory.
	DefaultManifests = "./jobs"
)

// DefaultTemplatePaths are searched in order: system-wide, per user, then
// the working directory.
var DefaultTemplatePaths = []string{
	"/usr/share/jenkey/templates",
	"~/.local/share/jenkey/templates",
	"./templates",
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:      DefaultURL,
			Username: DefaultUsername,
			Timeout:  DefaultTimeout,
		},
		Templates: TemplatesConfig{
			Paths:     append([]string(nil), DefaultTemplatePaths...),
			Extension: DefaultExtension,
		},
		Sync: SyncConfig{
			Workers: DefaultWorkers,
			Prune:   DefaultPrune,
		},
		Manifests: DefaultManifests,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
