package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"jenkey/pkg/logging"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory
// when no explicit path is given.
const FileName = "jenkey.yaml"

var yamlLine = regexp.MustCompile(`line (\d+)`)

// Load reads the configuration at path on top of the defaults. An empty
// path looks for FileName in the working directory and falls back to the
// defaults when it does not exist; an explicit path must exist.
func Load(path string) (Config, error) {
	config := Default()

	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			logging.Info("ConfigLoader", "No %s found in working directory, using defaults", FileName)
			return finalize(config)
		}
		return Config{}, ConfigurationError{
			FilePath:  path,
			ErrorType: "io",
			Message:   "cannot read configuration file",
			Details:   err.Error(),
			Suggestions: []string{
				"Check that the file exists and is readable",
				"Omit --config to use " + FileName + " from the working directory",
			},
		}
	}

	if err := decode(data, &config); err != nil {
		cerr := ConfigurationError{
			FilePath:  path,
			ErrorType: "parse",
			Message:   "invalid YAML",
			Details:   err.Error(),
			Suggestions: []string{
				"Check indentation and quoting",
				"Known top-level keys are server, templates, sync, manifests and log",
			},
		}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			cerr.LineNumber, _ = strconv.Atoi(m[1])
		}
		return Config{}, cerr
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	return finalize(config)
}

func decode(data []byte, out *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// finalize expands paths, resolves the token and validates the result.
func finalize(config Config) (Config, error) {
	for i, p := range config.Templates.Paths {
		config.Templates.Paths[i] = ExpandHome(p)
	}
	config.Manifests = ExpandHome(config.Manifests)
	config.Sync.Prune = strings.ToLower(strings.TrimSpace(config.Sync.Prune))

	if config.Server.Token == "" && config.Server.TokenEnv != "" {
		config.Server.Token = os.Getenv(config.Server.TokenEnv)
		if config.Server.Token == "" {
			logging.Warn("ConfigLoader", "Environment variable %s is empty", config.Server.TokenEnv)
		}
	}

	if err := config.Validate(); err != nil {
		return Config{}, ConfigurationError{
			ErrorType: "validation",
			Message:   "invalid configuration",
			Details:   err.Error(),
			Suggestions: []string{
				fmt.Sprintf("See the defaults with 'jenkey config' or remove %s", FileName),
			},
		}
	}
	return config, nil
}

// ExpandHome replaces a leading "~" with the user's home directory. The
// path is returned unchanged when the home directory is unknown.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		logging.Debug("ConfigLoader", "Cannot expand %s: %v", path, err)
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
