package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	pruneValues     = []string{"ask", "always", "never"}
	logLevelValues  = []string{"debug", "info", "warn", "error"}
	logFormatValues = []string{"text", "json"}
)

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs ValidationErrors

	if u, err := url.Parse(c.Server.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "dir") || (u.Scheme != "dir" && u.Host == "") {
		errs.Add("server.url", "must be an http(s) URL or dir://path", c.Server.URL)
	}
	if c.Server.Timeout < 0 {
		errs.Add("server.timeout", "must not be negative", c.Server.Timeout)
	}
	if len(c.Templates.Paths) == 0 {
		errs.Add("templates.paths", "must list at least one directory", c.Templates.Paths)
	}
	if c.Templates.Extension != "" && !strings.HasPrefix(c.Templates.Extension, ".") {
		errs.Add("templates.extension", "must start with '.'", c.Templates.Extension)
	}
	if c.Sync.Workers < 1 {
		errs.Add("sync.workers", "must be at least 1", c.Sync.Workers)
	}
	if err := validateOneOf("sync.prune", c.Sync.Prune, pruneValues); err != nil {
		errs = append(errs, *err)
	}
	if err := validateOneOf("log.level", c.Log.Level, logLevelValues); err != nil {
		errs = append(errs, *err)
	}
	if err := validateOneOf("log.format", c.Log.Format, logFormatValues); err != nil {
		errs = append(errs, *err)
	}
	if strings.TrimSpace(c.Manifests) == "" {
		errs.Add("manifests", "is required", c.Manifests)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// validateOneOf checks if a value is in a list of allowed values
func validateOneOf(field, value string, allowed []string) *ValidationError {
	for _, allowedValue := range allowed {
		if strings.EqualFold(value, allowedValue) {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}
