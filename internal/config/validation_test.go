package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Default(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Sync.Workers = 0
	cfg.Sync.Prune = "maybe"
	cfg.Templates.Paths = nil
	cfg.Templates.Extension = "tmpl"

	err := cfg.Validate()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 4)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "field 'sync.prune': must be one of: ask, always, never")
}

func TestValidate_DirectoryTarget(t *testing.T) {
	cfg := Default()
	cfg.Server.URL = "dir:///tmp/out"
	assert.NoError(t, cfg.Validate())
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())

	var errs ValidationErrors
	errs.Add("", "plain message", nil)
	assert.Equal(t, "plain message", errs.Error())
	assert.True(t, errs.HasErrors())
}

func TestConfigurationError_Error(t *testing.T) {
	err := ConfigurationError{FilePath: "/etc/jenkey.yaml", ErrorType: "parse", Message: "invalid YAML", LineNumber: 4, Details: "x"}
	assert.Equal(t, "[parse] /etc/jenkey.yaml: invalid YAML", err.Error())
	assert.Contains(t, err.DetailedError(), "Line: 4")
	assert.Equal(t, "[validation] bad", ConfigurationError{ErrorType: "validation", Message: "bad"}.Error())
}
