package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jenkey/cmd"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev", version)
}

func TestSetVersion(t *testing.T) {
	original := cmd.GetVersion()
	t.Cleanup(func() { cmd.SetVersion(original) })

	for _, v := range []string{"dev", "1.0.0", "v2.0.0-rc1"} {
		cmd.SetVersion(v)
		assert.Equal(t, v, cmd.GetVersion())
	}
}
