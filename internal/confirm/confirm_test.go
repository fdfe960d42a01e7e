package confirm

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsYes(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"y", true},
		{"Y", true},
		{"yes", true},
		{" YES ", true},
		{"", false},
		{"n", false},
		{"no", false},
		{"yep", false},
		{"sure", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsYes(tt.answer), "answer %q", tt.answer)
	}
}

func TestAuto(t *testing.T) {
	ok, err := Auto(true).Confirm(context.Background(), "Delete?", []string{"a"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Auto(false).Confirm(context.Background(), "Delete?", []string{"a"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFunc_ReceivesItems(t *testing.T) {
	var got []string
	c := Func(func(_ context.Context, _ string, items []string) (bool, error) {
		got = items
		return true, nil
	})

	_, err := c.Confirm(context.Background(), "Delete?", []string{"old", "stale"})
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "stale"}, got)
}

func TestTerminal_Confirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "yes\n", true},
		{"short yes", "y\n", true},
		{"no", "n\n", false},
		{"empty line", "\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			term := &Terminal{
				Stdin:  io.NopCloser(strings.NewReader(tt.input)),
				Stdout: &out,
			}

			ok, err := term.Confirm(context.Background(), "Delete 2 jobs?", []string{"old", "stale"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, out.String(), "  old\n  stale")
		})
	}
}
