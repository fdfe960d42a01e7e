package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 50 * time.Millisecond

// start runs w in the background and returns the channel of batches once
// the watches are in place.
func start(t *testing.T, w *Watcher) <-chan []string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	ready := make(chan struct{})
	w.ready = func() { close(ready) }

	batches := make(chan []string, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, paths []string) {
			batches <- paths
		})
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}
	return batches
}

func next(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch received")
		return nil
	}
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	batches := start(t, New([]string{dir}, Options{Interval: testInterval}))

	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(a, []byte("1"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("2"), 0644))
	require.NoError(t, os.WriteFile(a, []byte("3"), 0644))

	assert.Equal(t, []string{a, b}, next(t, batches))

	select {
	case extra := <-batches:
		t.Fatalf("unexpected second batch %v", extra)
	case <-time.After(4 * testInterval):
	}
}

func TestWatcher_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "builders")
	require.NoError(t, os.Mkdir(sub, 0755))
	batches := start(t, New([]string{dir}, Options{Interval: testInterval}))

	path := filepath.Join(sub, "shell.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.Equal(t, []string{path}, next(t, batches))
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	batches := start(t, New([]string{dir}, Options{Interval: testInterval}))

	sub := filepath.Join(dir, "publishers")
	require.NoError(t, os.Mkdir(sub, 0755))

	// The directory watch is added asynchronously; write until it is seen.
	path := filepath.Join(sub, "mail.tmpl")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		select {
		case b := <-batches:
			assert.Equal(t, []string{path}, b)
			return
		case <-time.After(4 * testInterval):
		}
	}
	t.Fatal("change in new directory was not observed")
}

func TestWatcher_Match(t *testing.T) {
	dir := t.TempDir()
	yamlOnly := func(p string) bool { return filepath.Ext(p) == ".yaml" }
	batches := start(t, New([]string{dir}, Options{Interval: testInterval, Match: yamlOnly}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	path := filepath.Join(dir, "web.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.Equal(t, []string{path}, next(t, batches))
}

func TestWatcher_SkipsMissingRoots(t *testing.T) {
	dir := t.TempDir()
	batches := start(t, New([]string{filepath.Join(dir, "missing"), dir}, Options{Interval: testInterval}))

	path := filepath.Join(dir, "a.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.Equal(t, []string{path}, next(t, batches))
}

func TestWatcher_NothingToWatch(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing")}, Options{})
	err := w.Run(context.Background(), func(context.Context, []string) {})
	assert.ErrorIs(t, err, ErrNothingToWatch)
}

func TestNew_Defaults(t *testing.T) {
	w := New(nil, Options{})
	assert.Equal(t, DefaultInterval, w.interval)
	assert.NotNil(t, w.match)
}

func TestIsSourceFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/jobs/web.yaml", true},
		{"/templates/builders/shell.tmpl", true},
		{"/jobs/.web.yaml.swp", false},
		{"/jobs/web.yaml.swp", false},
		{"/jobs/web.yaml~", false},
		{"/jobs/#web.yaml#", false},
		{"/jobs/.hidden", false},
		{"/jobs/4913.tmp", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSourceFile(tt.path))
		})
	}
}
