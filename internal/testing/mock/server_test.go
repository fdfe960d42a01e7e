package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jenkey/internal/remote"
)

func TestServer_RecordsCalls(t *testing.T) {
	ctx := context.Background()
	s := NewServer().WithJobs("old")

	require.NoError(t, s.CreateJob(ctx, "new", "<job/>"))
	require.NoError(t, s.ReconfigureJob(ctx, "old", "<job2/>"))
	require.NoError(t, s.SetNextBuildNumber(ctx, "new", 7))

	assert.Equal(t, []string{"new"}, s.Names("CreateJob"))
	assert.Equal(t, []string{"new", "old"}, s.JobIDs())
	assert.Equal(t, 7, s.NextBuildNumber("new"))
	assert.Equal(t, "CreateJob new\nReconfigureJob old\nSetNextBuildNumber new", s.Summary())
}

func TestServer_FailureInjection(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := NewServer().Fail(Failure{Op: "CreateJob", Name: "a", Err: boom, Times: 1})

	err := s.CreateJob(ctx, "a", "<job/>")
	var te *remote.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "CreateJob", te.Op)
	assert.ErrorIs(t, err, boom)

	// The rule fired once
	assert.NoError(t, s.CreateJob(ctx, "a", "<job/>"))
	assert.NoError(t, s.CreateJob(ctx, "b", "<job/>"))
}

func TestServer_StateErrors(t *testing.T) {
	ctx := context.Background()
	s := NewServer()

	assert.Error(t, s.ReconfigureJob(ctx, "missing", "<x/>"))
	assert.Error(t, s.DeleteJob(ctx, "missing"))
	assert.Error(t, s.ReconfigureView(ctx, "missing", "<x/>"))

	require.NoError(t, s.CreateView(ctx, "v", "<view/>"))
	assert.Error(t, s.CreateView(ctx, "v", "<view/>"))
}

func TestServer_FactoryCountsDials(t *testing.T) {
	s := NewServer()
	f := s.Factory()
	for i := 0; i < 3; i++ {
		_, err := f(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Dials())
}

func TestServer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewServer().JobExists(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
