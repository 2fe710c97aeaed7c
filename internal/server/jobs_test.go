package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_Progress(t *testing.T) {
	j := NewJob()
	j.SetProgress(50, 200, "quarter")
	j.SetProgress(100, 200, "")

	snap := j.Snapshot()
	assert.Equal(t, 50, snap.Progress)
	require.Len(t, snap.Logs, 1)
	assert.Contains(t, snap.Logs[0], "quarter")
}

func TestJob_Cancel(t *testing.T) {
	j := NewJob()
	assert.False(t, j.Cancel())

	ctx, cancel := context.WithCancel(context.Background())
	j.CancelFn = cancel
	assert.True(t, j.Cancel())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	j.fail(StatusCancelled, "context canceled")
	assert.False(t, j.Cancel())
	assert.Equal(t, StatusCancelled, j.Snapshot().Status)
}

func TestJobStore_Prune(t *testing.T) {
	s := NewJobStore()

	running := NewJob()
	running.CreatedAt = time.Now().Add(-48 * time.Hour)
	oldDone := NewJob()
	oldDone.CreatedAt = time.Now().Add(-48 * time.Hour)
	oldDone.finish(&JobResult{})
	freshDone := NewJob()
	freshDone.finish(&JobResult{})

	for _, j := range []*Job{running, oldDone, freshDone} {
		s.Add(j)
	}

	assert.Equal(t, 1, s.Prune(24*time.Hour))
	assert.NotNil(t, s.Get(running.ID))
	assert.Nil(t, s.Get(oldDone.ID))
	assert.NotNil(t, s.Get(freshDone.ID))
}
