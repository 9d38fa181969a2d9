package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{})

	require.ErrorIs(t, q.Enqueue(Job{ID: "a"}), ErrNotStarted)

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{ID: "a", Kind: "warm"}))

	select {
	case job := <-done:
		assert.Equal(t, "warm", job.Kind)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(time.Second):
		t.Fatal("job was not processed")
	}
	assert.Eventually(t, func() bool { return !q.Pending("a") }, time.Second, 5*time.Millisecond)
}

func TestQueueCoalescesPendingJobs(t *testing.T) {
	release := make(chan struct{})
	var runs int32
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "warm"}))
	require.NoError(t, q.Enqueue(Job{ID: "warm"}))
	assert.True(t, q.Pending("warm"))
	close(release)

	assert.Eventually(t, func() bool { return !q.Pending("warm") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	succeeded := make(chan int, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("source unavailable")
		}
		succeeded <- job.Attempt
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "warm"}))
	select {
	case attempt := <-succeeded:
		assert.Equal(t, 2, attempt)
	case <-time.After(time.Second):
		t.Fatal("job did not succeed after retries")
	}
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var attempts int32
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "warm"}))
	assert.Eventually(t, func() bool { return !q.Pending("warm") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}
