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

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan Job[string], 1)
	q := NewQueue("test", func(_ context.Context, job Job[string]) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("listener unavailable")
		}
		done <- job
		return nil
	}, QueueConfig{MaxRetries: 5, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[string]{ID: "grades", Payload: "grades"}))

	select {
	case job := <-done:
		assert.Equal(t, "grades", job.Payload)
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestQueueGivesUp(t *testing.T) {
	gaveUp := make(chan error, 1)
	q := NewQueue("test", func(context.Context, Job[int]) error {
		return errors.New("boom")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	q.OnGiveUp(func(_ Job[int], err error) { gaveUp <- err })
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[int]{ID: "1", Payload: 1}))

	select {
	case err := <-gaveUp:
		assert.EqualError(t, err, "boom")
	case <-time.After(2 * time.Second):
		t.Fatal("queue never gave up")
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job[int]) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job[int]{ID: "1"}))
}

func TestEnqueueAfterStop(t *testing.T) {
	q := NewQueue("stopped", func(context.Context, Job[int]) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job[int]{ID: "1"}))
}
