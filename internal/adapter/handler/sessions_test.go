package handler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_SameKeyRunsOneAtATimeInOrder(t *testing.T) {
	s := NewSessions()

	var running, maxRunning atomic.Int32
	var mu sync.Mutex
	var order []int

	for i := 0; i < 5; i++ {
		require.True(t, s.Go("alice", func() {
			n := running.Add(1)
			if n > maxRunning.Load() {
				maxRunning.Store(n)
			}
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			running.Add(-1)
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Drain(ctx))

	assert.EqualValues(t, 1, maxRunning.Load())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Zero(t, s.Active())
}

func TestSessions_DifferentKeysRunConcurrently(t *testing.T) {
	s := NewSessions()

	started := make(chan struct{}, 2)
	release := make(chan struct{})

	for _, key := range []string{"alice", "bob"} {
		s.Go(key, func() {
			started <- struct{}{}
			<-release
		})
	}

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("second sender was blocked by the first")
		}
	}
	assert.Equal(t, 2, s.Active())

	close(release)
	require.NoError(t, s.Drain(context.Background()))
}

func TestSessions_DrainHonoursContext(t *testing.T) {
	s := NewSessions()

	release := make(chan struct{})
	defer close(release)
	s.Go("alice", func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Drain(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.Go("bob", func() {}))
}
