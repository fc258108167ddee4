package handler

import (
	"context"
	"sync"
)

// Sessions runs one task per inbound event. Tasks for the same key run one
// at a time in the order Go was called; different keys run concurrently.
type Sessions struct {
	mu     sync.Mutex
	queues map[string][]func()
	wg     sync.WaitGroup
	closed bool
}

func NewSessions() *Sessions {
	return &Sessions{queues: make(map[string][]func())}
}

// Go queues fn behind the earlier tasks for key. It returns false once Drain
// has been called.
func (s *Sessions) Go(key string, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	s.wg.Add(1)
	queue, running := s.queues[key]
	s.queues[key] = append(queue, fn)
	if !running {
		go s.run(key)
	}
	return true
}

// run works through the queue for key. The running task stays at the head
// of the queue, so the key is present exactly while a worker owns it.
func (s *Sessions) run(key string) {
	for {
		s.mu.Lock()
		fn := s.queues[key][0]
		s.mu.Unlock()

		fn()

		s.mu.Lock()
		queue := s.queues[key]
		queue[0] = nil
		queue = queue[1:]
		if len(queue) == 0 {
			delete(s.queues, key)
		} else {
			s.queues[key] = queue
		}
		s.mu.Unlock()
		s.wg.Done()

		if len(queue) == 0 {
			return
		}
	}
}

// Active reports how many keys have a running or queued task.
func (s *Sessions) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}

// Drain stops accepting tasks and waits for the running ones, or for ctx.
func (s *Sessions) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
