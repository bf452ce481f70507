// Package limiter bounds concurrent render pipelines and fan-out fetches.
package limiter

import "context"

// Semaphore is a FIFO counting semaphore backed by a buffered channel,
// mirroring the teacher's processSem pattern in ThumbnailHandler.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore returns a Semaphore with n permits.
func NewSemaphore(n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire blocks until a permit is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit to the pool.
func (s *Semaphore) Release() {
	<-s.slots
}
