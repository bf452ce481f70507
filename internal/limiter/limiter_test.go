package limiter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	sem := NewSemaphore(2)
	var inFlight, maxInFlight atomic.Int32

	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			_ = sem.Acquire(context.Background())
			cur := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if cur <= m || maxInFlight.CompareAndSwap(m, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			sem.Release()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}

	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
}

func TestSemaphoreAcquireCancelled(t *testing.T) {
	sem := NewSemaphore(1)
	err := sem.Acquire(context.Background())
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sem.Acquire(ctx)
	assert.Error(t, err)
}

func TestBoundedMapPreservesOrderAndIsolatesFailures(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	results := BoundedMap(context.Background(), items, 2, func(_ context.Context, i int) (int, error) {
		if i == 3 {
			return 0, errors.New("boom")
		}
		return i * 10, nil
	})

	assert.Len(t, results, 5)
	assert.Equal(t, 10, results[0].Value)
	assert.Equal(t, 20, results[1].Value)
	assert.Error(t, results[2].Err)
	assert.Equal(t, 40, results[3].Value)
	assert.Equal(t, 50, results[4].Value)
}

func TestBoundedMapEmpty(t *testing.T) {
	results := BoundedMap[int, int](context.Background(), nil, 4, func(_ context.Context, i int) (int, error) {
		return i, nil
	})
	assert.Empty(t, results)
}
