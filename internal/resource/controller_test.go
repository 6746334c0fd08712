package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(context.Background(), 50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	assert.True(t, c.TryAcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Limit would be exceeded.
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireMemory(ctx, 20), context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	assert.True(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_OversizedMemoryIsClamped(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(context.Background(), 1000))
	assert.False(t, c.TryAcquireMemory(1))
	c.ReleaseMemory(1000)
	assert.True(t, c.TryAcquireMemory(100))
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())
}

func TestController_Workers(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	require.NoError(t, c.AcquireWorker(t.Context()))
	require.NoError(t, c.AcquireWorker(t.Context()))
	assert.False(t, c.TryAcquireWorker())

	c.ReleaseWorker()
	assert.True(t, c.TryAcquireWorker())
}

func TestController_DefaultWorkers(t *testing.T) {
	c := NewController(Config{})
	assert.Positive(t, c.Config().MaxWorkers)
}

func TestController_RunBoundsConcurrency(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Run(context.Background(), 0, func(context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestController_RunPropagatesError(t *testing.T) {
	c := NewController(Config{MaxWorkers: 1, MemoryLimitBytes: 10})
	errBoom := errors.New("boom")

	err := c.Run(context.Background(), 5, func(context.Context) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)

	// Slots were returned.
	assert.True(t, c.TryAcquireWorker())
	assert.Zero(t, c.MemoryUsage())
}

func TestController_IO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1000})

	// Larger than the burst is split instead of failing.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, c.AcquireIO(ctx, 1500))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestController_Deletes(t *testing.T) {
	c := NewController(Config{DeletesPerSec: 0.5})

	require.NoError(t, c.AcquireDelete(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireDelete(ctx))
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireWorker(context.Background()))
	assert.True(t, c.TryAcquireWorker())
	c.ReleaseWorker()
	require.NoError(t, c.AcquireMemory(context.Background(), 100))
	assert.True(t, c.TryAcquireMemory(100))
	c.ReleaseMemory(100)
	require.NoError(t, c.AcquireIO(context.Background(), 100))
	require.NoError(t, c.AcquireDelete(context.Background()))
	assert.Zero(t, c.MemoryUsage())
	assert.Equal(t, Config{}, c.Config())

	called := false
	require.NoError(t, c.Run(context.Background(), 10, func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}
