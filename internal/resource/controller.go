package resource

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxWorkers is the maximum number of concurrently running task operations.
	// If 0, defaults to GOMAXPROCS.
	MaxWorkers int64

	// MemoryLimitBytes bounds the memory operations may reserve.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// IOLimitBytesPerSec is the maximum write throughput of commits.
	// If 0, unlimited.
	IOLimitBytesPerSec int64

	// DeletesPerSec is the maximum rate of blob deletions issued by
	// recovery and garbage collection. If 0, unlimited.
	DeletesPerSec float64
}

// Controller manages shared limits (workers, memory, IO).
//
// A nil *Controller is valid and imposes no limits.
type Controller struct {
	cfg Config

	workers *semaphore.Weighted

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	ioLimiter     *rate.Limiter
	deleteLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = int64(runtime.GOMAXPROCS(0))
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	if cfg.DeletesPerSec > 0 {
		burst := int(cfg.DeletesPerSec)
		if burst < 1 {
			burst = 1
		}
		c.deleteLimiter = rate.NewLimiter(rate.Limit(cfg.DeletesPerSec), burst)
	}

	return c
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireWorker reserves a worker slot, blocking while all are busy.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker reserves a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireMemory reserves bytes, blocking until they are available.
// Requests larger than the limit are clamped to it.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, c.clamp(bytes)); err != nil {
			return err
		}
	}
	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves bytes without blocking.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.memSem != nil && !c.memSem.TryAcquire(c.clamp(bytes)) {
		return false
	}
	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(c.clamp(bytes))
	}
	c.memUsed.Add(-bytes)
}

func (c *Controller) clamp(bytes int64) int64 {
	if bytes > c.cfg.MemoryLimitBytes {
		return c.cfg.MemoryLimitBytes
	}
	return bytes
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// Run executes fn holding a worker slot and memBytes of memory.
func (c *Controller) Run(ctx context.Context, memBytes int64, fn func(ctx context.Context) error) error {
	if err := c.AcquireWorker(ctx); err != nil {
		return err
	}
	defer c.ReleaseWorker()

	if err := c.AcquireMemory(ctx, memBytes); err != nil {
		return err
	}
	defer c.ReleaseMemory(memBytes)

	return fn(ctx)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than the burst are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// AcquireDelete waits until the delete rate allows one more deletion.
func (c *Controller) AcquireDelete(ctx context.Context) error {
	if c == nil || c.deleteLimiter == nil {
		return nil
	}
	return c.deleteLimiter.Wait(ctx)
}
