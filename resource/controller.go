// Package resource implements a controller for memory and concurrency limits
// shared by training runs.
//
// Kernel-row caches reserve their buffers here before allocating them, so
// several trainings running side by side (for example the pairwise models of
// a multi-class classifier) stay within one memory budget:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:       512 << 20,
//	    MaxConcurrentTrainings: 4,
//	})
//
// All methods are safe for concurrent use and treat a nil *Controller as
// "unlimited".
package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the memory limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for managed memory.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxConcurrentTrainings is the maximum number of trainings holding a slot.
	// If 0, defaults to 1.
	MaxConcurrentTrainings int64
}

// Controller manages shared resources (memory, training slots).
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	slots *semaphore.Weighted
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentTrainings <= 0 {
		cfg.MaxConcurrentTrainings = 1
	}

	c := &Controller{
		cfg:   cfg,
		slots: semaphore.NewWeighted(cfg.MaxConcurrentTrainings),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	return c
}

// AcquireMemory reserves memory.
// If a hard limit is configured and usage would exceed it,
// this blocks until memory is available or ctx is canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves memory without blocking.
// Returns ErrMemoryLimitExceeded if the limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current reserved memory in bytes.
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

// AcquireTraining reserves a training slot.
// Blocks until a slot is free or ctx is canceled.
func (c *Controller) AcquireTraining(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.slots.Acquire(ctx, 1)
}

// TryAcquireTraining reserves a training slot without blocking.
func (c *Controller) TryAcquireTraining() bool {
	if c == nil {
		return true
	}
	return c.slots.TryAcquire(1)
}

// ReleaseTraining releases a training slot.
func (c *Controller) ReleaseTraining() {
	if c == nil {
		return
	}
	c.slots.Release(1)
}
