package cache

import (
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/hupe1980/gosmo/resource"
)

// ErrAllocation is returned when not even one row buffer can be reserved.
var ErrAllocation = errors.New("cache: cannot allocate kernel row buffer")

// nilSlot marks the absence of a slot in links and in the key index.
const nilSlot int32 = -1

// bytesPerValue is the size of one cached kernel value.
const bytesPerValue = 8

// RowSource computes kernel rows on a cache miss.
type RowSource interface {
	// ComputeRow writes the kernel values between sample key and the samples at
	// working positions [from, to) into dst[from:to].
	ComputeRow(key int, dst []float64, from, to int) error
}

// Config sizes a RowCache.
type Config struct {
	// Keys is the number of distinct keys (samples); keys are in [0, Keys).
	Keys int
	// Width is the maximal row length.
	Width int
	// Capacity is the number of resident rows. If 0, it is derived from Budget.
	Capacity int
	// Budget is the memory budget in bytes used when Capacity is 0.
	Budget int64
}

type slot struct {
	key   int
	prev  int32
	next  int32
	valid int // kernel values are valid for positions [0, valid)
	buf   []float64
}

type counters struct {
	hits   atomic.Int64
	_      cpu.CacheLinePad
	misses atomic.Int64
	_      cpu.CacheLinePad
}

// RowCache is a bounded LRU cache of kernel rows keyed by original sample index.
//
// Slots live in a fixed array and link to each other by index; row buffers
// are carved out of one backing slice and are reused on eviction, never
// reallocated. A RowCache must be used by one goroutine at a time; rows it
// returns stay valid until the next call to Get or SwapColumns.
type RowCache struct {
	src   RowSource
	rc    *resource.Controller
	width int

	slots  []slot
	slotOf []int32 // key -> slot
	free   []int32
	head   int32 // most recently used
	tail   int32 // least recently used

	reserved int64
	stats    counters
}

// New creates a RowCache and reserves its buffers with rc.
//
// If rc cannot supply every requested row the capacity shrinks to what was
// reserved; ErrAllocation is returned only if not a single row fits.
func New(cfg Config, src RowSource, rc *resource.Controller) (*RowCache, error) {
	if cfg.Keys <= 0 || cfg.Width <= 0 {
		return nil, fmt.Errorf("cache: invalid shape keys=%d width=%d", cfg.Keys, cfg.Width)
	}

	rowBytes := int64(cfg.Width) * bytesPerValue
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = int(cfg.Budget / rowBytes)
	}
	capacity = min(capacity, cfg.Keys)
	if capacity < 1 {
		return nil, fmt.Errorf("%w: budget %d bytes is below one row of %d bytes", ErrAllocation, cfg.Budget, rowBytes)
	}

	reserved := 0
	for reserved < capacity {
		if err := rc.TryAcquireMemory(rowBytes); err != nil {
			break
		}
		reserved++
	}
	if reserved == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, resource.ErrMemoryLimitExceeded)
	}
	capacity = reserved

	c := &RowCache{
		src:      src,
		rc:       rc,
		width:    cfg.Width,
		slots:    make([]slot, capacity),
		slotOf:   make([]int32, cfg.Keys),
		free:     make([]int32, 0, capacity),
		head:     nilSlot,
		tail:     nilSlot,
		reserved: int64(capacity) * rowBytes,
	}

	backing := make([]float64, capacity*cfg.Width)
	for s := range c.slots {
		c.slots[s] = slot{
			key:  -1,
			prev: nilSlot,
			next: nilSlot,
			buf:  backing[s*cfg.Width : (s+1)*cfg.Width : (s+1)*cfg.Width],
		}
	}
	for s := capacity - 1; s >= 0; s-- {
		c.free = append(c.free, int32(s))
	}
	for k := range c.slotOf {
		c.slotOf[k] = nilSlot
	}

	return c, nil
}

// Get returns the first length kernel values of row key, computing missing
// values through the RowSource.
func (c *RowCache) Get(key, length int) ([]float64, error) {
	if length > c.width {
		return nil, fmt.Errorf("cache: row length %d exceeds width %d", length, c.width)
	}

	s := c.slotOf[key]
	if s != nilSlot {
		c.stats.hits.Add(1)
		c.unlink(s)
		c.pushFront(s)
	} else {
		c.stats.misses.Add(1)
		s = c.acquire()
		c.slots[s].key = key
		c.slots[s].valid = 0
		c.slotOf[key] = s
		c.pushFront(s)
	}

	sl := &c.slots[s]
	if sl.valid < length {
		if err := c.src.ComputeRow(key, sl.buf, sl.valid, length); err != nil {
			c.release(s)
			return nil, err
		}
		sl.valid = length
	}
	return sl.buf[:length], nil
}

// SwapColumns keeps resident rows consistent after the samples at working
// positions i and j traded places.
func (c *RowCache) SwapColumns(i, j int) {
	if i == j {
		return
	}
	if i > j {
		i, j = j, i
	}
	for s := c.head; s != nilSlot; s = c.slots[s].next {
		sl := &c.slots[s]
		switch {
		case sl.valid > j:
			sl.buf[i], sl.buf[j] = sl.buf[j], sl.buf[i]
		case sl.valid > i:
			sl.valid = i
		}
	}
}

// contains reports whether row key is resident.
func (c *RowCache) contains(key int) bool {
	return c.slotOf[key] != nilSlot
}

// Len returns the number of resident rows.
func (c *RowCache) Len() int {
	return len(c.slots) - len(c.free)
}

// Capacity returns the fixed number of row buffers.
func (c *RowCache) Capacity() int {
	return len(c.slots)
}

// Stats returns cache statistics.
func (c *RowCache) Stats() (hits, misses int64) {
	return c.stats.hits.Load(), c.stats.misses.Load()
}

// Close releases the memory reservation. The cache must not be used afterwards.
func (c *RowCache) Close() error {
	c.rc.ReleaseMemory(c.reserved)
	c.reserved = 0
	return nil
}

// acquire returns an unlinked slot, evicting the least recently used row if
// the free pool is empty.
func (c *RowCache) acquire() int32 {
	if n := len(c.free); n > 0 {
		s := c.free[n-1]
		c.free = c.free[:n-1]
		return s
	}
	s := c.tail
	c.unlink(s)
	c.slotOf[c.slots[s].key] = nilSlot
	return s
}

// release drops the row in slot s and returns the buffer to the free pool.
func (c *RowCache) release(s int32) {
	c.unlink(s)
	c.slotOf[c.slots[s].key] = nilSlot
	c.slots[s].key = -1
	c.slots[s].valid = 0
	c.free = append(c.free, s)
}

func (c *RowCache) unlink(s int32) {
	sl := &c.slots[s]
	if sl.prev != nilSlot {
		c.slots[sl.prev].next = sl.next
	} else {
		c.head = sl.next
	}
	if sl.next != nilSlot {
		c.slots[sl.next].prev = sl.prev
	} else {
		c.tail = sl.prev
	}
	sl.prev, sl.next = nilSlot, nilSlot
}

func (c *RowCache) pushFront(s int32) {
	sl := &c.slots[s]
	sl.prev = nilSlot
	sl.next = c.head
	if c.head != nilSlot {
		c.slots[c.head].prev = s
	}
	c.head = s
	if c.tail == nilSlot {
		c.tail = s
	}
}
