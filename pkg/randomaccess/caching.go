package randomaccess

import (
	"image"
	"sort"
)

// Sized is implemented by values that report their own memory footprint.
type Sized interface {
	MemorySize() int64
}

// Options bounds a Caching sequence.
type Options[T any] struct {
	// MaxMemory is the byte budget for cached values.
	MaxMemory int64

	// MaxEntries is the maximum number of cached values.
	MaxEntries int

	// SizeFunc reports a value's size. When nil, DefaultSize is used.
	SizeFunc func(T) int64
}

type cacheItem[T any] struct {
	value T
	size  int64
}

// Caching is a RandomAccess with a bounded cache keyed by index.
//
// When a new value does not fit, entries are evicted starting with the
// numerically smallest index. For monotonically increasing access this drops
// the oldest entries first; for other patterns it is not LRU. A value larger
// than the whole byte budget is returned but never cached.
//
// Caching is not safe for concurrent use.
type Caching[T any] struct {
	base       *RandomAccess[T]
	maxMemory  int64
	maxEntries int
	sizeOf     func(T) int64

	entries map[int]cacheItem[T]
	used    int64
	next    int
}

// NewCaching wraps src with a cache bounded by opts.
func NewCaching[T any](src Iterable[T], opts Options[T]) *Caching[T] {
	sizeOf := opts.SizeFunc
	if sizeOf == nil {
		sizeOf = func(v T) int64 { return DefaultSize(v) }
	}
	return &Caching[T]{
		base:       New(src),
		maxMemory:  opts.MaxMemory,
		maxEntries: opts.MaxEntries,
		sizeOf:     sizeOf,
		entries:    make(map[int]cacheItem[T]),
	}
}

// Get returns the value at index, from the cache when present.
func (c *Caching[T]) Get(index int) (T, error) {
	if item, ok := c.entries[index]; ok {
		c.next = index + 1
		return item.value, nil
	}

	v, err := c.base.Get(index)
	if err != nil {
		return v, err
	}
	c.next = index + 1

	size := c.sizeOf(v)
	for len(c.entries) > 0 &&
		(len(c.entries)+1 > c.maxEntries || c.used+size > c.maxMemory) {
		c.evictSmallest()
	}
	if len(c.entries)+1 <= c.maxEntries && c.used+size <= c.maxMemory {
		c.entries[index] = cacheItem[T]{value: v, size: size}
		c.used += size
	}
	return v, nil
}

// Next returns the value following the last one returned by Get or Next.
func (c *Caching[T]) Next() (T, error) {
	return c.Get(c.next)
}

func (c *Caching[T]) evictSmallest() {
	first := true
	var minKey int
	for k := range c.entries {
		if first || k < minKey {
			minKey = k
			first = false
		}
	}
	c.used -= c.entries[minKey].size
	delete(c.entries, minKey)
}

// UsedMemory returns the summed size of cached values.
func (c *Caching[T]) UsedMemory() int64 {
	return c.used
}

// Len returns the number of cached values.
func (c *Caching[T]) Len() int {
	return len(c.entries)
}

// Cached returns the cached indices in ascending order.
func (c *Caching[T]) Cached() []int {
	keys := make([]int, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Close releases the underlying iterator. Cached values stay available.
func (c *Caching[T]) Close() error {
	return c.base.Close()
}

// DefaultSize estimates the memory held by common frame payloads.
func DefaultSize(v any) int64 {
	switch x := v.(type) {
	case Sized:
		return x.MemorySize()
	case []byte:
		return int64(len(x))
	case string:
		return int64(len(x))
	case *image.RGBA:
		return int64(len(x.Pix))
	case *image.NRGBA:
		return int64(len(x.Pix))
	case *image.Gray:
		return int64(len(x.Pix))
	case *image.Gray16:
		return int64(len(x.Pix))
	case *image.RGBA64:
		return int64(len(x.Pix))
	case *image.NRGBA64:
		return int64(len(x.Pix))
	case *image.YCbCr:
		return int64(len(x.Y) + len(x.Cb) + len(x.Cr))
	case image.Image:
		b := x.Bounds()
		return int64(b.Dx()) * int64(b.Dy()) * 4
	}
	return 0
}
