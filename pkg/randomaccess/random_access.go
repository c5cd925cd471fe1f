package randomaccess

import (
	"errors"
	"fmt"
	"io"
)

// RandomAccess provides Get(i) over a restartable forward-only sequence.
//
// Requests at or before the current cursor discard the underlying iterator
// and start over from the beginning, so a single access costs O(index) in the
// worst case. This is the intended tradeoff for sources that have no native
// random access, such as decoded video. Values passed over while advancing
// are dropped and the returned value is not retained.
//
// RandomAccess is not safe for concurrent use.
type RandomAccess[T any] struct {
	src  Iterable[T]
	it   Iterator[T]
	pos  int
	next int
}

// New wraps src.
func New[T any](src Iterable[T]) *RandomAccess[T] {
	return &RandomAccess[T]{src: src, pos: -1}
}

// Position returns the index of the last value produced by the underlying
// iterator, or -1 when no iterator is open.
func (r *RandomAccess[T]) Position() int {
	return r.pos
}

// Get returns the value at index. Exhausting the source closes the
// underlying iterator and returns io.EOF.
func (r *RandomAccess[T]) Get(index int) (T, error) {
	var zero T
	if index < 0 {
		return zero, fmt.Errorf("%w: %d", ErrNegativeIndex, index)
	}

	if r.it == nil || index <= r.pos {
		if err := r.Reset(); err != nil {
			return zero, err
		}
	}

	var v T
	for r.pos < index {
		item, err := r.it.Next()
		if err != nil {
			closeErr := r.Close()
			if errors.Is(err, io.EOF) {
				return zero, io.EOF
			}
			return zero, errors.Join(err, closeErr)
		}
		v = item
		r.pos++
	}
	r.next = index + 1
	return v, nil
}

// Next returns the value following the last one returned by Get or Next.
func (r *RandomAccess[T]) Next() (T, error) {
	return r.Get(r.next)
}

// Reset closes the current iterator and opens a fresh one at the start.
func (r *RandomAccess[T]) Reset() error {
	if err := r.Close(); err != nil {
		return err
	}
	it, err := r.src.Iterate()
	if err != nil {
		return fmt.Errorf("restart sequence: %w", err)
	}
	r.it = it
	return nil
}

// Close releases the underlying iterator. It is idempotent.
func (r *RandomAccess[T]) Close() error {
	r.pos = -1
	if r.it == nil {
		return nil
	}
	it := r.it
	r.it = nil
	return it.Close()
}
