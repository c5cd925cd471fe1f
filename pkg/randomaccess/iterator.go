// Package randomaccess gives index-addressable access to forward-only lazy
// sequences, with an optional bounded cache on top.
package randomaccess

import (
	"errors"
	"io"
)

// ErrNegativeIndex is returned when Get is called with an index below zero.
var ErrNegativeIndex = errors.New("randomaccess: negative index")

// Iterator is a forward-only pull iterator. Next returns io.EOF when the
// sequence is exhausted. Close releases any resources held by the producer
// and is safe to call more than once.
type Iterator[T any] interface {
	Next() (T, error)
	Close() error
}

// Iterable produces a fresh Iterator positioned at the start of the
// sequence every time Iterate is called.
type Iterable[T any] interface {
	Iterate() (Iterator[T], error)
}

// IterableFunc adapts a function to the Iterable interface.
type IterableFunc[T any] func() (Iterator[T], error)

// Iterate calls f.
func (f IterableFunc[T]) Iterate() (Iterator[T], error) {
	return f()
}

// SliceIterator iterates over an in-memory slice.
type SliceIterator[T any] struct {
	items []T
	pos   int
}

// NewSliceIterator returns an iterator over items.
func NewSliceIterator[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items}
}

// Next returns the next item or io.EOF.
func (s *SliceIterator[T]) Next() (T, error) {
	var zero T
	if s.pos >= len(s.items) {
		return zero, io.EOF
	}
	v := s.items[s.pos]
	s.pos++
	return v, nil
}

// Close drops the slice reference.
func (s *SliceIterator[T]) Close() error {
	s.pos = len(s.items)
	return nil
}

// SliceIterable returns an Iterable that replays items on every Iterate call.
func SliceIterable[T any](items []T) Iterable[T] {
	return IterableFunc[T](func() (Iterator[T], error) {
		return NewSliceIterator(items), nil
	})
}

// FuncIterator adapts a next function and an optional close function to
// the Iterator interface. The close function runs at most once.
type FuncIterator[T any] struct {
	next   func() (T, error)
	close  func() error
	closed bool
}

// NewFuncIterator builds an Iterator from plain functions.
func NewFuncIterator[T any](next func() (T, error), closeFn func() error) *FuncIterator[T] {
	return &FuncIterator[T]{next: next, close: closeFn}
}

// Next calls the next function until the iterator is closed.
func (f *FuncIterator[T]) Next() (T, error) {
	var zero T
	if f.closed {
		return zero, io.EOF
	}
	return f.next()
}

// Close runs the close function once.
func (f *FuncIterator[T]) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.close != nil {
		return f.close()
	}
	return nil
}

// Collect drains it into a slice and closes it.
func Collect[T any](it Iterator[T]) ([]T, error) {
	defer it.Close()
	var out []T
	for {
		v, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}
