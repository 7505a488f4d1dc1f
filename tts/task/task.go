// Package task provides cancellable units of background work with
// single-shot result delivery.
package task

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrCancelled is returned by task bodies that observe a cancellation
// request. Bodies must poll Handle.Cancelled at safe points; nothing is
// force-terminated.
var ErrCancelled = errors.New("task cancelled")

// Status tags the outcome of a task.
type Status int

const (
	// StatusOK indicates the task body returned a value.
	StatusOK Status = iota
	// StatusFailed indicates the task body returned an error or panicked.
	StatusFailed
	// StatusCancelled indicates the task body observed cancellation.
	StatusCancelled
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of a task. Exactly one Result is delivered
// per submitted task.
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Handle represents an in-flight task. It exposes a completion signal, the
// terminal result and a cooperative cancellation flag. Any number of
// goroutines may wait on the same handle; they all observe the one result.
type Handle[T any] struct {
	res       Result[T]
	done      chan struct{}
	cancelled atomic.Bool
}

// Submit runs body on its own goroutine and returns a handle to it. The
// task settles exactly once: the result is stored and Done is closed.
// Panics inside body are recovered at the task boundary and converted to
// StatusFailed.
func Submit[T any](body func(h *Handle[T]) (T, error)) *Handle[T] {
	h := &Handle[T]{done: make(chan struct{})}
	go func() {
		h.res = run(h, body)
		close(h.done)
	}()
	return h
}

func run[T any](h *Handle[T], body func(h *Handle[T]) (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Status: StatusFailed, Err: fmt.Errorf("task panic: %v", r)}
		}
	}()

	value, err := body(h)
	switch {
	case errors.Is(err, ErrCancelled):
		return Result[T]{Status: StatusCancelled, Err: err}
	case err != nil:
		return Result[T]{Status: StatusFailed, Err: err}
	default:
		return Result[T]{Status: StatusOK, Value: value}
	}
}

// Done returns a channel that is closed once the task has settled. After
// it closes, Wait returns without blocking.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task settles and returns its result.
func (h *Handle[T]) Wait() Result[T] {
	<-h.done
	return h.res
}

// Cancel requests cooperative cancellation. The task body decides when, and
// whether, to observe it.
func (h *Handle[T]) Cancel() {
	h.cancelled.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (h *Handle[T]) Cancelled() bool {
	return h.cancelled.Load()
}
