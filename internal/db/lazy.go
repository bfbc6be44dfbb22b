package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/atinyakov/favkeeper/internal/models"
)

// ErrClosed is reported to callers waiting on a dial that Close overtook.
var ErrClosed = errors.New("store handle closed")

// ConnectFunc opens a store handle.
type ConnectFunc[T any] func(ctx context.Context) (T, error)

// CloseFunc releases a handle previously returned by a ConnectFunc.
type CloseFunc[T any] func(ctx context.Context, v T) error

// Lazy owns a single store handle that is established on first use and
// reused for the lifetime of the process.
//
// Concurrent first callers share one in-flight attempt: only the first one
// dials, the rest wait for its outcome or for their own context. A failed
// attempt is not memoised, so the next caller dials again.
type Lazy[T any] struct {
	connect ConnectFunc[T]
	close   CloseFunc[T]
	timeout time.Duration

	mu       sync.Mutex
	value    T
	ready    bool
	gen      uint64
	inflight *attempt[T]
}

type attempt[T any] struct {
	gen   uint64
	done  chan struct{}
	value T
	err   error
}

// NewLazy returns a Lazy that dials with connect, bounding every attempt by
// timeout when it is positive. closeFn may be nil.
func NewLazy[T any](connect ConnectFunc[T], closeFn CloseFunc[T], timeout time.Duration) *Lazy[T] {
	return &Lazy[T]{connect: connect, close: closeFn, timeout: timeout}
}

// Get returns the handle, establishing it if needed. Failures are reported
// as *models.ConnectionError.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	if l.ready {
		v := l.value
		l.mu.Unlock()
		return v, nil
	}
	if a := l.inflight; a != nil {
		l.mu.Unlock()
		return l.wait(ctx, a)
	}
	a := &attempt[T]{gen: l.gen, done: make(chan struct{})}
	l.inflight = a
	l.mu.Unlock()

	go l.dial(ctx, a)
	return l.wait(ctx, a)
}

// EnsureConnected establishes the handle if needed. It is safe to call
// before every operation.
func (l *Lazy[T]) EnsureConnected(ctx context.Context) error {
	_, err := l.Get(ctx)
	return err
}

// Close releases the handle if one was established. A dial still in
// flight is closed as soon as it completes and never published. A later
// Get dials again.
func (l *Lazy[T]) Close(ctx context.Context) error {
	l.mu.Lock()
	v, ready := l.value, l.ready
	var zero T
	l.value, l.ready = zero, false
	l.gen++
	l.inflight = nil
	l.mu.Unlock()

	if !ready || l.close == nil {
		return nil
	}
	return l.close(ctx, v)
}

// dial runs detached from the caller's cancellation so that one impatient
// caller does not fail the attempt for everybody waiting on it.
func (l *Lazy[T]) dial(parent context.Context, a *attempt[T]) {
	ctx := context.WithoutCancel(parent)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	v, err := l.connect(ctx)

	l.mu.Lock()
	stale := a.gen != l.gen
	if err == nil && !stale {
		l.value, l.ready = v, true
	}
	if l.inflight == a {
		l.inflight = nil
	}
	l.mu.Unlock()

	if err == nil && stale {
		if l.close != nil {
			_ = l.close(ctx, v)
		}
		var zero T
		v, err = zero, ErrClosed
	}
	a.value, a.err = v, err
	close(a.done)
}

func (l *Lazy[T]) wait(ctx context.Context, a *attempt[T]) (T, error) {
	var zero T
	select {
	case <-a.done:
		if a.err != nil {
			return zero, &models.ConnectionError{Err: a.err}
		}
		return a.value, nil
	case <-ctx.Done():
		return zero, &models.ConnectionError{Err: ctx.Err()}
	}
}
