// Package observe provides replay-latest observable values.
//
// A Value holds one current value and pushes every change to its
// subscribers. New subscribers receive the current value immediately.
// Subscriber channels are conflating: a reader that falls behind only
// ever sees the newest value, never a backlog.
package observe

import (
	"context"
	"sync"
)

// Observable is the read-only view of a Value.
type Observable[T any] interface {
	Get() T
	Subscribe(ctx context.Context) <-chan T
}

// Value is a concurrency-safe observable value.
type Value[T any] struct {
	mu     sync.Mutex
	v      T
	subs   map[chan T]struct{}
	closed bool
	done   chan struct{}
}

// NewValue returns a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		v:    initial,
		subs: make(map[chan T]struct{}),
		done: make(chan struct{}),
	}
}

func (o *Value[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

// Set stores x and pushes it to every subscriber. Set after Close only
// updates the stored value.
func (o *Value[T]) Set(x T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.v = x
	if o.closed {
		return
	}
	for ch := range o.subs {
		push(ch, x)
	}
}

// Subscribe returns a channel that first yields the current value and then
// every subsequent change. The channel is closed when ctx is done or the
// Value is closed.
func (o *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	o.mu.Lock()
	if o.closed {
		ch <- o.v
		close(ch)
		o.mu.Unlock()
		return ch
	}
	ch <- o.v
	o.subs[ch] = struct{}{}
	o.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			o.unsubscribe(ch)
		case <-o.done:
		}
	}()

	return ch
}

// Subscribers reports the number of live subscriptions.
func (o *Value[T]) Subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Close closes all subscriber channels. Further subscriptions receive the
// final value and are closed immediately.
func (o *Value[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.done)
	for ch := range o.subs {
		close(ch)
		delete(o.subs, ch)
	}
}

func (o *Value[T]) unsubscribe(ch chan T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.subs[ch]; !ok {
		return
	}
	delete(o.subs, ch)
	close(ch)
}

// push replaces whatever is buffered in ch with x. Callers hold the Value
// lock, so they are the only sender.
func push[T any](ch chan T, x T) {
	select {
	case <-ch:
	default:
	}
	ch <- x
}

// Map derives a stream by applying fn to every value read from in. The
// returned channel is conflating and closes when in closes or ctx is done.
func Map[T, U any](ctx context.Context, in <-chan T, fn func(T) U) <-chan U {
	out := make(chan U, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case <-out:
				default:
				}
				out <- fn(v)
			}
		}
	}()
	return out
}

// Filter returns the elements of items for which keep reports true.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
