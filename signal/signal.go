// Package signal provides the reactive primitives the windowing engine is
// built from: typed brokers that fan values out to context-scoped
// subscribers, duplicate suppression, and burst debouncing. Latest-value
// joins are done by the consumer holding the most recent value from each
// broker; there is no global scheduler.
package signal

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const subscriberBuffer = 64

// NewBroker creates a new broker for values of type T.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan T]struct{}),
	}
}

// Broker fans published values out to all subscribers and remembers the most
// recent value so late subscribers start from the current state.
type Broker[T any] struct {
	mu      sync.RWMutex
	subs    map[chan T]struct{}
	last    T
	hasLast bool
	done    bool
}

// Subscribe returns a channel that receives every value published after the
// call, preceded by the latest value if one exists. The channel is closed
// when ctx is done or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()
	ch := make(chan T, subscriberBuffer)
	if b.done {
		close(ch)
		b.mu.Unlock()
		return ch
	}
	if b.hasLast {
		ch <- b.last
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}()
	return ch
}

// Publish delivers v to all current subscribers. Subscribers that cannot
// keep up have the value dropped rather than blocking the publisher; the
// latest value is still observable via Latest.
func (b *Broker[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.last = v
	b.hasLast = true
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			slog.Warn("signal: dropping value for slow subscriber")
		}
	}
}

// Latest returns the most recently published value, if any.
func (b *Broker[T]) Latest() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.hasLast
}

// Shutdown closes all subscriber channels and makes the broker inert.
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.done = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Distinct forwards values from in to the returned broker, suppressing
// consecutive duplicates by ==. The forwarding goroutine stops when ctx is
// done.
func Distinct[T comparable](ctx context.Context, in *Broker[T]) *Broker[T] {
	return DistinctFunc(ctx, in, func(a, b T) bool { return a == b })
}

// DistinctFunc is Distinct with a caller-supplied equality function.
func DistinctFunc[T any](ctx context.Context, in *Broker[T], eq func(a, b T) bool) *Broker[T] {
	out := NewBroker[T]()
	ch := in.Subscribe(ctx)
	go func() {
		var prev T
		seen := false
		for v := range ch {
			if seen && eq(prev, v) {
				continue
			}
			prev, seen = v, true
			out.Publish(v)
		}
		out.Shutdown()
	}()
	return out
}

// Debouncer coalesces a burst of values into a single emission once the
// burst goes quiet. It is driven by the owner's select loop: Push arms it,
// C is the timer channel to select on, and Fire takes the pending value
// once the timer has fired.
//
// Every Push restarts the quiet period with the delay it carries, so the
// emission fires delay after the last push of a burst, not the first.
type Debouncer[T any] struct {
	timer   *time.Timer
	pending T
	armed   bool
}

// Push registers v for emission and restarts the quiet period. With a zero
// delay it returns v immediately for synchronous handling (any pending
// emission is replaced and cancelled). Otherwise v becomes the pending
// value, the timer is rearmed to fire delay from now, and the second result
// is false.
func (d *Debouncer[T]) Push(v T, delay time.Duration) (T, bool) {
	if delay <= 0 {
		d.Stop()
		return v, true
	}
	d.pending = v
	if d.timer == nil {
		d.timer = time.NewTimer(delay)
	} else {
		d.timer.Reset(delay)
	}
	d.armed = true
	return v, false
}

// C returns the timer channel to select on. It is nil while nothing is
// pending, which blocks that select case.
func (d *Debouncer[T]) C() <-chan time.Time {
	if !d.armed {
		return nil
	}
	return d.timer.C
}

// Fire returns the pending value after the timer has fired.
func (d *Debouncer[T]) Fire() (T, bool) {
	if !d.armed {
		var zero T
		return zero, false
	}
	d.armed = false
	return d.pending, true
}

// Stop cancels any pending emission.
func (d *Debouncer[T]) Stop() {
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
