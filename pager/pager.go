// Package pager resolves resident index ranges into page fetches and folds
// the fetched pages back into a single hole-preserving item collection.
package pager

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/charmbracelet/vgrid/internal/csync"
	"github.com/charmbracelet/vgrid/signal"
	"github.com/charmbracelet/vgrid/window"
)

// Source provides one page of items at a time. Implementations must be
// safe for concurrent calls with distinct page numbers.
type Source[T any] interface {
	Page(ctx context.Context, number, size int) ([]T, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[T any] func(ctx context.Context, number, size int) ([]T, error)

// Page implements Source.
func (f SourceFunc[T]) Page(ctx context.Context, number, size int) ([]T, error) {
	return f(ctx, number, size)
}

// Page is one fetched page. Size records the page size the fetch was issued
// with; immutable once produced.
type Page[T any] struct {
	Number int
	Size   int
	Items  []T
}

// FetchError reports a failed page fetch. Other pages are unaffected.
type FetchError struct {
	Number int
	Err    error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("pager: fetch page %d: %v", e.Number, e.Err)
}

func (e FetchError) Unwrap() error { return e.Err }

// PagesFor returns the page numbers covering the window, clamped to total:
// every integer in [floor(offset/pageSize), ceil(min(end,total)/pageSize)).
// The sequence is lazy and carries no dedup state.
func PagesFor(w window.Window, total, pageSize int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if pageSize <= 0 || total <= 0 {
			return
		}
		start := w.Offset / pageSize
		end := int(math.Ceil(float64(min(w.End(), total)) / float64(pageSize)))
		for p := start; p < end; p++ {
			if !yield(p) {
				return
			}
		}
	}
}

// Resolver deduplicates page fetches within an epoch: once a page number
// has been resolved it is suppressed until Reset, so each page is fetched
// at most once per (pageSize, source) epoch.
type Resolver struct {
	epoch atomic.Pointer[string]
	seen  *csync.VersionedMap[int, struct{}]
}

// NewResolver creates a resolver with a fresh epoch.
func NewResolver() *Resolver {
	r := &Resolver{
		seen: csync.NewVersionedMap[int, struct{}](),
	}
	e := uuid.NewString()
	r.epoch.Store(&e)
	return r
}

// Resolve returns the window's page numbers not yet resolved in the current
// epoch, marking them resolved. The result preserves ascending page order.
func (r *Resolver) Resolve(w window.Window, total, pageSize int) []int {
	var out []int
	for p := range PagesFor(w, total, pageSize) {
		if r.seen.SetIfAbsent(p, struct{}{}) {
			out = append(out, p)
		}
	}
	return out
}

// Reset starts a new epoch, forgetting every resolved page. Call it when
// the page size or the page source changes.
func (r *Resolver) Reset() {
	e := uuid.NewString()
	r.epoch.Store(&e)
	r.seen.Clear()
}

// Epoch identifies the current dedup epoch.
func (r *Resolver) Epoch() string {
	return *r.epoch.Load()
}

// Version counts mutations to the dedup set. It advances with every page
// marked and every reset, so callers can detect dedup activity without
// tracking individual pages.
func (r *Resolver) Version() uint64 {
	return r.seen.Version()
}

// Fetcher invokes the source once per requested page and publishes results
// on a shared stream, so any number of consumers observe the same fetch
// without re-invoking the source. Fetches for distinct pages run
// concurrently with no completion-order guarantee.
type Fetcher[T any] struct {
	mu       sync.RWMutex
	source   Source[T]
	pages    *signal.Broker[Page[T]]
	failures *signal.Broker[FetchError]
}

// NewFetcher creates a fetcher over the given source.
func NewFetcher[T any](source Source[T]) *Fetcher[T] {
	return &Fetcher[T]{
		source:   source,
		pages:    signal.NewBroker[Page[T]](),
		failures: signal.NewBroker[FetchError](),
	}
}

// SetSource swaps the page source. In-flight fetches keep the source they
// started with; they are not cancelled.
func (f *Fetcher[T]) SetSource(source Source[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = source
}

// Fetch requests the given pages concurrently. Each success is published on
// the shared page stream; each failure is published on the failure stream
// and logged, without disturbing the other pages.
func (f *Fetcher[T]) Fetch(ctx context.Context, size int, numbers ...int) {
	if len(numbers) == 0 {
		return
	}
	f.mu.RLock()
	source := f.source
	f.mu.RUnlock()
	if source == nil {
		return
	}

	var eg errgroup.Group
	for _, n := range numbers {
		eg.Go(func() error {
			items, err := source.Page(ctx, n, size)
			if err != nil {
				f.failures.Publish(FetchError{Number: n, Err: err})
				return FetchError{Number: n, Err: err}
			}
			f.pages.Publish(Page[T]{Number: n, Size: size, Items: items})
			return nil
		})
	}
	go func() {
		if err := eg.Wait(); err != nil {
			slog.Warn("pager: fetch round finished with failures", "error", err)
		}
	}()
}

// Pages returns the shared stream of fetched pages.
func (f *Fetcher[T]) Pages(ctx context.Context) <-chan Page[T] {
	return f.pages.Subscribe(ctx)
}

// Failures returns the stream of fetch failures.
func (f *Fetcher[T]) Failures(ctx context.Context) <-chan FetchError {
	return f.failures.Subscribe(ctx)
}

// Shutdown closes the fetcher's streams.
func (f *Fetcher[T]) Shutdown() {
	f.pages.Shutdown()
	f.failures.Shutdown()
}
