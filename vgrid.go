// Package vgrid is the windowing engine behind a virtualized grid: it turns
// scroll, resize, and data availability signals into a minimal set of page
// fetches and a position-stable buffer of renderable slots.
//
// The engine owns a single dataflow goroutine. Inputs arrive as signal
// publications (setters and layout notifications), page fetches are the
// only concurrent operations, and all state folds (the item collection, the
// render buffer) have exactly one writer: the engine loop.
package vgrid

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/vgrid/geometry"
	"github.com/charmbracelet/vgrid/pager"
	"github.com/charmbracelet/vgrid/render"
	"github.com/charmbracelet/vgrid/signal"
	"github.com/charmbracelet/vgrid/viewport"
	"github.com/charmbracelet/vgrid/window"
)

// ScrollAction asks the host to scroll the nearest scrollable ancestor so
// the requested index's row reaches the top of the viewport. Emitted once
// per ScrollToIndex request.
type ScrollAction struct {
	Index int
	Top   float64
}

// Stats is a snapshot of the engine's counters.
type Stats struct {
	PagesResolved uint64
	FetchesIssued uint64
	SlotsReused   uint64
	HandlesIssued uint64
	DedupVersion  uint64
}

// layoutState is one geometry measurement: the per-item extent plus the
// viewport height it was measured against.
type layoutState struct {
	ext      geometry.ItemExtent
	viewport float64
}

type config struct {
	total    int
	pageSize int
	debounce time.Duration
}

// Option configures an Engine at construction.
type Option func(*config)

// WithTotal sets the initial total item count.
func WithTotal(total int) Option {
	return func(c *config) { c.total = total }
}

// WithPageSize sets the initial page size.
func WithPageSize(size int) Option {
	return func(c *config) { c.pageSize = size }
}

// WithDebounce sets the initial debounce applied to page resolution. Zero
// resolves synchronously.
func WithDebounce(d time.Duration) Option {
	return func(c *config) { c.debounce = d }
}

// Engine is the reactive windowing core. Create one with New, drive it with
// the Notify/Set methods, and consume the Buffers, Heights, and
// ScrollActions streams.
type Engine[T comparable] struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	probe    geometry.Probe
	tracker  *viewport.Tracker
	resolver *pager.Resolver
	fetcher  *pager.Fetcher[T]

	totals    *signal.Broker[int]
	pageSizes *signal.Broker[int]
	debounces *signal.Broker[time.Duration]
	sources   *signal.Broker[pager.Source[T]]
	layouts   *signal.Broker[layoutState]
	scrollReq *signal.Broker[int]

	buffers *signal.Broker[[]render.Slot[T]]
	heights *signal.Broker[float64]
	scrolls *signal.Broker[ScrollAction]

	pagesResolved atomic.Uint64
	fetchesIssued atomic.Uint64
	slotsReused   atomic.Uint64
	handlesIssued atomic.Uint64
}

// New creates an engine measuring layout through probe and fetching pages
// from source. The engine runs until Close.
func New[T comparable](probe geometry.Probe, source pager.Source[T], opts ...Option) *Engine[T] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine[T]{
		ctx:       ctx,
		cancel:    cancel,
		probe:     probe,
		tracker:   viewport.NewTracker(probe),
		resolver:  pager.NewResolver(),
		fetcher:   pager.NewFetcher(source),
		totals:    signal.NewBroker[int](),
		pageSizes: signal.NewBroker[int](),
		debounces: signal.NewBroker[time.Duration](),
		sources:   signal.NewBroker[pager.Source[T]](),
		layouts:   signal.NewBroker[layoutState](),
		scrollReq: signal.NewBroker[int](),
		buffers:   signal.NewBroker[[]render.Slot[T]](),
		heights:   signal.NewBroker[float64](),
		scrolls:   signal.NewBroker[ScrollAction](),
	}

	loop := &engineLoop[T]{
		e:        e,
		total:    cfg.total,
		pageSize: cfg.pageSize,
		debounce: cfg.debounce,
		recycler: render.NewRecycler[T](),
	}
	loop.collection.Resize(cfg.total)

	e.wg.Go(func() { loop.run(ctx) })
	return e
}

// NotifyScroll tells the engine the scroll position may have changed.
func (e *Engine[T]) NotifyScroll() {
	e.tracker.Notify(viewport.Event{Kind: viewport.EventScroll})
}

// NotifyResize tells the engine the container or viewport geometry may have
// changed. It re-measures the grid layout and the scroll position.
func (e *Engine[T]) NotifyResize() {
	e.measure()
	e.tracker.Notify(viewport.Event{Kind: viewport.EventResize})
}

func (e *Engine[T]) measure() {
	e.layouts.Publish(layoutState{
		ext:      geometry.MeasureExtent(e.probe),
		viewport: e.probe.ViewportHeight(),
	})
}

// SetTotal updates the total item count.
func (e *Engine[T]) SetTotal(total int) { e.totals.Publish(total) }

// SetPageSize updates the page size. Changing it resets fetch dedup: the
// next resolution may re-request pages under the new size.
func (e *Engine[T]) SetPageSize(size int) { e.pageSizes.Publish(size) }

// SetDebounce updates the delay applied to page resolution. A pending
// resolution keeps the schedule it was armed with.
func (e *Engine[T]) SetDebounce(d time.Duration) { e.debounces.Publish(d) }

// SetSource swaps the page source. The item collection is rebuilt from
// scratch and fetch dedup resets.
func (e *Engine[T]) SetSource(source pager.Source[T]) { e.sources.Publish(source) }

// ScrollToIndex requests a one-shot scroll action for the given index. The
// action fires once a geometry snapshot is available, immediately if one
// already is.
func (e *Engine[T]) ScrollToIndex(index int) { e.scrollReq.Publish(index) }

// Buffers returns the render buffer stream, re-emitted on every recompute.
func (e *Engine[T]) Buffers(ctx context.Context) <-chan []render.Slot[T] {
	return e.buffers.Subscribe(ctx)
}

// Heights returns the total scrollable content height stream, deduplicated.
func (e *Engine[T]) Heights(ctx context.Context) <-chan float64 {
	return e.heights.Subscribe(ctx)
}

// ScrollActions returns the stream of scroll-to-index results.
func (e *Engine[T]) ScrollActions(ctx context.Context) <-chan ScrollAction {
	return e.scrolls.Subscribe(ctx)
}

// Failures returns the stream of page fetch failures.
func (e *Engine[T]) Failures(ctx context.Context) <-chan pager.FetchError {
	return e.fetcher.Failures(ctx)
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine[T]) Stats() Stats {
	return Stats{
		PagesResolved: e.pagesResolved.Load(),
		FetchesIssued: e.fetchesIssued.Load(),
		SlotsReused:   e.slotsReused.Load(),
		HandlesIssued: e.handlesIssued.Load(),
		DedupVersion:  e.resolver.Version(),
	}
}

// Close stops the engine and tears down all streams.
func (e *Engine[T]) Close() {
	e.cancel()
	e.wg.Wait()
	e.tracker.Close()
	e.fetcher.Shutdown()
	for _, shutdown := range []func(){
		e.totals.Shutdown, e.pageSizes.Shutdown, e.debounces.Shutdown,
		e.sources.Shutdown, e.layouts.Shutdown, e.scrollReq.Shutdown,
		e.buffers.Shutdown, e.heights.Shutdown, e.scrolls.Shutdown,
	} {
		shutdown()
	}
}

// engineLoop is the single dataflow goroutine's state. Everything here has
// exactly one writer: run.
type engineLoop[T comparable] struct {
	e *Engine[T]

	distance  float64
	layout    layoutState
	hasLayout bool
	total     int
	pageSize  int
	debounce  time.Duration

	win        window.Window
	hasWin     bool
	collection pager.Collection[T]
	recycler   *render.Recycler[T]
	debouncer  signal.Debouncer[window.Window]

	lastHeight    float64
	hasHeight     bool
	queuedScrolls []int
}

func (l *engineLoop[T]) run(ctx context.Context) {
	e := l.e
	distances := e.tracker.Distances(ctx)
	layouts := e.layouts.Subscribe(ctx)
	totals := e.totals.Subscribe(ctx)
	pageSizes := e.pageSizes.Subscribe(ctx)
	debounces := e.debounces.Subscribe(ctx)
	sources := e.sources.Subscribe(ctx)
	scrollReqs := e.scrollReq.Subscribe(ctx)
	pages := e.fetcher.Pages(ctx)

	defer l.debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-distances:
			if !ok {
				return
			}
			l.distance = d
			l.recompute()
		case ls, ok := <-layouts:
			if !ok {
				return
			}
			l.layout = ls
			l.hasLayout = true
			l.publishHeight()
			l.recompute()
			l.flushScrolls()
		case t, ok := <-totals:
			if !ok {
				return
			}
			l.total = t
			l.collection.Resize(t)
			l.publishHeight()
			l.publishBuffer()
			// Pages previously clamped away by a smaller total may now be
			// coverable.
			l.scheduleResolve()
		case s, ok := <-pageSizes:
			if !ok {
				return
			}
			if s == l.pageSize {
				continue
			}
			l.pageSize = s
			e.resolver.Reset()
			l.resolveNow()
		case d, ok := <-debounces:
			if !ok {
				return
			}
			l.debounce = d
		case src, ok := <-sources:
			if !ok {
				return
			}
			e.fetcher.SetSource(src)
			e.resolver.Reset()
			l.collection.Clear()
			l.collection.Resize(l.total)
			l.resolveNow()
			l.publishBuffer()
		case idx, ok := <-scrollReqs:
			if !ok {
				return
			}
			l.queuedScrolls = append(l.queuedScrolls, idx)
			l.flushScrolls()
		case p, ok := <-pages:
			if !ok {
				return
			}
			l.collection.Apply(p, l.total, l.pageSize)
			l.publishBuffer()
		case <-l.debouncer.C():
			if w, ok := l.debouncer.Fire(); ok {
				l.resolve(w)
			}
		}
	}
}

// recompute re-derives the resident window from the latest distance and
// layout, and on change republishes the buffer and schedules page
// resolution.
func (l *engineLoop[T]) recompute() {
	if !l.hasLayout {
		return
	}
	w := window.Calc(l.distance, l.layout.viewport, l.layout.ext)
	if l.hasWin && w == l.win {
		return
	}
	l.win = w
	l.hasWin = true
	l.publishBuffer()
	l.scheduleResolve()
}

// scheduleResolve hands the current window to the debouncer; with a zero
// debounce it resolves synchronously.
func (l *engineLoop[T]) scheduleResolve() {
	if !l.hasWin {
		return
	}
	if w, now := l.debouncer.Push(l.win, l.debounce); now {
		l.resolve(w)
	}
}

// resolveNow bypasses the debounce, resolving the current window
// immediately. Used for epoch resets, where waiting would leave the new
// epoch unpopulated.
func (l *engineLoop[T]) resolveNow() {
	l.debouncer.Stop()
	if l.hasWin {
		l.resolve(l.win)
	}
}

func (l *engineLoop[T]) resolve(w window.Window) {
	numbers := l.e.resolver.Resolve(w, l.total, l.pageSize)
	if len(numbers) == 0 {
		return
	}
	l.e.pagesResolved.Add(uint64(len(numbers)))
	l.e.fetchesIssued.Add(1)
	slog.Debug("vgrid: fetching pages", "pages", numbers, "pageSize", l.pageSize, "epoch", l.e.resolver.Epoch())
	l.e.fetcher.Fetch(l.e.ctx, l.pageSize, numbers...)
}

func (l *engineLoop[T]) publishBuffer() {
	if !l.hasWin || !l.hasLayout {
		return
	}
	next := render.Project(l.win, l.layout.ext, &l.collection)
	buf := l.recycler.Update(next)
	l.e.slotsReused.Store(l.recycler.Reused())
	l.e.handlesIssued.Store(l.recycler.Issued())
	out := make([]render.Slot[T], len(buf))
	copy(out, buf)
	l.e.buffers.Publish(out)
}

func (l *engineLoop[T]) publishHeight() {
	if !l.hasLayout {
		return
	}
	h := window.ContentHeight(l.layout.ext, l.total)
	if l.hasHeight && h == l.lastHeight {
		return
	}
	l.lastHeight = h
	l.hasHeight = true
	l.e.heights.Publish(h)
}

// flushScrolls emits queued scroll-to requests once a geometry snapshot
// exists. Requests arriving before the first measurement wait here.
func (l *engineLoop[T]) flushScrolls() {
	if !l.hasLayout {
		return
	}
	for _, idx := range l.queuedScrolls {
		top := window.ScrollTarget(l.layout.ext, idx, l.e.probe.ScrollInfo())
		l.e.scrolls.Publish(ScrollAction{Index: idx, Top: top})
	}
	l.queuedScrolls = l.queuedScrolls[:0]
}
