// Package viewport tracks how far the grid container has been scrolled past
// the top of the visible viewport.
package viewport

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/vgrid/geometry"
	"github.com/charmbracelet/vgrid/signal"
)

// EventKind identifies the layout event that triggered a re-measurement.
type EventKind int

const (
	EventScroll EventKind = iota
	EventResize
)

// Event is a layout-affecting notification from the host.
type Event struct {
	Kind EventKind
}

// Tracker converts scroll and resize events into a stream of "distance
// scrolled past the container top" values, clamped to zero and with
// consecutive duplicates suppressed so downstream consumers never recompute
// for a no-op event.
type Tracker struct {
	probe  geometry.Probe
	raw    *signal.Broker[float64]
	out    *signal.Broker[float64]
	cancel context.CancelFunc
}

// NewTracker creates a tracker measuring through the given probe.
func NewTracker(probe geometry.Probe) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	raw := signal.NewBroker[float64]()
	return &Tracker{
		probe:  probe,
		raw:    raw,
		out:    signal.Distinct(ctx, raw),
		cancel: cancel,
	}
}

// Notify re-measures the scroll distance in response to a layout event and
// publishes it if it changed.
func (t *Tracker) Notify(ev Event) {
	d := max(t.probe.DistanceAboveViewport(), 0)
	slog.Debug("viewport: layout event", "kind", ev.Kind, "distance", d)
	t.raw.Publish(d)
}

// Distances returns the deduplicated distance stream.
func (t *Tracker) Distances(ctx context.Context) <-chan float64 {
	return t.out.Subscribe(ctx)
}

// Latest returns the most recent distance, if any event has been observed.
func (t *Tracker) Latest() (float64, bool) {
	return t.out.Latest()
}

// Close stops the tracker's forwarding.
func (t *Tracker) Close() {
	t.cancel()
}
