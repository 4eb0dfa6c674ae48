// Package geometry measures the grid layout the engine windows over. All
// layout access goes through the narrow Probe interface so the windowing
// math stays free of any real layout engine and can be tested with
// synthetic measurements.
package geometry

import (
	"strconv"
	"strings"
)

// Probe is the layout measurement surface injected into the engine. A real
// implementation queries the host's layout system; tests supply fixed
// values.
type Probe interface {
	// TemplateColumns returns the resolved grid template column list, one
	// track per whitespace-separated entry (e.g. "120px 120px 120px").
	TemplateColumns() string
	// RowGap and ColumnGap return the computed gap values (e.g. "10px").
	RowGap() string
	ColumnGap() string
	// ItemBox returns the bounding box of a single rendered item in pixels.
	ItemBox() (width, height float64)
	// ViewportHeight returns the visible height of the scroll viewport.
	ViewportHeight() float64
	// DistanceAboveViewport returns how far the grid container's top sits
	// above the viewport's visible top, in pixels. Negative when the
	// container top is still below the viewport top.
	DistanceAboveViewport() float64
	// ScrollInfo returns the offsets needed to translate a row position
	// into a scroll offset on the nearest scrollable ancestor.
	ScrollInfo() ScrollInfo
}

// Geometry is the grid's current layout constants. Always derived from a
// fresh measurement, never mutated in place.
type Geometry struct {
	Columns int
	RowGap  float64
	ColGap  float64
}

// ItemExtent combines grid geometry with the measured size of a single
// item. Width and Height include the respective gap.
type ItemExtent struct {
	Width   float64
	Height  float64
	RowGap  float64
	Columns int
}

// ScrollInfo carries the pixel offsets between the grid container and its
// nearest scrollable ancestor.
type ScrollInfo struct {
	PaddingTop float64
	BorderTop  float64
	// NestingOffset is the container top's distance from the scroll
	// ancestor's content top.
	NestingOffset float64
}

// Measure derives the current grid geometry from the probe. It is a pure
// function of the probe's current state and is recomputed, not cached, on
// every call.
func Measure(p Probe) Geometry {
	return Geometry{
		Columns: trackCount(p.TemplateColumns()),
		RowGap:  ParsePx(p.RowGap()),
		ColGap:  ParsePx(p.ColumnGap()),
	}
}

// MeasureExtent derives the per-item extent from the probe's geometry and
// item box.
func MeasureExtent(p Probe) ItemExtent {
	g := Measure(p)
	w, h := p.ItemBox()
	return ExtentOf(g, w, h)
}

// ExtentOf combines a geometry with a raw item box size.
func ExtentOf(g Geometry, itemWidth, itemHeight float64) ItemExtent {
	return ItemExtent{
		Width:   itemWidth + g.ColGap,
		Height:  itemHeight + g.RowGap,
		RowGap:  g.RowGap,
		Columns: g.Columns,
	}
}

// trackCount counts the tracks in a resolved template column list.
func trackCount(tpl string) int {
	tpl = strings.TrimSpace(tpl)
	if tpl == "" || tpl == "none" {
		return 0
	}
	return len(strings.Fields(tpl))
}

// ParsePx parses a computed pixel value like "10px" or "10". Anything
// unparseable degrades to 0 so a missing or exotic gap never poisons the
// downstream math.
func ParsePx(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
