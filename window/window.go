// Package window turns a scroll position and a grid item extent into the
// index range that must stay resident around the viewport.
package window

import (
	"math"

	"github.com/charmbracelet/vgrid/geometry"
)

// Window is the buffered index range kept resident. Offset is row-aligned
// by construction and Length is twice the on-screen row capacity.
type Window struct {
	Offset int
	Length int
}

// End returns the exclusive end index of the window.
func (w Window) End() int { return w.Offset + w.Length }

// RowsInView returns how many item rows can intersect the viewport at once,
// including partially visible rows at both edges. A zero item height yields
// 0 rather than dividing.
func RowsInView(viewportHeight float64, ext geometry.ItemExtent) int {
	if ext.Height <= 0 {
		return 0
	}
	return int(math.Ceil((viewportHeight+ext.RowGap)/ext.Height)) + 1
}

// Calc computes the resident window for the given scroll distance. The
// window's length is twice the visible capacity and its offset is pulled
// back by half a window so the margin sits symmetrically around the
// viewport instead of only trailing it.
func Calc(distance, viewportHeight float64, ext geometry.ItemExtent) Window {
	rowsInView := RowsInView(viewportHeight, ext)
	windowLen := rowsInView * ext.Columns

	rowsBefore := 0
	if ext.Height > 0 && distance > 0 {
		rowsBefore = int(math.Floor((distance + ext.RowGap) / ext.Height))
	}

	return Window{
		Offset: max(rowsBefore*ext.Columns-windowLen/2, 0),
		Length: windowLen * 2,
	}
}

// ContentHeight returns the total scrollable pixel extent of the grid: full
// rows at item height minus the trailing row gap.
func ContentHeight(ext geometry.ItemExtent, total int) float64 {
	if ext.Columns <= 0 || total <= 0 {
		return 0
	}
	rows := math.Ceil(float64(total) / float64(ext.Columns))
	return max(ext.Height*rows-ext.RowGap, 0)
}

// ScrollTarget returns the scroll offset, on the nearest scrollable
// ancestor, that brings the row containing index to the top of the
// viewport.
func ScrollTarget(ext geometry.ItemExtent, index int, info geometry.ScrollInfo) float64 {
	if ext.Columns <= 0 || index < 0 {
		return 0
	}
	row := index / ext.Columns
	return float64(row)*ext.Height + info.PaddingTop + info.BorderTop + info.NestingOffset
}
