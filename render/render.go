// Package render projects the resident window onto positioned render slots
// and recycles slot handles across frames so the host can reuse its render
// objects instead of recreating them on every scroll.
package render

import (
	"github.com/charmbracelet/vgrid/geometry"
	"github.com/charmbracelet/vgrid/pager"
	"github.com/charmbracelet/vgrid/window"
)

// Handle is a stable identifier for a render slot. A handle stays attached
// to the same content across frames while that content remains visible, and
// is recycled onto new content when its old content scrolls away.
type Handle uint64

// Slot is one renderable grid cell. Known is false for holes: cells whose
// page has not arrived or that lie beyond the collection. Holes still carry
// a valid layout position so the grid cell stays reserved.
type Slot[T comparable] struct {
	Handle Handle
	Index  int
	Value  T
	Known  bool
	X, Y   float64
}

// content is a slot minus its handle, the unit of equality for recycling.
type content[T comparable] struct {
	index int
	value T
	known bool
	x, y  float64
}

func contentOf[T comparable](s Slot[T]) content[T] {
	return content[T]{index: s.Index, value: s.Value, known: s.Known, x: s.X, y: s.Y}
}

// Project maps the window's index range onto slots with concrete layout
// positions. Indices beyond the collection yield holes. Handles are zero;
// the recycler assigns them.
func Project[T comparable](w window.Window, ext geometry.ItemExtent, c *pager.Collection[T]) []Slot[T] {
	if ext.Columns <= 0 || w.Length <= 0 {
		return nil
	}
	out := make([]Slot[T], 0, w.Length)
	for i := w.Offset; i < w.End(); i++ {
		v, known := c.At(i)
		out = append(out, Slot[T]{
			Index: i,
			Value: v,
			Known: known,
			X:     float64(i%ext.Columns) * ext.Width,
			Y:     float64(i/ext.Columns) * ext.Height,
		})
	}
	return out
}

// Recycler diffs each new projection against the previous buffer and
// assigns handles: slots whose content is unchanged keep their handle,
// freed handles are reassigned positionally to newly added slots, and any
// remaining additions get fresh handles. Single writer; the buffer is
// mutated only here.
type Recycler[T comparable] struct {
	prev    []Slot[T]
	counter uint64
	reused  uint64
	issued  uint64
}

// NewRecycler creates an empty recycler.
func NewRecycler[T comparable]() *Recycler[T] {
	return &Recycler[T]{}
}

// Update produces the next buffer from a new projection. The result has
// exactly the projection's slots: surviving slots keep their previous
// buffer position and handle, replacements take over the freed slot's
// position and handle, and leftover additions are appended in projection
// order.
func (r *Recycler[T]) Update(next []Slot[T]) []Slot[T] {
	prevByContent := make(map[content[T]][]int, len(r.prev))
	for i, s := range r.prev {
		k := contentOf(s)
		prevByContent[k] = append(prevByContent[k], i)
	}

	matchFor := make(map[int]int, len(next)) // prev index -> next index
	newMatched := make([]bool, len(next))
	for j, s := range next {
		k := contentOf(s)
		if idxs := prevByContent[k]; len(idxs) > 0 {
			matchFor[idxs[0]] = j
			newMatched[j] = true
			prevByContent[k] = idxs[1:]
		}
	}

	var adds []int
	for j := range next {
		if !newMatched[j] {
			adds = append(adds, j)
		}
	}

	out := make([]Slot[T], 0, len(next))
	ai := 0
	for i, prev := range r.prev {
		if j, ok := matchFor[i]; ok {
			s := next[j]
			s.Handle = prev.Handle
			r.reused++
			out = append(out, s)
			continue
		}
		if ai < len(adds) {
			s := next[adds[ai]]
			s.Handle = prev.Handle // recycle the freed slot
			r.reused++
			ai++
			out = append(out, s)
		}
		// Freed slot with no replacement: handle retired.
	}
	for ; ai < len(adds); ai++ {
		s := next[adds[ai]]
		r.counter++
		r.issued++
		s.Handle = Handle(r.counter)
		out = append(out, s)
	}

	r.prev = out
	return out
}

// Buffer returns the current buffer.
func (r *Recycler[T]) Buffer() []Slot[T] { return r.prev }

// Reused reports how many slot handles have been carried across frames.
func (r *Recycler[T]) Reused() uint64 { return r.reused }

// Issued reports how many fresh handles have been created.
func (r *Recycler[T]) Issued() uint64 { return r.issued }
