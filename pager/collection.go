package pager

// Cell is one slot of the logical item collection: either a known value or
// a hole whose page has not arrived.
type Cell[T any] struct {
	Value T
	Known bool
}

// Collection is the logical ordered sequence of all known items, padded
// with holes up to the current total length. It has a single writer: the
// Apply fold.
type Collection[T any] struct {
	cells []Cell[T]
}

// Len returns the current logical length.
func (c *Collection[T]) Len() int { return len(c.cells) }

// At returns the value at index i, reporting false for holes and
// out-of-range indices.
func (c *Collection[T]) At(i int) (T, bool) {
	if i < 0 || i >= len(c.cells) {
		var zero T
		return zero, false
	}
	cell := c.cells[i]
	return cell.Value, cell.Known
}

// Known reports how many cells hold a fetched value.
func (c *Collection[T]) Known() int {
	n := 0
	for _, cell := range c.cells {
		if cell.Known {
			n++
		}
	}
	return n
}

// Apply folds a fetched page into the collection. The page's items are
// padded or truncated to exactly pageSize, written over the page-aligned
// slice at Number*pageSize, and the whole collection is then padded or
// truncated to total. Each page only ever touches its own aligned slice, so
// pages may arrive in any order.
//
// pageSize is the value current at accumulation time. If the page was
// fetched under a different page size it lands at the slice implied by the
// new size; that matches the accumulation-time semantics this fold pins
// down.
func (c *Collection[T]) Apply(p Page[T], total, pageSize int) {
	total = max(total, 0)
	if pageSize > 0 && p.Number >= 0 {
		start := p.Number * pageSize
		if need := start + pageSize; len(c.cells) < need {
			c.cells = append(c.cells, make([]Cell[T], need-len(c.cells))...)
		}
		for i := range pageSize {
			if i < len(p.Items) {
				c.cells[start+i] = Cell[T]{Value: p.Items[i], Known: true}
			} else {
				c.cells[start+i] = Cell[T]{}
			}
		}
	}
	c.resize(total)
}

// Resize pads the collection with holes up to total, or truncates it down.
func (c *Collection[T]) Resize(total int) {
	c.resize(max(total, 0))
}

func (c *Collection[T]) resize(total int) {
	switch {
	case len(c.cells) > total:
		c.cells = c.cells[:total]
	case len(c.cells) < total:
		c.cells = append(c.cells, make([]Cell[T], total-len(c.cells))...)
	}
}

// Clear drops all cells, for a wholesale data source change.
func (c *Collection[T]) Clear() {
	c.cells = nil
}
