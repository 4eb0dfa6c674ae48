package pager

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/vgrid/window"
	"github.com/stretchr/testify/require"
)

func collect(seq func(yield func(int) bool)) []int {
	var out []int
	seq(func(p int) bool {
		out = append(out, p)
		return true
	})
	return out
}

func TestPagesFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		w        window.Window
		total    int
		pageSize int
		want     []int
	}{
		{"mid window", window.Window{Offset: 25, Length: 50}, 1000, 20, []int{1, 2, 3}},
		{"clamped by total", window.Window{Offset: 25, Length: 50}, 60, 20, []int{1, 2}},
		{"at origin", window.Window{Offset: 0, Length: 10}, 100, 10, []int{0}},
		{"empty window", window.Window{}, 100, 10, nil},
		{"zero page size", window.Window{Offset: 0, Length: 50}, 100, 0, nil},
		{"zero total", window.Window{Offset: 0, Length: 50}, 0, 10, nil},
		{"window past end", window.Window{Offset: 90, Length: 50}, 100, 20, []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, collect(PagesFor(tt.w, tt.total, tt.pageSize)))
		})
	}
}

func TestResolver_AtMostOncePerEpoch(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	w := window.Window{Offset: 25, Length: 50}

	require.Equal(t, []int{1, 2, 3}, r.Resolve(w, 1000, 20))
	// Revisiting the same range resolves nothing new.
	require.Empty(t, r.Resolve(w, 1000, 20))
	// An overlapping window only yields the uncovered pages.
	require.Equal(t, []int{0}, r.Resolve(window.Window{Offset: 0, Length: 80}, 1000, 20))
}

func TestResolver_ResetStartsNewEpoch(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	w := window.Window{Offset: 0, Length: 40}
	epoch := r.Epoch()

	require.Equal(t, []int{0, 1}, r.Resolve(w, 1000, 20))
	r.Reset()
	require.NotEqual(t, epoch, r.Epoch())
	require.Equal(t, []int{0, 1}, r.Resolve(w, 1000, 20))
}

func TestResolver_VersionTracksDedupActivity(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	w := window.Window{Offset: 0, Length: 60}
	require.Equal(t, uint64(0), r.Version())

	require.Len(t, r.Resolve(w, 1000, 20), 3)
	require.Equal(t, uint64(3), r.Version())

	// A fully covered window leaves the version alone.
	require.Empty(t, r.Resolve(w, 1000, 20))
	require.Equal(t, uint64(3), r.Version())

	r.Reset()
	require.Equal(t, uint64(4), r.Version())
}

func page(number, size, base int) Page[int] {
	items := make([]int, size)
	for i := range items {
		items[i] = base + i
	}
	return Page[int]{Number: number, Size: size, Items: items}
}

func TestCollection_ApplyTouchesOnlyOwnSlice(t *testing.T) {
	t.Parallel()

	var c Collection[int]
	c.Apply(page(0, 5, 100), 20, 5)
	c.Apply(page(2, 5, 300), 20, 5)

	require.Equal(t, 20, c.Len())
	for i := range 5 {
		v, ok := c.At(i)
		require.True(t, ok)
		require.Equal(t, 100+i, v)

		v, ok = c.At(10 + i)
		require.True(t, ok)
		require.Equal(t, 300+i, v)

		_, ok = c.At(5 + i)
		require.False(t, ok, "slice of page 1 must stay holes")
		_, ok = c.At(15 + i)
		require.False(t, ok, "slice of page 3 must stay holes")
	}
}

func TestCollection_ApplyOrderIndependent(t *testing.T) {
	t.Parallel()

	pages := []Page[int]{page(0, 4, 0), page(1, 4, 10), page(2, 4, 20)}

	var forward, backward Collection[int]
	for _, p := range pages {
		forward.Apply(p, 12, 4)
	}
	for i := len(pages) - 1; i >= 0; i-- {
		backward.Apply(pages[i], 12, 4)
	}

	for i := range 12 {
		fv, fok := forward.At(i)
		bv, bok := backward.At(i)
		require.Equal(t, fok, bok)
		require.Equal(t, fv, bv)
	}
}

func TestCollection_ShortPagePadsWithHoles(t *testing.T) {
	t.Parallel()

	var c Collection[string]
	c.Apply(Page[string]{Number: 1, Size: 4, Items: []string{"a", "b"}}, 8, 4)

	v, ok := c.At(4)
	require.True(t, ok)
	require.Equal(t, "a", v)
	_, ok = c.At(6)
	require.False(t, ok)
	_, ok = c.At(7)
	require.False(t, ok)
}

func TestCollection_ExcessItemsDropped(t *testing.T) {
	t.Parallel()

	var c Collection[int]
	c.Apply(Page[int]{Number: 0, Size: 2, Items: []int{1, 2, 3, 4}}, 4, 2)

	require.Equal(t, 4, c.Len())
	_, ok := c.At(2)
	require.False(t, ok, "excess items must not spill into the next slice")
}

func TestCollection_TruncatesToSmallerTotal(t *testing.T) {
	t.Parallel()

	var c Collection[int]
	c.Apply(page(0, 10, 0), 30, 10)
	require.Equal(t, 30, c.Len())

	c.Apply(page(0, 10, 0), 7, 10)
	require.Equal(t, 7, c.Len())
	_, ok := c.At(9)
	require.False(t, ok)
}

// A page fetched under one page size but accumulated under another lands at
// the slice implied by the accumulation-time size. This pins the
// stale-page-size semantics rather than silently correcting them.
func TestCollection_StalePageSizeUsesAccumulationTimeSlice(t *testing.T) {
	t.Parallel()

	var c Collection[int]
	fetched := page(1, 4, 10) // fetched when pageSize was 4
	c.Apply(fetched, 20, 5)   // accumulated after pageSize became 5

	v, ok := c.At(5)
	require.True(t, ok)
	require.Equal(t, 10, v)
	// The page is renormalized to the new size: the fifth slot of the
	// slice is a hole.
	_, ok = c.At(9)
	require.False(t, ok)
}

func TestCollection_Known(t *testing.T) {
	t.Parallel()

	var c Collection[int]
	c.Apply(page(1, 5, 0), 20, 5)
	require.Equal(t, 5, c.Known())
	c.Resize(8)
	require.Equal(t, 3, c.Known())
}

func TestFetcher_SharedStream(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	f := NewFetcher[int](SourceFunc[int](func(_ context.Context, number, size int) ([]int, error) {
		calls.Add(1)
		items := make([]int, size)
		for i := range items {
			items[i] = number*size + i
		}
		return items, nil
	}))
	defer f.Shutdown()

	a := f.Pages(t.Context())
	b := f.Pages(t.Context())
	f.Fetch(t.Context(), 4, 2)

	pa := <-a
	pb := <-b
	require.Equal(t, pa, pb)
	require.Equal(t, 2, pa.Number)
	require.Equal(t, []int{8, 9, 10, 11}, pa.Items)
	require.Equal(t, int64(1), calls.Load(), "one fetch serves every consumer")
}

func TestFetcher_FailureDoesNotDisturbOtherPages(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	f := NewFetcher[int](SourceFunc[int](func(_ context.Context, number, size int) ([]int, error) {
		if number == 1 {
			return nil, boom
		}
		return make([]int, size), nil
	}))
	defer f.Shutdown()

	pages := f.Pages(t.Context())
	failures := f.Failures(t.Context())
	f.Fetch(t.Context(), 3, 0, 1, 2)

	var got []int
	for range 2 {
		p := <-pages
		got = append(got, p.Number)
	}
	slices.Sort(got)
	require.Equal(t, []int{0, 2}, got)

	fe := <-failures
	require.Equal(t, 1, fe.Number)
	require.ErrorIs(t, fe, boom)
}

func TestFetcher_ConcurrentCompletionOrderTolerated(t *testing.T) {
	t.Parallel()

	// Later page numbers complete first.
	f := NewFetcher[int](SourceFunc[int](func(ctx context.Context, number, size int) ([]int, error) {
		delay := time.Duration(5-number) * 10 * time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		items := make([]int, size)
		for i := range items {
			items[i] = number
		}
		return items, nil
	}))
	defer f.Shutdown()

	pages := f.Pages(t.Context())
	f.Fetch(t.Context(), 2, 0, 1, 2)

	var c Collection[int]
	for range 3 {
		p := <-pages
		c.Apply(p, 6, 2)
	}
	for i := range 6 {
		v, ok := c.At(i)
		require.True(t, ok, "index %d", i)
		require.Equal(t, i/2, v)
	}
}

func TestFetchError_Message(t *testing.T) {
	t.Parallel()

	err := FetchError{Number: 7, Err: fmt.Errorf("timeout")}
	require.Equal(t, "pager: fetch page 7: timeout", err.Error())
}
