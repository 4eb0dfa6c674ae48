package window

import (
	"testing"

	"github.com/charmbracelet/vgrid/geometry"
	"github.com/stretchr/testify/require"
)

var ext = geometry.ItemExtent{Width: 110, Height: 110, RowGap: 10, Columns: 3}

func TestCalc_AtTop(t *testing.T) {
	t.Parallel()

	// viewport 500px, item rows 110px: ceil(510/110)+1 = 6 rows in view.
	w := Calc(0, 500, ext)
	require.Equal(t, 0, w.Offset)
	require.Equal(t, 36, w.Length) // 6 rows * 3 cols * 2
}

func TestCalc_Scrolled(t *testing.T) {
	t.Parallel()

	// 1000px past the top: floor(1010/110) = 9 rows before the view.
	w := Calc(1000, 500, ext)
	// raw offset 27, pulled back by half a window (18/2 rows * 3 = 9).
	require.Equal(t, 27-9, w.Offset)
	require.Equal(t, 36, w.Length)
}

func TestCalc_OffsetNeverNegative(t *testing.T) {
	t.Parallel()

	for _, dist := range []float64{0, 50, 110, 333, 1e6} {
		w := Calc(dist, 500, ext)
		require.GreaterOrEqual(t, w.Offset, 0, "distance %v", dist)
		require.Equal(t, 2*RowsInView(500, ext)*ext.Columns, w.Length)
	}
}

func TestCalc_ZeroHeightGuards(t *testing.T) {
	t.Parallel()

	flat := geometry.ItemExtent{Columns: 3}
	w := Calc(1000, 500, flat)
	require.Equal(t, Window{}, w)
}

func TestCalc_Idempotent(t *testing.T) {
	t.Parallel()

	require.Equal(t, Calc(730, 480, ext), Calc(730, 480, ext))
}

func TestContentHeight(t *testing.T) {
	t.Parallel()

	// 10 items over 3 columns is 4 rows: 110*4 - 10 = 430.
	require.Equal(t, 430.0, ContentHeight(ext, 10))
	require.Equal(t, 0.0, ContentHeight(ext, 0))
	require.Equal(t, 0.0, ContentHeight(geometry.ItemExtent{Height: 110}, 10))
}

func TestScrollTarget(t *testing.T) {
	t.Parallel()

	four := geometry.ItemExtent{Height: 100, Columns: 4}
	// index 10 sits in row 2.
	require.Equal(t, 200.0, ScrollTarget(four, 10, geometry.ScrollInfo{}))
	require.Equal(t, 215.0, ScrollTarget(four, 10, geometry.ScrollInfo{
		PaddingTop:    8,
		BorderTop:     2,
		NestingOffset: 5,
	}))
	require.Equal(t, 0.0, ScrollTarget(geometry.ItemExtent{}, 10, geometry.ScrollInfo{}))
}
