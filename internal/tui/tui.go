// Package tui is the demo front end: a terminal rendering of a virtualized
// grid over a SQLite-backed item collection, driven through the engine the
// same way a browser host would drive it with scroll and resize events.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
	"github.com/charmbracelet/x/exp/ordered"

	"github.com/charmbracelet/vgrid"
	"github.com/charmbracelet/vgrid/pager"
	"github.com/charmbracelet/vgrid/pager/sqlitesource"
	"github.com/charmbracelet/vgrid/render"
)

type (
	// BufferMsg carries a new render buffer from the engine.
	BufferMsg []render.Slot[sqlitesource.Item]
	// HeightMsg carries a new total content height.
	HeightMsg float64
	// ScrollActionMsg carries a scroll-to-index result.
	ScrollActionMsg vgrid.ScrollAction
	// FetchFailureMsg carries a failed page fetch.
	FetchFailureMsg pager.FetchError
)

var (
	itemStyle = lipgloss.NewStyle().
			Width(cellWidth).
			Height(cellHeight).
			Align(lipgloss.Center, lipgloss.Center).
			Background(charmtone.Charple).
			Foreground(charmtone.Salt)
	holeStyle = lipgloss.NewStyle().
			Width(cellWidth).
			Height(cellHeight).
			Align(lipgloss.Center, lipgloss.Center).
			Background(charmtone.Charcoal).
			Foreground(charmtone.Squid)
	statusStyle = lipgloss.NewStyle().Foreground(charmtone.Smoke)
)

// Model is the demo's top-level bubbletea model.
type Model struct {
	engine *vgrid.Engine[sqlitesource.Item]
	probe  *Probe
	keyMap KeyMap

	width, height int
	distance      float64
	contentHeight float64
	total         int
	buffer        []render.Slot[sqlitesource.Item]
	failures      int
}

// New creates the demo model over an already-running engine.
func New(engine *vgrid.Engine[sqlitesource.Item], probe *Probe, total int) *Model {
	return &Model{
		engine: engine,
		probe:  probe,
		keyMap: DefaultKeyMap(),
		total:  total,
	}
}

// Subscribe forwards the engine's output streams into the program. Run it
// in its own goroutine, the way a host event loop would bridge the engine
// into its renderer.
func Subscribe(ctx context.Context, e *vgrid.Engine[sqlitesource.Item], p *tea.Program) {
	buffers := e.Buffers(ctx)
	heights := e.Heights(ctx)
	actions := e.ScrollActions(ctx)
	failures := e.Failures(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case buf, ok := <-buffers:
			if !ok {
				return
			}
			p.Send(BufferMsg(buf))
		case h, ok := <-heights:
			if !ok {
				return
			}
			p.Send(HeightMsg(h))
		case a, ok := <-actions:
			if !ok {
				return
			}
			p.Send(ScrollActionMsg(a))
		case f, ok := <-failures:
			if !ok {
				return
			}
			slog.Warn("demo: page fetch failed", "page", f.Number, "error", f.Err)
			p.Send(FetchFailureMsg(f))
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.probe.Resize(msg.Width, msg.Height)
		m.engine.NotifyResize()
	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	case BufferMsg:
		m.buffer = msg
	case HeightMsg:
		m.contentHeight = float64(msg)
	case ScrollActionMsg:
		m.setDistance(msg.Top)
	case FetchFailureMsg:
		m.failures++
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	rowHeight := float64(cellHeight + cellGap)
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return tea.Quit
	case key.Matches(msg, m.keyMap.Up):
		m.scrollBy(-rowHeight)
	case key.Matches(msg, m.keyMap.Down):
		m.scrollBy(rowHeight)
	case key.Matches(msg, m.keyMap.PageUp):
		m.scrollBy(-m.probe.ViewportHeight())
	case key.Matches(msg, m.keyMap.PageDown):
		m.scrollBy(m.probe.ViewportHeight())
	case key.Matches(msg, m.keyMap.Top):
		m.setDistance(0)
	case key.Matches(msg, m.keyMap.Bottom):
		m.setDistance(m.maxScroll())
	case key.Matches(msg, m.keyMap.Middle):
		m.engine.ScrollToIndex(m.total / 2)
	}
	return nil
}

func (m *Model) maxScroll() float64 {
	return max(m.contentHeight-m.probe.ViewportHeight(), 0)
}

func (m *Model) scrollBy(delta float64) {
	m.setDistance(m.distance + delta)
}

func (m *Model) setDistance(d float64) {
	m.distance = ordered.Clamp(d, 0, m.maxScroll())
	m.probe.SetDistance(m.distance)
	m.engine.NotifyScroll()
}

func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true

	viewportTop := m.distance
	viewportBottom := m.distance + m.probe.ViewportHeight()

	// Group the resident slots into rows and keep the ones intersecting
	// the viewport.
	rows := make(map[float64][]render.Slot[sqlitesource.Item])
	for _, s := range m.buffer {
		if s.Y+cellHeight <= viewportTop || s.Y >= viewportBottom {
			continue
		}
		rows[s.Y] = append(rows[s.Y], s)
	}
	ys := make([]float64, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	slices.Sort(ys)

	lines := make([]string, 0, len(ys))
	for _, y := range ys {
		row := rows[y]
		slices.SortFunc(row, func(a, b render.Slot[sqlitesource.Item]) int {
			return a.Index - b.Index
		})
		cells := make([]string, 0, len(row)*2)
		for i, s := range row {
			if i > 0 {
				cells = append(cells, " ")
			}
			if s.Known {
				cells = append(cells, itemStyle.Render(s.Value.Title))
			} else {
				cells = append(cells, holeStyle.Render("…"))
			}
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	grid := lipgloss.JoinVertical(lipgloss.Left, lines...)
	stats := m.engine.Stats()
	status := statusStyle.Render(fmt.Sprintf(
		"%d items · scroll %.0f/%.0f · %d resident slots · %d pages fetched · %d handles · %d failures",
		m.total, m.distance, m.contentHeight, len(m.buffer),
		stats.PagesResolved, stats.HandlesIssued, m.failures,
	))

	view.SetContent(lipgloss.JoinVertical(lipgloss.Left, grid, status))
	return view
}
