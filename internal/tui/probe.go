package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/vgrid/geometry"
)

// Grid metrics in terminal cells. One cell is one "pixel" as far as the
// engine is concerned.
const (
	cellWidth    = 20
	cellHeight   = 3
	cellGap      = 1
	chromeHeight = 2 // status lines below the grid
)

// Probe measures the demo grid against the terminal. It implements
// geometry.Probe with the terminal cell as the pixel unit and the model's
// scroll position as the scroll distance.
type Probe struct {
	mu       sync.Mutex
	width    int
	height   int
	distance float64
}

var _ geometry.Probe = (*Probe)(nil)

func NewProbe() *Probe {
	return &Probe{width: 80, height: 24}
}

// Resize records the new terminal size.
func (p *Probe) Resize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = width
	p.height = height
}

// SetDistance records the simulated scroll position.
func (p *Probe) SetDistance(d float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.distance = d
}

func (p *Probe) columns() int {
	return max((p.width+cellGap)/(cellWidth+cellGap), 1)
}

func (p *Probe) TemplateColumns() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.TrimSpace(strings.Repeat(fmt.Sprintf("%dpx ", cellWidth), p.columns()))
}

func (p *Probe) RowGap() string    { return fmt.Sprintf("%dpx", cellGap) }
func (p *Probe) ColumnGap() string { return fmt.Sprintf("%dpx", cellGap) }

func (p *Probe) ItemBox() (float64, float64) {
	return cellWidth, cellHeight
}

func (p *Probe) ViewportHeight() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float64(max(p.height-chromeHeight, 0))
}

func (p *Probe) DistanceAboveViewport() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.distance
}

func (p *Probe) ScrollInfo() geometry.ScrollInfo {
	return geometry.ScrollInfo{}
}
