// Package world provides the forest grid, cell fire states, fire spread, and
// the clustering of burning cells into tasks.
// Cells are addressed with integer (x, y) coordinates; continuous positions
// are floored onto the grid.
package world

import (
	"fmt"
	"math"
)

// Point is a discrete grid coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CellState is the fire state of a single cell.
type CellState uint8

const (
	CellNormal       CellState = iota // Unburnt forest
	CellFire                          // Burning, needs foam
	CellBurned                        // Burnt out on its own
	CellExtinguished                  // Put out by a UAV
)

// String returns a lowercase name for the state.
func (s CellState) String() string {
	switch s {
	case CellNormal:
		return "normal"
	case CellFire:
		return "fire"
	case CellBurned:
		return "burned"
	case CellExtinguished:
		return "extinguished"
	default:
		return "unknown"
	}
}

// Cell is one square of forest.
type Cell struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	State     CellState `json:"state"`
	Fuel      float64   `json:"fuel"`       // 0.0 (bare) to 1.0 (dense)
	IgnitedAt uint64    `json:"ignited_at"` // Tick the current fire started
}

// Point returns the cell coordinate.
func (c *Cell) Point() Point {
	return Point{X: c.X, Y: c.Y}
}

// Grid holds the complete forest state.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	cells []Cell

	onFire       int
	burned       int
	extinguished int
}

// NewGrid creates a grid of normal cells with zero fuel.
func NewGrid(width, height int) *Grid {
	g := &Grid{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := &g.cells[y*width+x]
			c.X, c.Y = x, y
		}
	}
	return g
}

// InBounds returns true if p lies inside the grid.
func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// Cell returns the cell at p, or nil if out of bounds.
func (g *Grid) Cell(p Point) *Cell {
	if !g.InBounds(p) {
		return nil
	}
	return &g.cells[p.Y*g.Width+p.X]
}

// State returns the state at p. Out-of-bounds points read as normal.
func (g *Grid) State(p Point) CellState {
	c := g.Cell(p)
	if c == nil {
		return CellNormal
	}
	return c.State
}

// Discretize floors continuous coordinates onto the grid.
func Discretize(x, y float64) Point {
	return Point{X: int(math.Floor(x)), Y: int(math.Floor(y))}
}

// Dims returns the grid width and height.
func (g *Grid) Dims() (width, height int) {
	return g.Width, g.Height
}

// Area returns width × height, the largest possible task size.
func (g *Grid) Area() int {
	return g.Width * g.Height
}

// Diagonal returns the grid diagonal, the largest possible task radius.
func (g *Grid) Diagonal() float64 {
	return math.Sqrt(float64(g.Width*g.Width + g.Height*g.Height))
}

// Ignite sets a normal cell on fire. Returns false if the cell cannot burn.
func (g *Grid) Ignite(p Point, tick uint64) bool {
	c := g.Cell(p)
	if c == nil || c.State != CellNormal {
		return false
	}
	c.State = CellFire
	c.IgnitedAt = tick
	g.onFire++
	return true
}

// Extinguish puts out the fire at p. Returns false if p was not burning.
func (g *Grid) Extinguish(p Point) bool {
	c := g.Cell(p)
	if c == nil || c.State != CellFire {
		return false
	}
	c.State = CellExtinguished
	g.onFire--
	g.extinguished++
	return true
}

func (g *Grid) burnOut(c *Cell) {
	if c.State != CellFire {
		return
	}
	c.State = CellBurned
	g.onFire--
	g.burned++
}

// OnFire returns the number of burning cells.
func (g *Grid) OnFire() int { return g.onFire }

// BurnedCount returns the number of cells that burnt out.
func (g *Grid) BurnedCount() int { return g.burned }

// ExtinguishedCount returns the number of cells put out by UAVs.
func (g *Grid) ExtinguishedCount() int { return g.extinguished }

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, fire=%d, burned=%d, extinguished=%d)",
		g.Width, g.Height, g.onFire, g.burned, g.extinguished)
}

// neighborOffsets are the eight surrounding cells, row-major.
var neighborOffsets = [8]Point{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}
