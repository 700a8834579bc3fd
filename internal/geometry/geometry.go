package geometry

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	GridWidth  = 32
	GridHeight = 24
)

// BoundaryCondition tags the role a cell plays for the solver.
type BoundaryCondition uint8

const (
	Fluid BoundaryCondition = iota
	Solid
	Inflow
	Outflow
	Wall
)

var conditionNames = [...]string{
	Fluid:   "fluid",
	Solid:   "solid",
	Inflow:  "inflow",
	Outflow: "outflow",
	Wall:    "wall",
}

var conditionLabels = [...]string{
	Fluid:   "Fluid",
	Solid:   "Solid/Obstacle",
	Inflow:  "Inflow",
	Outflow: "Outflow",
	Wall:    "Wall",
}

// Conditions lists every boundary condition in brush order.
func Conditions() []BoundaryCondition {
	return []BoundaryCondition{Fluid, Solid, Inflow, Outflow, Wall}
}

func (bc BoundaryCondition) String() string {
	if int(bc) < len(conditionNames) {
		return conditionNames[bc]
	}
	return fmt.Sprintf("condition(%d)", uint8(bc))
}

// Label is the human readable name shown next to a brush.
func (bc BoundaryCondition) Label() string {
	if int(bc) < len(conditionLabels) {
		return conditionLabels[bc]
	}
	return bc.String()
}

// Initial is the single letter used in geometry digests.
func (bc BoundaryCondition) Initial() byte {
	return bc.String()[0]
}

func (bc BoundaryCondition) Valid() bool {
	return int(bc) < len(conditionNames)
}

func ParseCondition(s string) (BoundaryCondition, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range conditionNames {
		if n == name {
			return BoundaryCondition(i), nil
		}
	}
	return Fluid, fmt.Errorf("%w: %q", ErrUnknownCondition, s)
}

func (bc BoundaryCondition) MarshalText() ([]byte, error) {
	if !bc.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCondition, uint8(bc))
	}
	return []byte(bc.String()), nil
}

func (bc *BoundaryCondition) UnmarshalText(text []byte) error {
	v, err := ParseCondition(string(text))
	if err != nil {
		return err
	}
	*bc = v
	return nil
}

// Geometry is a row-major grid: g[row][col].
type Geometry [][]BoundaryCondition

// New returns a width×height grid with every cell set to Fluid.
// Non-positive dimensions give an empty grid.
func New(width, height int) Geometry {
	if width <= 0 || height <= 0 {
		return Geometry{}
	}
	cells := make([]BoundaryCondition, width*height)
	g := make(Geometry, height)
	for y := range g {
		g[y] = cells[y*width : (y+1)*width : (y+1)*width]
	}
	return g
}

func (g Geometry) Height() int { return len(g) }

func (g Geometry) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

func (g Geometry) InBounds(row, col int) bool {
	return row >= 0 && row < g.Height() && col >= 0 && col < g.Width()
}

func (g Geometry) At(row, col int) BoundaryCondition {
	return g[row][col]
}

func (g Geometry) Clone() Geometry {
	c := New(g.Width(), g.Height())
	for y := range g {
		copy(c[y], g[y])
	}
	return c
}

// Count returns how many cells carry the given condition.
func (g Geometry) Count(bc BoundaryCondition) int {
	n := 0
	for _, row := range g {
		for _, cell := range row {
			if cell == bc {
				n++
			}
		}
	}
	return n
}

func (g Geometry) Equal(other Geometry) bool {
	if g.Height() != other.Height() || g.Width() != other.Width() {
		return false
	}
	for y := range g {
		if len(g[y]) != len(other[y]) {
			return false
		}
		for x := range g[y] {
			if g[y][x] != other[y][x] {
				return false
			}
		}
	}
	return true
}

// Digest collapses each row into a string of condition initials,
// e.g. "ffffssff".
func (g Geometry) Digest() []string {
	rows := make([]string, len(g))
	for y, row := range g {
		var b strings.Builder
		b.Grow(len(row))
		for _, cell := range row {
			b.WriteByte(cell.Initial())
		}
		rows[y] = b.String()
	}
	return rows
}

// DigestJSON is the JSON array form of [Geometry.Digest], used as the
// historical flow state proxy for the explanation service.
func (g Geometry) DigestJSON() string {
	data, err := json.Marshal(g.Digest())
	if err != nil {
		return "[]"
	}
	return string(data)
}
