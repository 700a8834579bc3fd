package viz

import (
	"strings"

	"github.com/san-kum/pinnlab/internal/geometry"
)

const brailleBlank = 0x2800

// dot bits of a braille cell, indexed [row][col] within its 2x4 block
var brailleDots = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille dot matrix. Each rune covers 2x4 dots.
type Canvas struct {
	cols, rows int
	cells      [][]rune
}

// NewCanvas returns a canvas with room for w x h dots.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{cols: (w + 1) / 2, rows: (h + 3) / 4}
	c.cells = make([][]rune, c.rows)
	for i := range c.cells {
		c.cells[i] = make([]rune, c.cols)
	}
	c.Clear()
	return c
}

// Set turns on the dot at (x, y). Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x/2 >= c.cols || y/4 >= c.rows {
		return
	}
	c.cells[y/4][x/2] |= brailleDots[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		for j := range c.cells[i] {
			c.cells[i][j] = brailleBlank
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for i, row := range c.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

// Minimap draws every non-fluid cell of g as one dot, so the default grid
// fits in 16x6 characters.
func Minimap(g geometry.Geometry) string {
	c := NewCanvas(g.Width(), g.Height())
	for y, row := range g {
		for x, bc := range row {
			if bc != geometry.Fluid {
				c.Set(x, y)
			}
		}
	}
	return c.String()
}
