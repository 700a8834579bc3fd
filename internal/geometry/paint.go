package geometry

import "fmt"

// Paint returns a copy of g with cell (row, col) set to brush. The input is
// never modified. ok is false when the cell lies outside the grid, in which
// case the copy is unchanged.
func Paint(g Geometry, row, col int, brush BoundaryCondition) (out Geometry, ok bool) {
	out = g.Clone()
	if !out.InBounds(row, col) {
		return out, false
	}
	out[row][col] = brush
	return out, true
}

// Editor tracks the active shape, the brush and the grid being edited.
// Painting is only allowed while the shape is Custom.
//
// Editor is not safe for concurrent use.
type Editor struct {
	width, height int
	shape         Shape
	brush         BoundaryCondition
	grid          Geometry
}

// NewEditor returns an editor whose grid is the rasterized shape.
func NewEditor(width, height int, shape Shape) *Editor {
	e := &Editor{width: width, height: height, brush: Solid}
	e.SetShape(shape)
	return e
}

func (e *Editor) Shape() Shape { return e.shape }
func (e *Editor) Brush() BoundaryCondition { return e.brush }
func (e *Editor) Editable() bool { return e.shape == Custom }
func (e *Editor) Size() (width, height int) { return e.width, e.height }
func (e *Editor) SetBrush(bc BoundaryCondition) { e.brush = bc }

// Geometry returns a copy of the current grid.
func (e *Editor) Geometry() Geometry { return e.grid.Clone() }

// SetShape replaces the whole grid with the rasterized shape. Switching to
// Custom discards previous paint and starts from an all-fluid grid.
func (e *Editor) SetShape(shape Shape) {
	e.shape = shape
	e.grid = Rasterize(shape, e.width, e.height)
}

// Paint sets one cell to the current brush.
func (e *Editor) Paint(row, col int) error {
	if !e.Editable() {
		return ErrPaintLocked
	}
	g, ok := Paint(e.grid, row, col, e.brush)
	if !ok {
		return fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfRange, row, col, e.width, e.height)
	}
	e.grid = g
	return nil
}

// PaintLine paints every cell on the straight stroke from (r0, c0) to
// (r1, c1), as a mouse drag would. Cells outside the grid are skipped.
func (e *Editor) PaintLine(r0, c0, r1, c1 int) error {
	if !e.Editable() {
		return ErrPaintLocked
	}
	g := e.grid.Clone()
	painted := 0
	line(c0, r0, c1, r1, func(x, y int) {
		if g.InBounds(y, x) {
			g[y][x] = e.brush
			painted++
		}
	})
	if painted == 0 {
		return fmt.Errorf("%w: stroke (%d, %d)-(%d, %d)", ErrOutOfRange, r0, c0, r1, c1)
	}
	e.grid = g
	return nil
}

// line walks the cells between two points using Bresenham's algorithm.
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
