package geometry

import (
	"fmt"
	"math"
	"strings"
)

// Shape selects the procedural obstacle placed on the grid.
type Shape string

const (
	Cylinder  Shape = "cylinder"
	Rectangle Shape = "rectangle"
	Airfoil   Shape = "airfoil"
	Custom    Shape = "custom"
)

var shapeLabels = map[Shape]string{
	Cylinder:  "Cylinder",
	Rectangle: "Rectangle",
	Airfoil:   "Airfoil",
	Custom:    "Custom",
}

// Shapes lists the selectable shapes in menu order.
func Shapes() []Shape {
	return []Shape{Cylinder, Rectangle, Airfoil, Custom}
}

func (s Shape) Label() string {
	if l, ok := shapeLabels[s]; ok {
		return l
	}
	return string(s)
}

func ParseShape(name string) (Shape, error) {
	s := Shape(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := shapeLabels[s]; !ok {
		return "", fmt.Errorf("%w: %q (available: %v)", ErrUnknownShape, name, Shapes())
	}
	return s, nil
}

// NACA 0012 thickness ratio.
const airfoilThickness = 0.12

// Rasterize returns a width×height grid where cells inside the shape are
// Solid and every other cell is Fluid. Custom and unknown shapes give an
// all-fluid grid.
func Rasterize(shape Shape, width, height int) Geometry {
	g := New(width, height)
	if len(g) == 0 {
		return g
	}
	switch shape {
	case Cylinder:
		rasterCylinder(g, width, height)
	case Rectangle:
		rasterRectangle(g, width, height)
	case Airfoil:
		rasterAirfoil(g, width, height)
	}
	return g
}

func rasterCylinder(g Geometry, w, h int) {
	cx, cy := float64(w/3), float64(h/2)
	radius := float64(min(w, h)) / 6
	for y := range g {
		for x := range g[y] {
			if math.Hypot(float64(x)-cx, float64(y)-cy) < radius {
				g[y][x] = Solid
			}
		}
	}
}

func rasterRectangle(g Geometry, w, h int) {
	rw, rh := w/4, h/2
	startX := w/3 - rw/2
	startY := h/2 - rh/2

	// clamp to the grid instead of rejecting placements that overhang it
	x0, x1 := max(startX, 0), min(startX+rw, w)
	y0, y1 := max(startY, 0), min(startY+rh, h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g[y][x] = Solid
		}
	}
}

func rasterAirfoil(g Geometry, w, h int) {
	chord := float64(w) / 2
	offsetX := float64(w) / 4
	offsetY := float64(h) / 2
	scale := float64(h) / 2.5

	for x := 0; x < w; x++ {
		xc := (float64(x) - offsetX) / chord
		if xc < 0 || xc > 1 {
			continue
		}
		yUpper := nacaHalfThickness(xc) * (chord / float64(h)) * scale
		for y := 0; y < h; y++ {
			yn := (float64(y) - offsetY) / scale
			if yn >= -yUpper && yn <= yUpper {
				g[y][x] = Solid
			}
		}
	}
}

// nacaHalfThickness is the symmetric 4-digit NACA half thickness at chord
// position x in [0, 1].
func nacaHalfThickness(x float64) float64 {
	return 5 * airfoilThickness * (0.2969*math.Sqrt(x) -
		0.1260*x -
		0.3516*x*x +
		0.2843*x*x*x -
		0.1015*x*x*x*x)
}
