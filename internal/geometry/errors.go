package geometry

import "errors"

var (
	// ErrUnknownShape indicates a shape name outside the supported set.
	ErrUnknownShape = errors.New("geometry: unknown shape")

	// ErrUnknownCondition indicates a boundary condition name outside the supported set.
	ErrUnknownCondition = errors.New("geometry: unknown boundary condition")

	// ErrOutOfRange indicates a cell coordinate outside the grid.
	ErrOutOfRange = errors.New("geometry: cell out of range")

	// ErrPaintLocked indicates painting was attempted while a procedural shape is active.
	ErrPaintLocked = errors.New("geometry: painting requires the custom shape")
)
