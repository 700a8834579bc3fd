// Package geometry models the boundary-condition grid handed to the flow solver.
//
// A [Geometry] is a fixed-size, row-major grid of [BoundaryCondition] cells:
//
//   - [New]: all-fluid grid of the requested size
//   - [Rasterize]: procedural obstacle for a named [Shape]
//   - [Paint]: copy of a grid with a single cell re-tagged
//   - [Editor]: shape selection and brush painting with custom-mode gating
//
// # Coordinates
//
// Rows run along y and columns along x, so cell (x, y) lives at g[y][x].
// Every function here is pure except the [Editor] methods, which mutate the
// editor they are called on.
package geometry
