// Package viz renders boundary-condition grids, loss terms and flow images
// for the terminal.
//
//   - [RenderGrid]: one coloured two-column block per cell, with an optional cursor
//   - [Minimap]: compact braille outline of the solid cells
//   - [HalfBlock]: an image as upper-half-block characters, two pixels per cell
//   - [Theme]: palette for the panel and the boundary conditions
package viz
