package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/viz"
)

// GeometryToSVG draws one square per cell, scale pixels wide. Fluid cells
// share the background rectangle.
func GeometryToSVG(g geometry.Geometry, theme viz.Theme, scale float64) string {
	width := float64(g.Width()) * scale
	height := float64(g.Height()) * scale

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, theme.CellColor(geometry.Fluid)))

	for _, bc := range geometry.Conditions() {
		if bc == geometry.Fluid || g.Count(bc) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("<g class=%q fill=%q>\n", bc.String(), string(theme.CellColor(bc))))
		for y, row := range g {
			for x, cell := range row {
				if cell != bc {
					continue
				}
				sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f"/>
`, float64(x)*scale, float64(y)*scale, scale, scale))
			}
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}
