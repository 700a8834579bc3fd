package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pinnlab/internal/geometry"
)

const cellGlyph = "██"

// Cursor marks one cell of a rendered grid.
type Cursor struct {
	Row, Col int
}

// RenderGrid draws g with two terminal columns per cell. A non-nil cursor
// cell is tinted toward the theme accent.
func RenderGrid(g geometry.Geometry, theme Theme, cursor *Cursor) string {
	styles := make(map[geometry.BoundaryCondition]lipgloss.Style)
	style := func(bc geometry.BoundaryCondition) lipgloss.Style {
		s, ok := styles[bc]
		if !ok {
			s = lipgloss.NewStyle().Foreground(theme.CellColor(bc))
			styles[bc] = s
		}
		return s
	}

	var b strings.Builder
	for y, row := range g {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x, bc := range row {
			if cursor != nil && cursor.Row == y && cursor.Col == x {
				hl := Blend(theme.CellColor(bc), theme.Accent, 0.6)
				b.WriteString(lipgloss.NewStyle().Foreground(hl).Render("▐▌"))
				continue
			}
			b.WriteString(style(bc).Render(cellGlyph))
		}
	}
	return b.String()
}

// Legend lists each boundary condition with its colour swatch.
func Legend(theme Theme) string {
	parts := make([]string, 0, len(geometry.Conditions()))
	for _, bc := range geometry.Conditions() {
		swatch := lipgloss.NewStyle().Foreground(theme.CellColor(bc)).Render(cellGlyph)
		parts = append(parts, swatch+" "+MetricLabel.Render(bc.Label()))
	}
	return strings.Join(parts, "  ")
}

// RenderDigest prints the grid as boundary initials, one row per line.
func RenderDigest(g geometry.Geometry) string {
	return strings.Join(g.Digest(), "\n")
}
