package viz

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pinnlab/internal/geometry"
)

// Theme defines the panel colours and the colour of each boundary condition.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Cells map[geometry.BoundaryCondition]lipgloss.Color
}

// CellColor falls back to Muted for conditions without a colour.
func (t Theme) CellColor(bc geometry.BoundaryCondition) lipgloss.Color {
	if c, ok := t.Cells[bc]; ok {
		return c
	}
	return t.Muted
}

var (
	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#0077be"),
		Secondary: lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Success:   lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffcc00"),
		Error:     lipgloss.Color("#ff4444"),
		Cells: map[geometry.BoundaryCondition]lipgloss.Color{
			geometry.Fluid:   lipgloss.Color("#12355b"),
			geometry.Solid:   lipgloss.Color("#9aa5b1"),
			geometry.Inflow:  lipgloss.Color("#2ecc71"),
			geometry.Outflow: lipgloss.Color("#e67e22"),
			geometry.Wall:    lipgloss.Color("#f5f5f5"),
		},
	}

	ThemeCyberpunk = Theme{
		Name:      "cyberpunk",
		Primary:   lipgloss.Color("#ff00ff"),
		Secondary: lipgloss.Color("#00ffff"),
		Accent:    lipgloss.Color("#ffff00"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#666666"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ff8800"),
		Error:     lipgloss.Color("#ff0000"),
		Cells: map[geometry.BoundaryCondition]lipgloss.Color{
			geometry.Fluid:   lipgloss.Color("#1a001a"),
			geometry.Solid:   lipgloss.Color("#ff00ff"),
			geometry.Inflow:  lipgloss.Color("#00ff00"),
			geometry.Outflow: lipgloss.Color("#ff8800"),
			geometry.Wall:    lipgloss.Color("#00ffff"),
		},
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Primary:   lipgloss.Color("#ffffff"),
		Secondary: lipgloss.Color("#cccccc"),
		Accent:    lipgloss.Color("#0088ff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#888888"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ffaa00"),
		Error:     lipgloss.Color("#ff0000"),
		Cells: map[geometry.BoundaryCondition]lipgloss.Color{
			geometry.Fluid:   lipgloss.Color("#202020"),
			geometry.Solid:   lipgloss.Color("#bbbbbb"),
			geometry.Inflow:  lipgloss.Color("#55aa55"),
			geometry.Outflow: lipgloss.Color("#aa7744"),
			geometry.Wall:    lipgloss.Color("#ffffff"),
		},
	}

	CurrentTheme = ThemeOcean

	Themes = []Theme{
		ThemeOcean,
		ThemeCyberpunk,
		ThemeMinimal,
	}
)

// GetTheme returns a theme by name, or the ocean theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeOcean
}

// NextTheme returns the theme after t in Themes, wrapping around.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
