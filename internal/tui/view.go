package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pinnlab/internal/datauri"
	"github.com/san-kum/pinnlab/internal/metrics"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/session"
	"github.com/san-kum/pinnlab/internal/viz"
)

// previewCache keeps rendered images so a frame does not decode them again.
// Only images still referenced by the session are kept.
type previewCache struct {
	mu    sync.Mutex
	items map[previewKey]string
}

type previewKey struct {
	uri   string
	width int
}

func newPreviewCache() *previewCache {
	return &previewCache{items: make(map[previewKey]string)}
}

func (c *previewCache) render(uri string, width int) (string, error) {
	k := previewKey{uri: uri, width: width}
	c.mu.Lock()
	defer c.mu.Unlock()
	if out, ok := c.items[k]; ok {
		return out, nil
	}
	img, err := datauri.Image(uri)
	if err != nil {
		return "", err
	}
	out := viz.HalfBlock(img, width)
	c.items[k] = out
	return out, nil
}

// retain drops every entry whose image is not among uris.
func (c *previewCache) retain(uris ...string) {
	live := make(map[string]bool, len(uris))
	for _, u := range uris {
		if u != "" {
			live[u] = true
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if !live[k.uri] {
			delete(c.items, k)
		}
	}
}

func (c *previewCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(viz.GradientText("p i n n l a b", m.theme.Secondary, m.theme.Primary))
	b.WriteString("  " + dim.Render("physics-informed flow panel") + "\n\n")
	b.WriteString("  " + m.viewTabs() + "\n")
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", 64)) + "\n\n")

	var body string
	switch m.tab {
	case tabParameters:
		body = m.viewParameters()
	case tabGeometry:
		body = m.viewGeometry()
	case tabAnalysis:
		body = m.viewAnalysis()
	case tabImages:
		body = m.viewImages()
	}
	b.WriteString(indent(body, "  ") + "\n\n")

	if line := m.viewToast(); line != "" {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("  " + viz.KeyHint.Render(m.hints()) + "\n")
	return b.String()
}

func (m Model) viewTabs() string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.tab {
			parts[i] = cyan.Bold(true).Render("▸ " + label)
		} else {
			parts[i] = dim.Render("  " + label)
		}
	}
	return strings.Join(parts, "   ")
}

func (m Model) statusLine(a session.Action, label string) string {
	switch m.snap.Status[a] {
	case session.StatusPending:
		return viz.StatusPending.Render(viz.Spinner(m.frame) + " " + label + "...")
	case session.StatusSuccess:
		return viz.StatusOK.Render("● " + label + " done")
	case session.StatusFailed:
		return viz.StatusFailed.Render("● " + label + " failed")
	}
	return dimmer.Render("○ " + label + " idle")
}

func (m Model) viewParameters() string {
	var b strings.Builder
	p := m.snap.Parameters

	for i, f := range params.Fields() {
		r := params.Ranges[f]
		val := formatParam(f, p.Get(f))
		if m.editing && i == m.paramCursor {
			val = m.editBuf + "▋"
		}
		label := fmt.Sprintf("%-22s", r.Label)
		unit := dimmer.Render(" " + r.Unit)
		if i == m.paramCursor {
			b.WriteString(cyan.Render("▸ ") + white.Render(label) + magenta.Render(fmt.Sprintf("%12s", val)) + unit)
		} else {
			b.WriteString("  " + dim.Render(label) + dim.Render(fmt.Sprintf("%12s", val)) + unit)
		}
		b.WriteString("  " + dimmer.Render(fmt.Sprintf("[%g, %g]", r.Min, r.Max)) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(viz.MetricLabel.Render("regime ") + viz.MetricValue.Render(m.snap.Regime))
	if m.snap.BackendStatus != "" {
		b.WriteString("   " + viz.MetricLabel.Render("Backend Status: ") + green.Render(m.snap.BackendStatus))
	}
	b.WriteString("\n\n")
	b.WriteString(m.statusLine(session.ActionGenerate, "generate"))
	return b.String()
}

func formatParam(f params.Field, v float64) string {
	switch f {
	case params.Reynolds:
		return fmt.Sprintf("%.0f", v)
	case params.Viscosity:
		return fmt.Sprintf("%.2e", v)
	}
	return fmt.Sprintf("%.3f", v)
}

func (m Model) viewGeometry() string {
	var cursor *viz.Cursor
	if m.snap.Editable {
		c := m.cursor
		cursor = &c
	}
	grid := viz.RenderGrid(m.snap.Geometry, m.theme, cursor)

	var side strings.Builder
	side.WriteString(viz.MetricLabel.Render("shape  ") + viz.MetricValue.Render(m.snap.Shape.Label()) + "\n")
	brush := lipgloss.NewStyle().Foreground(m.theme.CellColor(m.snap.Brush)).Render("██")
	side.WriteString(viz.MetricLabel.Render("brush  ") + brush + " " + white.Render(m.snap.Brush.Label()) + "\n")
	if m.snap.Editable {
		side.WriteString(viz.MetricLabel.Render("cursor ") + white.Render(fmt.Sprintf("(%d, %d)", m.cursor.Row, m.cursor.Col)) + "\n")
		if m.drag {
			side.WriteString(yellow.Render("drag painting") + "\n")
		}
	} else {
		side.WriteString(dim.Render("switch to custom to paint") + "\n")
	}
	side.WriteString("\n" + viz.Minimap(m.snap.Geometry))

	return lipgloss.JoinHorizontal(lipgloss.Top, grid, "   ", side.String()) + "\n\n" + viz.Legend(m.theme)
}

func (m Model) viewAnalysis() string {
	var b strings.Builder
	losses := m.snap.Losses
	_, top := losses.Dominant()

	for _, label := range losses.Labels() {
		v := losses[label]
		frac := 0.0
		if top > 0 {
			frac = v / top
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			viz.MetricLabel.Render(fmt.Sprintf("%-20s", label)),
			viz.MetricValue.Render(metrics.FormatValue(v)),
			viz.ProgressBar(frac, 24)))
	}
	b.WriteString(viz.MetricLabel.Render(fmt.Sprintf("%-20s", "Total")) + " " + white.Render(metrics.FormatValue(losses.Total())) + "\n\n")

	b.WriteString(m.statusLine(session.ActionAnalyze, "analysis") + "\n\n")
	if m.snap.Analysis != "" {
		width := max(m.width-8, 40)
		b.WriteString(lipgloss.NewStyle().Width(width).Render(m.snap.Analysis))
	} else {
		b.WriteString(dim.Render("press a to explain the loss terms"))
	}
	return b.String()
}

func (m Model) viewImages() string {
	var b strings.Builder
	for i, name := range imageNames {
		if imageKind(i) == m.image {
			b.WriteString(cyan.Render("[" + name + "]"))
		} else {
			b.WriteString(dim.Render(" " + name + " "))
		}
		b.WriteString(" ")
	}
	b.WriteString("\n\n")

	uri := ""
	switch m.image {
	case imageStreamline:
		uri = m.snap.Images.Streamline
	case imagePressure:
		uri = m.snap.Images.Pressure
	case imageInitial:
		if m.prompting {
			b.WriteString(viz.MetricLabel.Render("prompt ") + white.Render(m.prompt+"▋") + "\n\n")
		} else if ic := m.snap.InitialCondition; ic != nil {
			b.WriteString(viz.MetricLabel.Render("prompt ") + dim.Render(ic.Prompt) + "\n\n")
			uri = ic.Image
		}
		b.WriteString(m.statusLine(session.ActionInitial, "image generation") + "\n\n")
	}

	width := min(max(m.width-8, 20), 96)
	if uri == "" {
		b.WriteString(viz.Placeholder(imageNames[m.image], width, 8))
		return b.String()
	}
	out, err := m.preview.render(uri, width)
	if err != nil {
		b.WriteString(red.Render("cannot preview image: " + err.Error()))
		return b.String()
	}
	b.WriteString(out)
	return b.String()
}

func (m Model) viewToast() string {
	if m.status != "" {
		if m.statusErr {
			return red.Render("✗ " + m.status)
		}
		return green.Render("✓ " + m.status)
	}
	n, ok := m.snap.LastNotice()
	if !ok {
		return ""
	}
	if n.Level == session.LevelError {
		return red.Render("✗ "+n.Title) + " " + white.Render(n.Message)
	}
	return green.Render("✓ "+n.Title) + " " + white.Render(n.Message)
}

func (m Model) hints() string {
	if m.editing {
		return "type a value  enter set  esc cancel"
	}
	if m.prompting {
		return "describe the initial flow  enter generate  esc cancel"
	}
	common := "1-4 tabs  g generate  a analyze  t theme  e export  c clear  q quit"
	switch m.tab {
	case tabParameters:
		return "↑↓ select  ←→ step  HL ×10  enter edit  p preset   " + common
	case tabGeometry:
		return "s shape  b brush  arrows move  space paint  v drag   " + common
	case tabImages:
		return "tab switch  i describe initial condition   " + common
	}
	return common
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
