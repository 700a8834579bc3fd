// Package tui is the terminal control panel over a session.
package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/session"
	"github.com/san-kum/pinnlab/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type tab int

const (
	tabParameters tab = iota
	tabGeometry
	tabAnalysis
	tabImages
)

var tabNames = []string{"Parameters", "Geometry", "Analysis", "Images"}

type imageKind int

const (
	imageStreamline imageKind = iota
	imagePressure
	imageInitial
)

var imageNames = []string{"streamline", "pressure", "initial condition"}

// ExportFunc saves a snapshot and returns where it went.
type ExportFunc func(session.Snapshot) (string, error)

type Option func(*Model)

// WithTimeout bounds every network action started from the panel.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) { m.timeout = d }
}

func WithExport(fn ExportFunc) Option {
	return func(m *Model) { m.export = fn }
}

func WithTheme(t viz.Theme) Option {
	return func(m *Model) { m.theme = t }
}

type Model struct {
	sess    *session.Session
	snap    session.Snapshot
	updates <-chan session.Snapshot
	cancel  func()

	tab tab

	paramCursor int
	editing     bool
	editBuf     string
	presetIdx   int

	cursor viz.Cursor
	drag   bool

	image     imageKind
	prompting bool
	prompt    string

	// local feedback for edits that never reach the session
	status    string
	statusErr bool

	theme   viz.Theme
	timeout time.Duration
	export  ExportFunc
	preview *previewCache
	frame   int
	ticking bool

	width  int
	height int
}

func New(sess *session.Session, opts ...Option) Model {
	updates, cancel := sess.Subscribe()
	m := Model{
		sess:    sess,
		snap:    sess.Snapshot(),
		updates: updates,
		cancel:  cancel,
		theme:   viz.CurrentTheme,
		timeout: 60 * time.Second,
		preview: newPreviewCache(),
		width:   100,
		height:  40,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Run shows the panel until the user quits.
func Run(sess *session.Session, opts ...Option) error {
	m := New(sess, opts...)
	defer m.cancel()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type snapshotMsg session.Snapshot

type closedMsg struct{}

type actionDoneMsg struct {
	action session.Action
	err    error
}

type exportDoneMsg struct {
	path string
	err  error
}

type tickMsg time.Time

func waitForSnapshot(ch <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd { return waitForSnapshot(m.updates) }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case snapshotMsg:
		m.setSnapshot(session.Snapshot(msg))
		return m, waitForSnapshot(m.updates)
	case closedMsg:
		return m, tea.Quit
	case actionDoneMsg:
		m.setSnapshot(m.sess.Snapshot())
		if msg.err != nil && !isFailure(msg.err) {
			// busy or rejected before any notice was recorded
			m.setStatus(msg.err.Error(), true)
		}
		return m, nil
	case exportDoneMsg:
		if msg.err != nil {
			m.setStatus("export failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("exported to "+msg.path, false)
		}
		return m, nil
	case tickMsg:
		m.frame++
		if m.anyPending() {
			return m, tick()
		}
		m.ticking = false
		return m, nil
	}
	return m, nil
}

func (m Model) anyPending() bool {
	for _, st := range m.snap.Status {
		if st == session.StatusPending {
			return true
		}
	}
	return false
}

// setSnapshot replaces the shown state and forgets previews of images the
// session no longer holds.
func (m *Model) setSnapshot(snap session.Snapshot) {
	m.snap = snap
	uris := []string{snap.Images.Streamline, snap.Images.Pressure}
	if ic := snap.InitialCondition; ic != nil {
		uris = append(uris, ic.Image)
	}
	m.preview.retain(uris...)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// refresh re-reads the session after a synchronous edit.
func (m *Model) refresh(err error) {
	m.snap = m.sess.Snapshot()
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.status = ""
}

// start runs a session action off the UI goroutine.
func (m Model) start(a session.Action, fn func(ctx context.Context) error) (Model, tea.Cmd) {
	timeout := m.timeout
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return actionDoneMsg{action: a, err: fn(ctx)}
	}
	m.status = ""
	cmds := []tea.Cmd{run}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, tick())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) generate() (Model, tea.Cmd) {
	return m.start(session.ActionGenerate, func(ctx context.Context) error {
		_, err := m.sess.Generate(ctx)
		return err
	})
}

func (m Model) analyze() (Model, tea.Cmd) {
	return m.start(session.ActionAnalyze, func(ctx context.Context) error {
		_, err := m.sess.Analyze(ctx)
		return err
	})
}

func (m Model) initialCondition(prompt string) (Model, tea.Cmd) {
	return m.start(session.ActionInitial, func(ctx context.Context) error {
		_, err := m.sess.GenerateInitialCondition(ctx, prompt)
		return err
	})
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.editing {
		return m.editKey(msg)
	}
	if m.prompting {
		return m.promptKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "1", "2", "3", "4":
		m.tab = tab(msg.String()[0] - '1')
		return m, nil
	case "]":
		m.tab = (m.tab + 1) % tab(len(tabNames))
		return m, nil
	case "[":
		m.tab = (m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames))
		return m, nil
	case "g":
		return m.generate()
	case "a":
		return m.analyze()
	case "t":
		m.theme = viz.NextTheme(m.theme)
		return m, nil
	case "e":
		return m.exportSnapshot()
	case "c":
		m.refresh(m.sess.ClearNotices())
		return m, nil
	}

	switch m.tab {
	case tabParameters:
		return m.parametersKey(msg)
	case tabGeometry:
		return m.geometryKey(msg)
	case tabImages:
		return m.imagesKey(msg)
	}
	return m, nil
}

func (m Model) exportSnapshot() (Model, tea.Cmd) {
	if m.export == nil {
		m.setStatus("export is not configured", true)
		return m, nil
	}
	snap, export := m.sess.Snapshot(), m.export
	return m, func() tea.Msg {
		path, err := export(snap)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m Model) parametersKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	fields := params.Fields()
	f := fields[m.paramCursor]
	switch msg.String() {
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(fields)-1 {
			m.paramCursor++
		}
	case "left", "h":
		m.refresh(m.sess.StepParam(f, -1))
	case "right", "l":
		m.refresh(m.sess.StepParam(f, 1))
	case "H":
		m.refresh(m.sess.StepParam(f, -10))
	case "L":
		m.refresh(m.sess.StepParam(f, 10))
	case "enter":
		m.editing = true
		m.editBuf = strconv.FormatFloat(m.snap.Parameters.Get(f), 'g', -1, 64)
	case "p":
		names := params.ListPresets()
		name := names[m.presetIdx%len(names)]
		m.presetIdx++
		m.refresh(m.sess.ApplyPreset(name))
		if m.status == "" {
			m.setStatus("preset "+name, false)
		}
	}
	return m, nil
}

func (m Model) editKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		v, err := strconv.ParseFloat(strings.TrimSpace(m.editBuf), 64)
		m.editing = false
		m.editBuf = ""
		if err != nil {
			m.setStatus("not a number", true)
			return m, nil
		}
		m.refresh(m.sess.SetParam(params.Fields()[m.paramCursor], v))
	case "esc":
		m.editing = false
		m.editBuf = ""
	case "backspace":
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
	default:
		if len(msg.String()) == 1 {
			c := msg.String()[0]
			if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' || c == '+' {
				m.editBuf += string(c)
			}
		}
	}
	return m, nil
}

func (m Model) geometryKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	rows, cols := m.snap.Geometry.Height(), m.snap.Geometry.Width()
	from := m.cursor

	switch msg.String() {
	case "s":
		m.refresh(m.sess.SetShape(nextShape(m.snap.Shape)))
		return m, nil
	case "b":
		m.refresh(m.sess.SetBrush(nextCondition(m.snap.Brush)))
		return m, nil
	case "v":
		m.drag = !m.drag
		if m.drag && m.snap.Editable {
			m.refresh(m.sess.Paint(m.cursor.Row, m.cursor.Col))
		}
		return m, nil
	case " ":
		m.refresh(m.sess.Paint(m.cursor.Row, m.cursor.Col))
		return m, nil
	case "up", "k":
		m.cursor.Row = max(m.cursor.Row-1, 0)
	case "down", "j":
		m.cursor.Row = min(m.cursor.Row+1, rows-1)
	case "left", "h":
		m.cursor.Col = max(m.cursor.Col-1, 0)
	case "right", "l":
		m.cursor.Col = min(m.cursor.Col+1, cols-1)
	default:
		return m, nil
	}

	if m.drag && m.snap.Editable && m.cursor != from {
		m.refresh(m.sess.PaintLine(from.Row, from.Col, m.cursor.Row, m.cursor.Col))
	}
	return m, nil
}

func (m Model) imagesKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.image = (m.image + 1) % imageKind(len(imageNames))
	case "shift+tab":
		m.image = (m.image + imageKind(len(imageNames)) - 1) % imageKind(len(imageNames))
	case "i":
		m.prompting = true
		m.image = imageInitial
		if m.snap.InitialCondition != nil {
			m.prompt = m.snap.InitialCondition.Prompt
		}
	}
	return m, nil
}

func (m Model) promptKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		prompt := m.prompt
		m.prompting = false
		if strings.TrimSpace(prompt) == "" {
			m.setStatus("describe the initial condition first", true)
			return m, nil
		}
		return m.initialCondition(prompt)
	case tea.KeyEsc:
		m.prompting = false
	case tea.KeyBackspace:
		if r := []rune(m.prompt); len(r) > 0 {
			m.prompt = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.prompt += " "
	case tea.KeyRunes:
		m.prompt += string(msg.Runes)
	}
	return m, nil
}

func nextShape(s geometry.Shape) geometry.Shape {
	shapes := geometry.Shapes()
	for i, sh := range shapes {
		if sh == s {
			return shapes[(i+1)%len(shapes)]
		}
	}
	return shapes[0]
}

func nextCondition(bc geometry.BoundaryCondition) geometry.BoundaryCondition {
	all := geometry.Conditions()
	for i, c := range all {
		if c == bc {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

func isFailure(err error) bool {
	var f *session.Failure
	return errors.As(err, &f)
}
