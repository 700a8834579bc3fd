package tui

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/pinnlab/internal/ai"
	"github.com/san-kum/pinnlab/internal/datauri"
	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/logging"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/predict"
	"github.com/san-kum/pinnlab/internal/session"
)

type stubPredictor struct {
	imgs predict.Images
	err  error
}

func (p stubPredictor) Predict(context.Context, params.SimulationParameters) (predict.Images, error) {
	return p.imgs, p.err
}

type stubAI struct {
	prompts []string
}

func (a *stubAI) Explain(context.Context, ai.ExplainRequest) (string, error) {
	return "momentum residuals dominate", nil
}

func (a *stubAI) Generate(_ context.Context, prompt string) (string, error) {
	a.prompts = append(a.prompts, prompt)
	return tinyPNG(), nil
}

func tinyPNG() string {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.Set(x, 0, color.RGBA{0, 0, 255, 255})
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return datauri.Encode("image/png", buf.Bytes())
}

func newTestModel(t *testing.T, pred predict.Predictor) (Model, *stubAI) {
	t.Helper()
	gen := &stubAI{}
	sess := session.New("tui", session.Deps{
		Predictor: pred,
		Explainer: gen,
		Images:    gen,
		Log:       logging.Discard(),
	})
	m := New(sess)
	t.Cleanup(func() {
		m.cancel()
		sess.Close()
	})
	return m, gen
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

// runCmd executes cmd and feeds the action result back into m.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		// the first command is the action; the rest only animate
		msg = batch[0]()
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestParameterStepping(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})

	m, _ = press(m, "right", "right")
	if got := m.snap.Parameters.ReynoldsNumber; got != 220 {
		t.Errorf("expected Re 220, got %v", got)
	}
	m, _ = press(m, "H")
	if got := m.snap.Parameters.ReynoldsNumber; got != 120 {
		t.Errorf("expected Re 120, got %v", got)
	}

	m, _ = press(m, "down", "down", "left")
	if got := m.snap.Parameters.FluidDensity; got < 1.099 || got > 1.101 {
		t.Errorf("expected density 1.1, got %v", got)
	}
}

func TestParameterEditing(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})

	m, _ = press(m, "enter")
	if !m.editing || m.editBuf != "200" {
		t.Fatalf("expected edit mode with 200, got %v %q", m.editing, m.editBuf)
	}
	m, _ = press(m, "backspace", "backspace", "backspace", "1", "5", "0", "0", "enter")
	if m.editing {
		t.Error("expected edit mode to end")
	}
	// typed values are not clamped to the slider range
	if got := m.snap.Parameters.ReynoldsNumber; got != 1500 {
		t.Errorf("expected Re 1500, got %v", got)
	}

	m, _ = press(m, "enter", "x", "esc")
	if m.snap.Parameters.ReynoldsNumber != 1500 {
		t.Error("escape should keep the old value")
	}
}

func TestPresetCycling(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})
	m, _ = press(m, "p")
	// presets cycle alphabetically: air, oil, water
	if m.snap.Parameters.FluidDensity != 1.2 {
		t.Errorf("expected air density, got %v", m.snap.Parameters.FluidDensity)
	}
	m, _ = press(m, "p", "p")
	if m.snap.Parameters.FluidDensity != 1000 {
		t.Errorf("expected water density, got %v", m.snap.Parameters.FluidDensity)
	}
}

func TestGeometryPainting(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})
	m, _ = press(m, "2")
	if m.tab != tabGeometry {
		t.Fatalf("expected geometry tab, got %v", m.tab)
	}

	m, _ = press(m, " ")
	if m.status == "" || !m.statusErr {
		t.Error("painting a cylinder should report an error")
	}

	// cylinder -> rectangle -> airfoil -> custom
	m, _ = press(m, "s", "s", "s")
	if m.snap.Shape != geometry.Custom || m.snap.Geometry.Count(geometry.Solid) != 0 {
		t.Fatalf("expected empty custom grid, got %s", m.snap.Shape)
	}

	m, _ = press(m, "b", "down", " ")
	if m.snap.Brush != geometry.Inflow || m.snap.Geometry.At(1, 0) != geometry.Inflow {
		t.Errorf("expected inflow at (1,0)")
	}

	m, _ = press(m, "v", "right", "right", "right")
	if n := m.snap.Geometry.Count(geometry.Inflow); n != 4 {
		t.Errorf("expected 4 inflow cells after drag, got %d", n)
	}
	m, _ = press(m, "v", "right")
	if m.snap.Geometry.At(1, 4) != geometry.Fluid {
		t.Error("moving without drag should not paint")
	}
}

func TestGeometryCursorBounds(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})
	m, _ = press(m, "2", "up", "left")
	if m.cursor.Row != 0 || m.cursor.Col != 0 {
		t.Errorf("cursor left the grid: %+v", m.cursor)
	}
	for i := 0; i < 40; i++ {
		m, _ = press(m, "right", "down")
	}
	if m.cursor.Row != 23 || m.cursor.Col != 31 {
		t.Errorf("cursor left the grid: %+v", m.cursor)
	}
}

func TestGenerateAction(t *testing.T) {
	uri := tinyPNG()
	m, _ := newTestModel(t, stubPredictor{imgs: predict.Images{Streamline: uri, Pressure: uri}})

	m, cmd := press(m, "g")
	m = runCmd(t, m, cmd)
	if m.snap.Images.Streamline != uri {
		t.Fatal("images not stored")
	}
	if toast := m.viewToast(); !strings.Contains(toast, "Flow generated from your API.") {
		t.Errorf("unexpected toast %q", toast)
	}

	m, _ = press(m, "4")
	if out := m.View(); !strings.Contains(out, "▀") {
		t.Error("expected a half-block preview")
	}
}

func TestGenerateFailureToast(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{err: errors.New("connection refused")})
	m, cmd := press(m, "g")
	m = runCmd(t, m, cmd)

	toast := m.viewToast()
	if !strings.Contains(toast, "Generation Failed") || !strings.Contains(toast, "Is the backend server running?") {
		t.Errorf("unexpected toast %q", toast)
	}
}

func TestAnalyzeAction(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})
	m, cmd := press(m, "3", "a")
	m = runCmd(t, m, cmd)
	if m.snap.Analysis != "momentum residuals dominate" {
		t.Errorf("unexpected analysis %q", m.snap.Analysis)
	}
	out := m.View()
	for _, want := range []string{"Continuity Loss", "0.0123", "momentum residuals dominate"} {
		if !strings.Contains(out, want) {
			t.Errorf("analysis view missing %q", want)
		}
	}
}

func TestInitialConditionPrompt(t *testing.T) {
	m, gen := newTestModel(t, stubPredictor{})
	m, _ = press(m, "4", "i")
	if !m.prompting || m.image != imageInitial {
		t.Fatal("expected prompt mode")
	}
	m, _ = press(m, "q", " ", "v")
	if m.prompt != "q v" {
		t.Errorf("unexpected prompt %q", m.prompt)
	}
	m, cmd := press(m, "enter")
	m = runCmd(t, m, cmd)
	if len(gen.prompts) != 1 || gen.prompts[0] != "q v" {
		t.Errorf("unexpected prompts %v", gen.prompts)
	}
	if m.snap.InitialCondition == nil {
		t.Error("initial condition not stored")
	}
}

func TestImageTabSwitch(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})
	m, _ = press(m, "4", "tab")
	if m.image != imagePressure {
		t.Errorf("expected pressure, got %v", m.image)
	}
	if out := m.View(); !strings.Contains(out, "no pressure image") {
		t.Error("expected placeholder")
	}
}

func TestExport(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})
	m, _ = press(m, "e")
	if !m.statusErr {
		t.Error("expected an error without an export function")
	}

	var got session.Snapshot
	m.export = func(s session.Snapshot) (string, error) {
		got = s
		return "/tmp/run", nil
	}
	m, cmd := press(m, "e")
	next, _ := m.Update(cmd())
	m = next.(Model)
	if got.ID != "tui" || !strings.Contains(m.status, "/tmp/run") {
		t.Errorf("unexpected export result %q", m.status)
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})
	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestSnapshotSubscription(t *testing.T) {
	m, _ := newTestModel(t, stubPredictor{})
	msg := m.Init()()
	if _, ok := msg.(snapshotMsg); !ok {
		t.Fatalf("expected initial snapshot, got %T", msg)
	}

	m.sess.SetShape(geometry.Airfoil)
	next, _ := m.Update(waitForSnapshot(m.updates)())
	if next.(Model).snap.Shape != geometry.Airfoil {
		t.Error("snapshot from another goroutine not applied")
	}
}

func TestPreviewCacheFollowsSnapshot(t *testing.T) {
	uri := tinyPNG()
	m, _ := newTestModel(t, stubPredictor{imgs: predict.Images{Streamline: uri, Pressure: uri}})

	m, cmd := press(m, "g")
	m = runCmd(t, m, cmd)
	m, _ = press(m, "4")
	m.View()
	if n := m.preview.size(); n != 1 {
		t.Fatalf("expected 1 cached preview, got %d", n)
	}

	snap := m.snap
	snap.Images = predict.Images{Streamline: datauri.Encode("image/png", []byte("other")), Pressure: uri}
	next, _ := m.Update(snapshotMsg(snap))
	m = next.(Model)
	if n := m.preview.size(); n != 1 {
		t.Errorf("expected the pressure preview kept, got %d entries", n)
	}

	snap.Images = predict.Images{}
	next, _ = m.Update(snapshotMsg(snap))
	m = next.(Model)
	if n := m.preview.size(); n != 0 {
		t.Errorf("expected an empty cache once images are cleared, got %d", n)
	}
}
