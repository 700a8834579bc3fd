package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/pinnlab/internal/ai"
	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/metrics"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/predict"
)

// Action identifies a long-running operation with its own status slot.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionAnalyze  Action = "analyze"
	ActionInitial  Action = "initial-condition"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a short user-facing notification.
type Notice struct {
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// InitialCondition is an image produced from a text description.
type InitialCondition struct {
	Prompt string `json:"prompt"`
	Image  string `json:"image"`
}

const (
	maxNotices = 20

	explainGeometry           = "Custom user-defined grid"
	explainBoundaryConditions = "Defined by geometry map"

	// shown in the analysis panel when the backend reports at this Reynolds number
	backendStatusReynolds = 50
	backendStatusText     = "Retrieved from backend"
)

// Deps are the collaborators and defaults a session is built from.
type Deps struct {
	Predictor predict.Predictor
	Explainer ai.Explainer
	Images    ai.ImageGenerator
	Log       logrus.FieldLogger

	Width, Height int
	Shape         geometry.Shape
	Defaults      params.SimulationParameters
	Losses        metrics.LossData

	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Width <= 0 {
		d.Width = geometry.GridWidth
	}
	if d.Height <= 0 {
		d.Height = geometry.GridHeight
	}
	if d.Shape == "" {
		d.Shape = geometry.Cylinder
	}
	if d.Defaults == (params.SimulationParameters{}) {
		d.Defaults = params.Default()
	}
	if d.Losses == nil {
		d.Losses = metrics.Mock()
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type Session struct {
	id   string
	deps Deps
	log  logrus.FieldLogger

	mu         sync.Mutex
	parameters params.SimulationParameters
	editor     *geometry.Editor
	images     predict.Images
	analysis   string
	initial    *InitialCondition
	losses     metrics.LossData
	notices    []Notice
	status     map[Action]Status
	version    uint64
	created    time.Time
	closed     bool

	subs    map[int]chan Snapshot
	nextSub int
}

func New(id string, deps Deps) *Session {
	deps = deps.withDefaults()
	return &Session{
		id:         id,
		deps:       deps,
		log:        deps.Log.WithField("session", id),
		parameters: deps.Defaults,
		editor:     geometry.NewEditor(deps.Width, deps.Height, deps.Shape),
		losses:     deps.Losses.Clone(),
		status: map[Action]Status{
			ActionGenerate: StatusIdle,
			ActionAnalyze:  StatusIdle,
			ActionInitial:  StatusIdle,
		},
		created: deps.Now(),
		subs:    make(map[int]chan Snapshot),
	}
}

func (s *Session) ID() string { return s.id }

// Close stops every subscription. Later mutations fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// mutate runs fn under the lock and publishes a snapshot if it succeeds.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := fn(); err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *Session) SetParameters(p params.SimulationParameters) error {
	return s.mutate(func() error {
		s.parameters = p
		return nil
	})
}

// SetParam assigns a typed-in value without range clamping.
func (s *Session) SetParam(f params.Field, v float64) error {
	return s.mutate(func() error {
		p, err := s.parameters.Set(f, v)
		if err != nil {
			return err
		}
		s.parameters = p
		return nil
	})
}

// StepParam nudges a parameter like a slider would.
func (s *Session) StepParam(f params.Field, delta int) error {
	return s.mutate(func() error {
		p, err := s.parameters.Step(f, delta)
		if err != nil {
			return err
		}
		s.parameters = p
		return nil
	})
}

func (s *Session) ApplyPreset(name string) error {
	pr, err := params.GetPreset(name)
	if err != nil {
		return err
	}
	return s.mutate(func() error {
		s.parameters = s.parameters.Apply(pr)
		return nil
	})
}

// ApplyScenario loads an obstacle together with a full parameter set.
func (s *Session) ApplyScenario(shape geometry.Shape, p params.SimulationParameters) error {
	shape, err := geometry.ParseShape(string(shape))
	if err != nil {
		return err
	}
	return s.mutate(func() error {
		s.parameters = p
		s.editor.SetShape(shape)
		return nil
	})
}

func (s *Session) SetShape(shape geometry.Shape) error {
	shape, err := geometry.ParseShape(string(shape))
	if err != nil {
		return err
	}
	return s.mutate(func() error {
		s.editor.SetShape(shape)
		return nil
	})
}

func (s *Session) SetBrush(bc geometry.BoundaryCondition) error {
	if !bc.Valid() {
		return geometry.ErrUnknownCondition
	}
	return s.mutate(func() error {
		s.editor.SetBrush(bc)
		return nil
	})
}

func (s *Session) Paint(row, col int) error {
	return s.mutate(func() error { return s.editor.Paint(row, col) })
}

func (s *Session) PaintLine(r0, c0, r1, c1 int) error {
	return s.mutate(func() error { return s.editor.PaintLine(r0, c0, r1, c1) })
}

func (s *Session) ClearNotices() error {
	return s.mutate(func() error {
		s.notices = nil
		return nil
	})
}

// begin moves an action to pending and runs reset under the same lock.
func (s *Session) begin(a Action, reset func()) error {
	return s.mutate(func() error {
		if s.status[a] == StatusPending {
			return ErrBusy
		}
		s.status[a] = StatusPending
		reset()
		return nil
	})
}

// finish settles an action and applies its outcome. A closed session still
// records the status so a late reply never leaves it pending.
func (s *Session) finish(a Action, st Status, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[a] = st
	apply()
	if !s.closed {
		s.changed()
	}
}

// Generate requests streamline and pressure images for the current
// parameters. Previous images and analysis are cleared when it starts.
func (s *Session) Generate(ctx context.Context) (predict.Images, error) {
	var p params.SimulationParameters
	err := s.begin(ActionGenerate, func() {
		s.images = predict.Images{}
		s.analysis = ""
		p = s.parameters
	})
	if err != nil {
		return predict.Images{}, err
	}

	imgs, err := s.deps.Predictor.Predict(ctx, p)
	if err != nil {
		msg := predict.UserMessage(err)
		s.log.WithError(err).Warn("flow generation failed")
		s.finish(ActionGenerate, StatusFailed, func() {
			s.addNotice(LevelError, "Generation Failed", msg)
		})
		return predict.Images{}, &Failure{Action: ActionGenerate, Message: msg, Err: err}
	}

	s.finish(ActionGenerate, StatusSuccess, func() {
		s.images = imgs
		s.addNotice(LevelInfo, "Success!", "Flow generated from your API.")
	})
	return imgs, nil
}

// Analyze asks the explainer about the current loss terms. The geometry is
// sent as one string of boundary initials per row.
func (s *Session) Analyze(ctx context.Context) (string, error) {
	var req ai.ExplainRequest
	err := s.begin(ActionAnalyze, func() {
		s.analysis = ""
		req = ai.ExplainRequest{
			LossData: s.losses.Clone(),
			SimulationParameters: ai.FlowSetup{
				ReynoldsNumber:     s.parameters.ReynoldsNumber,
				KinematicViscosity: s.parameters.KinematicViscosity,
				FluidDensity:       s.parameters.FluidDensity,
				Geometry:           explainGeometry,
				BoundaryConditions: explainBoundaryConditions,
			},
			HistoricalFlowStates: s.editor.Geometry().DigestJSON(),
		}
	})
	if err != nil {
		return "", err
	}

	text, err := s.deps.Explainer.Explain(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ai.ErrEmptyCompletion
	}
	if err != nil {
		s.log.WithError(err).Warn("analysis failed")
		s.finish(ActionAnalyze, StatusFailed, func() {
			s.addNotice(LevelError, "Analysis Failed", ai.ExplainFailedMessage)
		})
		return "", &Failure{Action: ActionAnalyze, Message: ai.ExplainFailedMessage, Err: err}
	}

	s.finish(ActionAnalyze, StatusSuccess, func() { s.analysis = text })
	return text, nil
}

// GenerateInitialCondition renders an initial-condition image from prompt.
// A blank prompt is rejected without touching the action state.
func (s *Session) GenerateInitialCondition(ctx context.Context, prompt string) (InitialCondition, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return InitialCondition{}, ai.ErrEmptyPrompt
	}
	if err := s.begin(ActionInitial, func() { s.initial = nil }); err != nil {
		return InitialCondition{}, err
	}

	img, err := s.deps.Images.Generate(ctx, prompt)
	if err == nil && img == "" {
		err = ai.ErrNoMedia
	}
	if err != nil {
		s.log.WithError(err).Warn("initial condition generation failed")
		s.finish(ActionInitial, StatusFailed, func() {
			s.addNotice(LevelError, "Image Generation Failed", ai.ImageFailedMessage)
		})
		return InitialCondition{}, &Failure{Action: ActionInitial, Message: ai.ImageFailedMessage, Err: err}
	}

	ic := InitialCondition{Prompt: prompt, Image: img}
	s.finish(ActionInitial, StatusSuccess, func() { s.initial = &ic })
	return ic, nil
}

// addNotice appends a notice, keeping the most recent ones. Caller holds s.mu.
func (s *Session) addNotice(level Level, title, msg string) {
	s.notices = append(s.notices, Notice{Level: level, Title: title, Message: msg, Time: s.deps.Now()})
	if len(s.notices) > maxNotices {
		s.notices = append([]Notice(nil), s.notices[len(s.notices)-maxNotices:]...)
	}
}
