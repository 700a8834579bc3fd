package session_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pinnlab/internal/ai"
	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/logging"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/predict"
	"github.com/san-kum/pinnlab/internal/session"
)

var _ = Describe("Session", func() {
	var (
		pred *fakePredictor
		expl *fakeExplainer
		imgs *fakeImages
		s    *session.Session
		ctx  context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		pred = &fakePredictor{imgs: predict.Images{Streamline: "data:image/png;base64,AA==", Pressure: "data:image/png;base64,BB=="}}
		expl = &fakeExplainer{text: "continuity residual is low"}
		imgs = &fakeImages{image: "data:image/png;base64,CC=="}
		s = session.New("test", session.Deps{
			Predictor: pred,
			Explainer: expl,
			Images:    imgs,
			Log:       logging.Discard(),
		})
	})

	AfterEach(func() {
		s.Close()
	})

	Describe("initial state", func() {
		It("starts from the defaults with a cylinder", func() {
			snap := s.Snapshot()
			Expect(snap.ID).To(Equal("test"))
			Expect(snap.Parameters).To(Equal(params.Default()))
			Expect(snap.Shape).To(Equal(geometry.Cylinder))
			Expect(snap.Brush).To(Equal(geometry.Solid))
			Expect(snap.Editable).To(BeFalse())
			Expect(snap.Geometry.Equal(geometry.Rasterize(geometry.Cylinder, 32, 24))).To(BeTrue())
			Expect(snap.Losses).To(HaveLen(5))
			Expect(snap.Status).To(HaveKeyWithValue(session.ActionGenerate, session.StatusIdle))
			Expect(snap.Regime).To(Equal("vortex shedding"))
			Expect(snap.BackendStatus).To(BeEmpty())
		})
	})

	Describe("synchronous edits", func() {
		It("sets and steps parameters", func() {
			Expect(s.SetParam(params.Reynolds, 50)).To(Succeed())
			snap := s.Snapshot()
			Expect(snap.Parameters.ReynoldsNumber).To(Equal(50.0))
			Expect(snap.BackendStatus).To(Equal("Retrieved from backend"))

			Expect(s.StepParam(params.Reynolds, 3)).To(Succeed())
			Expect(s.Snapshot().Parameters.ReynoldsNumber).To(BeNumerically("~", 80, 1e-9))
		})

		It("applies presets without touching Reynolds", func() {
			Expect(s.ApplyPreset("water")).To(Succeed())
			p := s.Snapshot().Parameters
			Expect(p.ReynoldsNumber).To(Equal(200.0))
			Expect(p.KinematicViscosity).To(Equal(1e-6))
			Expect(p.FluidDensity).To(Equal(1000.0))

			Expect(s.ApplyPreset("mercury")).To(MatchError(params.ErrUnknownPreset))
		})

		It("loads a scenario", func() {
			p := params.SimulationParameters{ReynoldsNumber: 500, KinematicViscosity: 1.5e-5, FluidDensity: 1.2}
			Expect(s.ApplyScenario(geometry.Airfoil, p)).To(Succeed())
			snap := s.Snapshot()
			Expect(snap.Parameters).To(Equal(p))
			Expect(snap.Shape).To(Equal(geometry.Airfoil))
			Expect(snap.Regime).To(Equal("turbulent"))
		})

		It("only paints in custom mode", func() {
			Expect(s.Paint(0, 0)).To(MatchError(geometry.ErrPaintLocked))

			Expect(s.SetShape(geometry.Custom)).To(Succeed())
			Expect(s.SetBrush(geometry.Inflow)).To(Succeed())
			Expect(s.Paint(0, 0)).To(Succeed())
			Expect(s.PaintLine(5, 0, 5, 31)).To(Succeed())

			snap := s.Snapshot()
			Expect(snap.Geometry.At(0, 0)).To(Equal(geometry.Inflow))
			Expect(snap.Geometry.Count(geometry.Inflow)).To(Equal(33))
			Expect(s.Paint(24, 0)).To(MatchError(geometry.ErrOutOfRange))
		})

		It("rejects unknown shapes and brushes", func() {
			Expect(s.SetShape("hexagon")).To(MatchError(geometry.ErrUnknownShape))
			Expect(s.SetBrush(geometry.BoundaryCondition(42))).To(MatchError(geometry.ErrUnknownCondition))
		})

		It("returns snapshots that do not alias the session", func() {
			Expect(s.SetShape(geometry.Custom)).To(Succeed())
			snap := s.Snapshot()
			snap.Geometry[0][0] = geometry.Wall
			snap.Losses["Continuity Loss"] = 9
			Expect(s.Snapshot().Geometry.At(0, 0)).To(Equal(geometry.Fluid))
			Expect(s.Snapshot().Losses["Continuity Loss"]).To(Equal(0.0123))
		})
	})

	Describe("Generate", func() {
		It("stores images and a success notice", func() {
			got, err := s.Generate(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Streamline).To(Equal("data:image/png;base64,AA=="))

			snap := s.Snapshot()
			Expect(snap.Images).To(Equal(got))
			Expect(snap.Status[session.ActionGenerate]).To(Equal(session.StatusSuccess))
			n, ok := snap.LastNotice()
			Expect(ok).To(BeTrue())
			Expect(n.Title).To(Equal("Success!"))
			Expect(n.Message).To(Equal("Flow generated from your API."))
		})

		It("records a failure notice with the user message", func() {
			pred.err = &predict.Error{Status: 500, Detail: "model not loaded"}
			_, err := s.Generate(ctx)

			var failure *session.Failure
			Expect(errors.As(err, &failure)).To(BeTrue())
			Expect(failure.Message).To(Equal("model not loaded"))

			snap := s.Snapshot()
			Expect(snap.Status[session.ActionGenerate]).To(Equal(session.StatusFailed))
			n, _ := snap.LastNotice()
			Expect(n.Level).To(Equal(session.LevelError))
			Expect(n.Title).To(Equal("Generation Failed"))
		})

		It("clears previous images and analysis when it starts", func() {
			_, err := s.Generate(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Analyze(ctx)
			Expect(err).NotTo(HaveOccurred())

			pred.gate = make(chan struct{})
			done := make(chan struct{})
			go func() {
				defer close(done)
				s.Generate(ctx)
			}()

			Eventually(func() bool { return s.Snapshot().Pending(session.ActionGenerate) }).Should(BeTrue())
			snap := s.Snapshot()
			Expect(snap.Images).To(Equal(predict.Images{}))
			Expect(snap.Analysis).To(BeEmpty())

			close(pred.gate)
			Eventually(done).Should(BeClosed())
		})

		It("refuses re-entry while pending", func() {
			pred.gate = make(chan struct{})
			done := make(chan struct{})
			go func() {
				defer close(done)
				s.Generate(ctx)
			}()
			Eventually(pred.Calls).Should(Equal(1))

			_, err := s.Generate(ctx)
			Expect(err).To(MatchError(session.ErrBusy))
			Expect(pred.Calls()).To(Equal(1))

			By("letting a different action run meanwhile")
			_, err = s.Analyze(ctx)
			Expect(err).NotTo(HaveOccurred())

			close(pred.gate)
			Eventually(done).Should(BeClosed())
			Expect(s.Snapshot().Status[session.ActionGenerate]).To(Equal(session.StatusSuccess))

			By("allowing a retry once settled")
			pred.gate = nil
			_, err = s.Generate(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pred.Calls()).To(Equal(2))
		})

		It("sends the parameters current at start", func() {
			Expect(s.SetParam(params.Reynolds, 120)).To(Succeed())
			_, err := s.Generate(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pred.calls[0].ReynoldsNumber).To(Equal(120.0))
		})
	})

	Describe("Analyze", func() {
		It("builds the request from losses, parameters and the geometry digest", func() {
			Expect(s.SetShape(geometry.Custom)).To(Succeed())
			Expect(s.Paint(0, 1)).To(Succeed())

			text, err := s.Analyze(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("continuity residual is low"))
			Expect(s.Snapshot().Analysis).To(Equal(text))

			req := expl.Last()
			Expect(req.LossData).To(HaveKeyWithValue("Adversarial Loss", 0.6789))
			Expect(req.SimulationParameters.ReynoldsNumber).To(Equal(200.0))
			Expect(req.SimulationParameters.Geometry).To(Equal("Custom user-defined grid"))
			Expect(req.SimulationParameters.BoundaryConditions).To(Equal("Defined by geometry map"))
			Expect(req.HistoricalFlowStates).To(HavePrefix(`["fsffffffffffffffffffffffffffffff","ffff`))
		})

		It("reports a fixed message on failure", func() {
			expl.err = errors.New("quota exceeded")
			_, err := s.Analyze(ctx)
			Expect(err).To(MatchError(ContainSubstring("Failed to analyze discrepancies. Please try again.")))

			n, _ := s.Snapshot().LastNotice()
			Expect(n.Title).To(Equal("Analysis Failed"))
			Expect(n.Message).To(Equal("Failed to analyze discrepancies. Please try again."))
		})

		It("treats an empty explanation as a failure", func() {
			expl.text = "  "
			_, err := s.Analyze(ctx)
			Expect(err).To(MatchError(ai.ErrEmptyCompletion))
			Expect(s.Snapshot().Status[session.ActionAnalyze]).To(Equal(session.StatusFailed))
		})
	})

	Describe("GenerateInitialCondition", func() {
		It("keeps the prompt with the image", func() {
			ic, err := s.GenerateInitialCondition(ctx, "  a vortex pair  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(imgs.prompt).To(Equal("a vortex pair"))
			Expect(ic.Image).To(Equal("data:image/png;base64,CC=="))
			Expect(s.Snapshot().InitialCondition).To(Equal(&session.InitialCondition{Prompt: "a vortex pair", Image: ic.Image}))
		})

		It("rejects a blank prompt without changing state", func() {
			_, err := s.GenerateInitialCondition(ctx, " ")
			Expect(err).To(MatchError(ai.ErrEmptyPrompt))
			Expect(s.Snapshot().Status[session.ActionInitial]).To(Equal(session.StatusIdle))
		})

		It("fails when the service returns no media", func() {
			imgs.image = ""
			_, err := s.GenerateInitialCondition(ctx, "laminar")
			Expect(err).To(MatchError(ai.ErrNoMedia))
			n, _ := s.Snapshot().LastNotice()
			Expect(n.Message).To(Equal("Failed to generate initial condition image."))
		})
	})

	Describe("ClearNotices", func() {
		It("drops notices and fails once the session is closed", func() {
			_, err := s.Generate(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Snapshot().Notices).To(HaveLen(1))

			Expect(s.ClearNotices()).To(Succeed())
			Expect(s.Snapshot().Notices).To(BeEmpty())

			s.Close()
			Expect(s.ClearNotices()).To(MatchError(session.ErrClosed))
		})
	})

	Describe("Subscribe", func() {
		It("delivers the current state and later changes", func() {
			ch, cancel := s.Subscribe()
			defer cancel()

			var first session.Snapshot
			Eventually(ch).Should(Receive(&first))
			Expect(first.Shape).To(Equal(geometry.Cylinder))

			Expect(s.SetShape(geometry.Airfoil)).To(Succeed())
			var next session.Snapshot
			Eventually(ch).Should(Receive(&next))
			Expect(next.Shape).To(Equal(geometry.Airfoil))
			Expect(next.Version).To(BeNumerically(">", first.Version))
		})

		It("keeps only the latest snapshot for a slow reader", func() {
			ch, cancel := s.Subscribe()
			defer cancel()

			for i := 1; i <= 5; i++ {
				Expect(s.SetParam(params.Reynolds, float64(i*10))).To(Succeed())
			}
			var snap session.Snapshot
			Eventually(ch).Should(Receive(&snap))
			Expect(snap.Parameters.ReynoldsNumber).To(Equal(50.0))
			Consistently(ch, 50*time.Millisecond).ShouldNot(Receive())
		})

		It("closes the channel on cancel and on Close", func() {
			ch, cancel := s.Subscribe()
			cancel()
			cancel()
			Eventually(ch).Should(BeClosed())

			ch2, _ := s.Subscribe()
			s.Close()
			Eventually(ch2).Should(BeClosed())
			Expect(s.SetParam(params.Reynolds, 10)).To(MatchError(session.ErrClosed))
		})
	})
})

var _ = Describe("Manager", func() {
	var m *session.Manager

	BeforeEach(func() {
		m = session.NewManager(session.Deps{Log: logging.Discard()})
	})

	It("creates sessions with unique ids", func() {
		a := m.Create()
		b := m.Create()
		Expect(a.ID()).NotTo(Equal(b.ID()))
		Expect(a.ID()).To(HaveLen(36))
		Expect(m.List()).To(ConsistOf(a.ID(), b.ID()))
		Expect(m.Len()).To(Equal(2))
	})

	It("looks up and closes sessions", func() {
		s := m.Create()
		got, err := m.Get(s.ID())
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeIdenticalTo(s))

		Expect(m.Close(s.ID())).To(Succeed())
		_, err = m.Get(s.ID())
		Expect(err).To(MatchError(session.ErrNotFound))
		Expect(m.Close(s.ID())).To(MatchError(session.ErrNotFound))
	})

	It("closes everything", func() {
		s := m.Create()
		ch, _ := s.Subscribe()
		m.CloseAll()
		Expect(m.Len()).To(BeZero())
		Eventually(ch).Should(BeClosed())
	})
})
