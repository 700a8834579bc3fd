package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/san-kum/pinnlab/internal/ai"
	"github.com/san-kum/pinnlab/internal/config"
	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/metrics"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/session"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(r.PathValue("id"))
		if err != nil {
			s.fail(w, err)
			return
		}
		h(w, r, sess)
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var failure *session.Failure
	switch {
	case errors.As(err, &failure):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrNotFound), errors.Is(err, params.ErrUnknownPreset):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy), errors.Is(err, geometry.ErrPaintLocked):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, geometry.ErrOutOfRange),
		errors.Is(err, geometry.ErrUnknownShape),
		errors.Is(err, geometry.ErrUnknownCondition),
		errors.Is(err, params.ErrUnknownField),
		errors.Is(err, params.ErrInvalidParameters),
		errors.Is(err, ai.ErrEmptyPrompt):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// detailFor is the message shown to the user for err.
func detailFor(err error) string {
	var failure *session.Failure
	if errors.As(err, &failure) {
		return failure.Message
	}
	return err.Error()
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		s.log.WithError(err).Error("request failed")
	}
	writeError(w, status, detailFor(err))
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

type lossTerm struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

func (s *Server) handleLosses(w http.ResponseWriter, r *http.Request) {
	losses := metrics.Mock()
	terms := make([]lossTerm, 0, len(losses))
	for _, label := range losses.Labels() {
		terms = append(terms, lossTerm{Label: label, Value: losses[label]})
	}
	writeJSON(w, http.StatusOK, terms)
}

type shapeInfo struct {
	Name  geometry.Shape `json:"name"`
	Label string         `json:"label"`
}

func (s *Server) handleShapes(w http.ResponseWriter, r *http.Request) {
	shapes := geometry.Shapes()
	out := make([]shapeInfo, 0, len(shapes))
	for _, sh := range shapes {
		out = append(out, shapeInfo{Name: sh, Label: sh.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

type presetList struct {
	Fluids    []params.Preset             `json:"fluids"`
	Scenarios map[string]*config.Scenario `json:"scenarios"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	var out presetList
	for _, name := range params.ListPresets() {
		out.Fluids = append(out.Fluids, params.Presets[name])
	}
	out.Scenarios = config.Presets
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reply writes the session snapshot after a successful mutation.
func (s *Server) reply(w http.ResponseWriter, sess *session.Session, err error) {
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var p params.SimulationParameters
	if err := decode(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.reply(w, sess, sess.SetParameters(p))
}

// handleApplyPreset accepts either a fluid preset or a whole scenario.
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	name := r.PathValue("name")
	if sc := config.GetPreset(name); sc != nil {
		s.reply(w, sess, sess.ApplyScenario(sc.Shape, sc.Parameters))
		return
	}
	s.reply(w, sess, sess.ApplyPreset(name))
}

type shapeRequest struct {
	Shape geometry.Shape `json:"shape"`
}

func (s *Server) handleShape(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req shapeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.reply(w, sess, sess.SetShape(req.Shape))
}

type brushRequest struct {
	Brush geometry.BoundaryCondition `json:"brush"`
}

func (s *Server) handleBrush(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req brushRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.reply(w, sess, sess.SetBrush(req.Brush))
}

// paintRequest paints one cell, or a stroke when To is set.
type paintRequest struct {
	Row int       `json:"row"`
	Col int       `json:"col"`
	To  *position `json:"to,omitempty"`
}

type position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p paintRequest) apply(sess *session.Session) error {
	if p.To != nil {
		return sess.PaintLine(p.Row, p.Col, p.To.Row, p.To.Col)
	}
	return sess.Paint(p.Row, p.Col)
}

func (s *Server) handlePaint(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req paintRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.reply(w, sess, req.apply(sess))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	_, err := sess.Generate(r.Context())
	s.reply(w, sess, err)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	_, err := sess.Analyze(r.Context())
	s.reply(w, sess, err)
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleInitial(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req promptRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, err := sess.GenerateInitialCondition(r.Context(), req.Prompt)
	s.reply(w, sess, err)
}
