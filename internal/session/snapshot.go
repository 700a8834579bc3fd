package session

import (
	"sync"
	"time"

	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/metrics"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/predict"
)

// Snapshot is a copy of the session state. Nothing in it aliases the
// session, so views may keep and serialize it freely.
type Snapshot struct {
	ID               string                      `json:"id"`
	Version          uint64                      `json:"version"`
	Created          time.Time                   `json:"created"`
	Parameters       params.SimulationParameters `json:"parameters"`
	Regime           string                      `json:"regime"`
	Shape            geometry.Shape              `json:"shape"`
	Brush            geometry.BoundaryCondition  `json:"brush"`
	Editable         bool                        `json:"editable"`
	Geometry         geometry.Geometry           `json:"geometry"`
	Images           predict.Images              `json:"images"`
	Analysis         string                      `json:"analysis,omitempty"`
	InitialCondition *InitialCondition           `json:"initialCondition,omitempty"`
	Losses           metrics.LossData            `json:"losses"`
	Notices          []Notice                    `json:"notices"`
	Status           map[Action]Status           `json:"status"`
	BackendStatus    string                      `json:"backendStatus,omitempty"`
}

// Pending reports whether action a is in flight.
func (s Snapshot) Pending(a Action) bool { return s.Status[a] == StatusPending }

// LastNotice returns the most recent notice, if any.
func (s Snapshot) LastNotice() (Notice, bool) {
	if len(s.Notices) == 0 {
		return Notice{}, false
	}
	return s.Notices[len(s.Notices)-1], true
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	status := make(map[Action]Status, len(s.status))
	for a, st := range s.status {
		status[a] = st
	}
	snap := Snapshot{
		ID:         s.id,
		Version:    s.version,
		Created:    s.created,
		Parameters: s.parameters,
		Regime:     params.Regime(s.parameters.ReynoldsNumber),
		Shape:      s.editor.Shape(),
		Brush:      s.editor.Brush(),
		Editable:   s.editor.Editable(),
		Geometry:   s.editor.Geometry(),
		Images:     s.images,
		Analysis:   s.analysis,
		Losses:     s.losses.Clone(),
		Notices:    append([]Notice(nil), s.notices...),
		Status:     status,
	}
	if s.initial != nil {
		ic := *s.initial
		snap.InitialCondition = &ic
	}
	if s.parameters.ReynoldsNumber == backendStatusReynolds {
		snap.BackendStatus = backendStatusText
	}
	return snap
}

// Subscribe returns a channel that receives a snapshot after every change,
// starting with the current state. A slow reader only sees the latest
// snapshot. The channel closes when cancel is called or the session closes.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshot()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				close(c)
				delete(s.subs, id)
			}
		})
	}
	return ch, cancel
}

// changed bumps the version and fans the new state out. Caller holds s.mu.
func (s *Session) changed() {
	s.version++
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshot()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot in favour of the new one
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
