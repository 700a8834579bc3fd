package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 64 << 10
)

// Msg is the websocket envelope in both directions.
type Msg struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

func newMsg(typ string, v interface{}) (Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Msg{}, err
	}
	return Msg{Type: typ, Content: data}, nil
}

// Hub serves one websocket connection bound to one session. Snapshots and
// replies are written by a single goroutine; requests are read by another.
type Hub struct {
	sess    *session.Session
	conn    *websocket.Conn
	log     logrus.FieldLogger
	replies chan Msg
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h := &Hub{
		sess:    sess,
		conn:    conn,
		log:     s.log.WithField("session", sess.ID()),
		replies: make(chan Msg, 8),
	}
	h.log.Debug("websocket connected")

	ctx, cancel := context.WithCancel(context.Background())
	snaps, unsubscribe := sess.Subscribe()
	go h.handleResponse(snaps, cancel)
	h.handleRequest(ctx)

	cancel()
	unsubscribe()
	h.log.Debug("websocket disconnected")
}

// handleResponse owns every write to the connection.
func (h *Hub) handleResponse(snaps <-chan session.Snapshot, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		h.conn.Close()
	}()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				h.conn.SetWriteDeadline(time.Now().Add(writeWait))
				h.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			msg, err := newMsg("snapshot", snap)
			if err != nil {
				h.log.WithError(err).Error("encode snapshot")
				continue
			}
			if !h.write(msg) {
				return
			}
		case msg := <-h.replies:
			if !h.write(msg) {
				return
			}
		case <-ticker.C:
			h.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := h.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(msg Msg) bool {
	h.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := h.conn.WriteJSON(&msg); err != nil {
		h.log.WithError(err).Debug("websocket write")
		return false
	}
	return true
}

// handleRequest reads client messages until the connection drops. Long
// actions run in their own goroutine so reads continue while they wait.
func (h *Hub) handleRequest(ctx context.Context) {
	h.conn.SetReadLimit(maxMessage)
	h.conn.SetReadDeadline(time.Now().Add(pongWait))
	h.conn.SetPongHandler(func(string) error {
		return h.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Msg
		if err := h.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Debug("websocket read")
			}
			return
		}
		switch msg.Type {
		case "generate":
			go h.run(ctx, msg.Type, func(ctx context.Context) error {
				_, err := h.sess.Generate(ctx)
				return err
			})
		case "analyze":
			go h.run(ctx, msg.Type, func(ctx context.Context) error {
				_, err := h.sess.Analyze(ctx)
				return err
			})
		case "initial-condition":
			var req promptRequest
			if err := json.Unmarshal(msg.Content, &req); err != nil {
				h.replyError(msg.Type, err)
				continue
			}
			go h.run(ctx, msg.Type, func(ctx context.Context) error {
				_, err := h.sess.GenerateInitialCondition(ctx, req.Prompt)
				return err
			})
		default:
			if err := h.apply(msg); err != nil {
				h.replyError(msg.Type, err)
			}
		}
	}
}

// apply handles the synchronous edits; their effect arrives as a snapshot.
func (h *Hub) apply(msg Msg) error {
	switch msg.Type {
	case "parameters":
		var p params.SimulationParameters
		if err := json.Unmarshal(msg.Content, &p); err != nil {
			return err
		}
		return h.sess.SetParameters(p)
	case "preset":
		var name string
		if err := json.Unmarshal(msg.Content, &name); err != nil {
			return err
		}
		return h.sess.ApplyPreset(name)
	case "shape":
		var req shapeRequest
		if err := json.Unmarshal(msg.Content, &req); err != nil {
			return err
		}
		return h.sess.SetShape(req.Shape)
	case "brush":
		var req brushRequest
		if err := json.Unmarshal(msg.Content, &req); err != nil {
			return err
		}
		return h.sess.SetBrush(req.Brush)
	case "paint":
		var req paintRequest
		if err := json.Unmarshal(msg.Content, &req); err != nil {
			return err
		}
		return req.apply(h.sess)
	case "clear-notices":
		return h.sess.ClearNotices()
	}
	return fmt.Errorf("unknown message type %q", msg.Type)
}

func (h *Hub) run(ctx context.Context, typ string, action func(context.Context) error) {
	if err := action(ctx); err != nil {
		h.replyError(typ, err)
	}
}

func (h *Hub) replyError(typ string, err error) {
	msg, merr := newMsg("error", struct {
		Request string `json:"request"`
		Status  int    `json:"status"`
		Detail  string `json:"detail"`
	}{typ, statusFor(err), detailFor(err)})
	if merr != nil {
		return
	}
	select {
	case h.replies <- msg:
	default:
		h.log.WithField("request", typ).Warn("dropping websocket reply")
	}
}
