package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kapu/roblox-profile-go/internal/constants"
	"github.com/kapu/roblox-profile-go/internal/controller"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/internal/render"
	"go.uber.org/zap"
)

// Event types a page sends over the websocket.
const (
	EventClick   = "click"
	EventKeyDown = "keydown"
)

// InboundEvent is a user interaction on the page. Query carries the field
// value at the time of the event.
type InboundEvent struct {
	Type  string `json:"type"`
	Key   string `json:"key,omitempty"`
	Query string `json:"query"`
}

// OutboundUpdate is pushed for every applied transition.
type OutboundUpdate struct {
	render.Presentation
	Seq uint64 `json:"seq"`
}

// session binds one websocket connection to its own controller.
type session struct {
	id     string
	conn   *websocket.Conn
	ctrl   *controller.Controller
	logger *zap.Logger

	queryMu sync.Mutex
	query   string

	send       chan OutboundUpdate
	writerDone chan struct{}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	sess := &session{
		id:         uuid.NewString(),
		conn:       conn,
		send:       make(chan OutboundUpdate, 16),
		writerDone: make(chan struct{}),
	}
	sess.logger = s.logger.With(zap.String("session_id", sess.id))
	sess.ctrl = controller.New(serviceLookuper{backend: s.backend}, controller.QueryFieldFunc(sess.currentQuery), sess.logger)
	sess.ctrl.Subscribe(sess.push)

	sess.logger.Info("WebSocket session opened", zap.String("remote", remoteIP(r)))

	s.conns.Store(sess.id, conn)
	defer s.conns.Delete(sess.id)

	s.sessions.Go(sess.writeLoop)
	sess.readLoop()

	// Close cancels in-flight lookups and waits for them, so no listener runs
	// after it returns.
	sess.ctrl.Close()
	close(sess.send)
	<-sess.writerDone
	sess.logger.Info("WebSocket session closed")
}

func (sess *session) currentQuery() string {
	sess.queryMu.Lock()
	defer sess.queryMu.Unlock()
	return sess.query
}

func (sess *session) setQuery(q string) {
	sess.queryMu.Lock()
	sess.query = q
	sess.queryMu.Unlock()
}

func (sess *session) push(seq uint64, state domain.DisplayState) {
	view, err := render.Present(state)
	if err != nil {
		sess.logger.Error("Failed to present state", zap.Uint64("seq", seq), zap.Error(err))
		view, _ = render.Present(domain.ShowingError{Message: constants.Messages.RequestFailed})
	}

	select {
	case sess.send <- OutboundUpdate{Presentation: view, Seq: seq}:
	case <-sess.writerDone:
	}
}

func (sess *session) readLoop() {
	sess.conn.SetReadLimit(constants.WebSocketConfig.MaxMessage)
	_ = sess.conn.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongTimeout))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongTimeout))
	})

	for {
		var event InboundEvent
		if err := sess.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = sess.conn.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongTimeout))

		switch event.Type {
		case EventClick:
			sess.setQuery(event.Query)
			sess.ctrl.Click()
		case EventKeyDown:
			sess.setQuery(event.Query)
			sess.ctrl.KeyDown(event.Key)
		default:
			sess.logger.Debug("Ignoring websocket event", zap.String("type", event.Type))
		}
	}
}

func (sess *session) writeLoop() {
	defer close(sess.writerDone)
	defer sess.conn.Close()

	ticker := time.NewTicker(constants.WebSocketConfig.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteTimeout))
			if !ok {
				_ = sess.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sess.conn.WriteJSON(update); err != nil {
				sess.logger.Warn("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteTimeout))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
