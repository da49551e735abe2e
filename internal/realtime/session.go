package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nosh-kitchen/nosh-backend/pkg/logger"
)

// Join/leave commands accepted from clients.
const (
	ActionJoin  = "joinDishUpdates"
	ActionLeave = "leaveDishUpdates"
)

const (
	sendBuffer   = 16
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
)

// Session is one connected websocket viewer.
type Session struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (s *Session) closeSend() {
	s.closeOnce.Do(func() { close(s.send) })
}

type command struct {
	Action string `json:"action"`
}

type ack struct {
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	// the API is open; origin policy is handled by the proxy in front
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and runs the session until the client goes
// away. The read loop handles room commands; a writer goroutine drains the
// send channel and keeps the connection alive with pings.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	s := &Session{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(s)
	logger.Debugf("session connected: %s", conn.RemoteAddr())

	go s.writeLoop()
	s.readLoop(h)
}

// readLoop consumes client commands until the connection errors or closes,
// then tears the session down.
func (s *Session) readLoop(h *Hub) {
	defer func() {
		h.unregister(s)
		_ = s.conn.Close()
		logger.Debugf("session disconnected: %s", s.conn.RemoteAddr())
	}()
	for {
		var cmd command
		if err := s.conn.ReadJSON(&cmd); err != nil {
			return
		}
		switch cmd.Action {
		case ActionJoin:
			h.join(s)
			s.sendEvent(eventJoined, ack{Message: "Successfully joined dish updates"})
		case ActionLeave:
			h.leave(s)
			s.sendEvent(eventLeft, ack{Message: "Left dish updates"})
		}
	}
}

func (s *Session) sendEvent(event string, payload any) {
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	select {
	case s.send <- msg:
	default:
	}
}

// writeLoop owns all writes on the connection: queued events plus periodic
// pings. It exits when the send channel is closed by unregister.
func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
