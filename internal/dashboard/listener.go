package dashboard

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/nosh-kitchen/nosh-backend/internal/realtime"
)

// Listener is a live subscription to the dish-updates room.
type Listener struct {
	conn *websocket.Conn
}

// Subscribe dials the websocket endpoint and joins the dish-updates room.
// The returned listener delivers events until Close or a read error.
func Subscribe(ctx context.Context, wsURL string) (*Listener, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	join := map[string]string{"action": realtime.ActionJoin}
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return nil, err
	}
	return &Listener{conn: conn}, nil
}

// Next blocks for the next server event, skipping the room join/leave acks.
func (l *Listener) Next() (*realtime.Envelope, error) {
	for {
		var env realtime.Envelope
		if err := l.conn.ReadJSON(&env); err != nil {
			return nil, err
		}
		switch env.Event {
		case realtime.EventDishUpdated, realtime.EventDishDeleted:
			return &env, nil
		}
	}
}

func (l *Listener) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = l.conn.WriteMessage(websocket.CloseMessage, msg)
	return l.conn.Close()
}
