package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
)

func testSession() *Session {
	return &Session{send: make(chan []byte, sendBuffer)}
}

func TestBroadcastOnlyReachesJoinedSessions(t *testing.T) {
	h := NewHub()
	joined := testSession()
	loiterer := testSession()
	h.register(joined)
	h.register(loiterer)
	h.join(joined)

	h.DishUpdated(&dish.Dish{DishID: "d1", DishName: "caesar salad", IsPublished: true})

	select {
	case msg := <-joined.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		require.Equal(t, EventDishUpdated, env.Event)
		var d dish.Dish
		require.NoError(t, json.Unmarshal(env.Data, &d))
		require.Equal(t, "d1", d.DishID)
	default:
		t.Fatal("joined session received nothing")
	}

	select {
	case <-loiterer.send:
		t.Fatal("session outside the room received an event")
	default:
	}
}

func TestJoinLeaveIdempotent(t *testing.T) {
	h := NewHub()
	s := testSession()
	h.register(s)

	h.join(s)
	h.join(s)
	h.leave(s)
	h.leave(s)

	h.DishDeleted("d1")
	select {
	case <-s.send:
		t.Fatal("left session received an event")
	default:
	}

	// join on an unregistered session is a no-op
	ghost := testSession()
	h.join(ghost)
	h.DishDeleted("d2")
	select {
	case <-ghost.send:
		t.Fatal("unregistered session received an event")
	default:
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	s := &Session{send: make(chan []byte, 1)}
	h.register(s)
	h.join(s)

	h.DishDeleted("d1")
	h.DishDeleted("d2") // buffer full: dropped, must not block

	require.Len(t, s.send, 1)
}

func TestUnregisterClosesSendOnce(t *testing.T) {
	h := NewHub()
	s := testSession()
	h.register(s)
	h.unregister(s)
	h.unregister(s) // second call must not panic

	_, ok := <-s.send
	require.False(t, ok)
}

func TestServeWSJoinAndReceive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub()
	g := gin.New()
	g.GET("/ws", h.ServeWS)

	srv := httptest.NewServer(g)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"action": ActionJoin}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, eventJoined, env.Event)

	// the join ack is queued after the room membership change, so the
	// session is guaranteed to be in the room by now
	h.DishUpdated(&dish.Dish{DishID: "d1", DishName: "caesar salad"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, EventDishUpdated, env.Event)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": ActionLeave}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, eventLeft, env.Event)
}
