package dashboard

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/handler"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/repository"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/service"
	"github.com/nosh-kitchen/nosh-backend/internal/realtime"
)

// Full stack: REST handler + service + memory store + hub + websocket,
// with two dashboard sessions attached.
func startServer(t *testing.T) (apiURL, wsURL string, svc service.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := gin.New()
	hub := realtime.NewHub()
	svc = service.New(repository.NewMemoryRepo(), hub)
	handler.RegisterDishRoutes(g, svc)
	g.GET("/ws", hub.ServeWS)

	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return srv.URL, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", svc
}

func waitFor(t *testing.T, n *memoNotifier, want int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if msgs := n.all(); len(msgs) >= want {
			return msgs
		}
		require.True(t, time.Now().Before(deadline), "timed out waiting for %d notifications, have %v", want, n.all())
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTwoSessionsToggleReconciliation(t *testing.T) {
	apiURL, wsURL, svc := startServer(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &dish.Dish{
		DishID: "d1", DishName: "caesar salad", ImageURL: "https://x/a.jpg", IsPublished: true,
	})
	require.NoError(t, err)

	// session A issues the toggle, session B only watches
	notifyA := &memoNotifier{}
	clientA := NewClient(NewAPIClient(apiURL), notifyA)
	require.NoError(t, clientA.Refresh(ctx))
	listenerA, err := Subscribe(ctx, wsURL)
	require.NoError(t, err)
	defer listenerA.Close()
	go clientA.Run(ctx, listenerA) //nolint:errcheck // ends when listener closes

	notifyB := &memoNotifier{}
	clientB := NewClient(NewAPIClient(apiURL), notifyB)
	require.NoError(t, clientB.Refresh(ctx))
	listenerB, err := Subscribe(ctx, wsURL)
	require.NoError(t, err)
	defer listenerB.Close()
	go clientB.Run(ctx, listenerB) //nolint:errcheck

	// give both sessions time to land in the room
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, clientA.TogglePublished(ctx, "d1"))

	// B sees a remote change
	msgsB := waitFor(t, notifyB, 1)
	require.Contains(t, msgsB[0], "remotely")
	require.Contains(t, msgsB[0], "caesar salad")

	// A only sees its own command confirmation; the echo was suppressed
	msgsA := waitFor(t, notifyA, 1)
	require.Len(t, msgsA, 1)
	require.Equal(t, "Dish unpublished successfully!", msgsA[0])

	// both caches converge on the server-confirmed state
	deadline := time.Now().Add(2 * time.Second)
	for {
		a, b := clientA.Dishes(), clientB.Dishes()
		if len(a) == 1 && len(b) == 1 && !a[0].IsPublished && !b[0].IsPublished {
			break
		}
		require.True(t, time.Now().Before(deadline), "caches did not converge")
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDeleteFansOutToWatchers(t *testing.T) {
	apiURL, wsURL, svc := startServer(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &dish.Dish{
		DishID: "d1", DishName: "caesar salad", ImageURL: "https://x/a.jpg", IsPublished: true,
	})
	require.NoError(t, err)

	n := &memoNotifier{}
	client := NewClient(NewAPIClient(apiURL), n)
	require.NoError(t, client.Refresh(ctx))
	listener, err := Subscribe(ctx, wsURL)
	require.NoError(t, err)
	defer listener.Close()
	go client.Run(ctx, listener) //nolint:errcheck

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, svc.Delete(ctx, "d1"))

	msgs := waitFor(t, n, 1)
	require.Contains(t, msgs[0], "removed remotely")
	require.Empty(t, client.Dishes())
}
