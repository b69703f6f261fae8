package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bahrain-bp/unity-sub000/internal/domain"
)

// dialGateway upgrades a real client/server socket pair and registers the
// server side with the gateway.
func dialGateway(t *testing.T, g *Gateway) (string, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	idCh := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		idCh <- g.Register(conn)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return <-idCh, client
}

func TestGateway_PushDeliversToClient(t *testing.T) {
	g := NewGateway()
	defer g.Stop()

	connectionID, client := dialGateway(t, g)

	require.NoError(t, g.Push(context.Background(), connectionID, []byte(`{"type":"telemetry"}`)))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"telemetry"}`, string(msg))
}

func TestGateway_PushToUnknownConnection(t *testing.T) {
	g := NewGateway()
	defer g.Stop()

	err := g.Push(context.Background(), "no-such-id", []byte("hi"))

	assert.ErrorIs(t, err, domain.ErrConnectionGone)
}

func TestGateway_RegisterAssignsUniqueIDs(t *testing.T) {
	g := NewGateway()
	defer g.Stop()

	id1, _ := dialGateway(t, g)
	id2, _ := dialGateway(t, g)

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, g.ClientCount())
}

func TestGateway_UnregisterIsIdempotent(t *testing.T) {
	g := NewGateway()
	defer g.Stop()

	connectionID, _ := dialGateway(t, g)
	require.Equal(t, 1, g.ClientCount())

	g.Unregister(connectionID)
	g.Unregister(connectionID)
	g.Unregister("never-registered")

	assert.Equal(t, 0, g.ClientCount())
	assert.ErrorIs(t, g.Push(context.Background(), connectionID, []byte("hi")), domain.ErrConnectionGone)
}

func TestGateway_StopClosesAllSockets(t *testing.T) {
	g := NewGateway()

	_, client1 := dialGateway(t, g)
	_, client2 := dialGateway(t, g)

	g.Stop()

	assert.Equal(t, 0, g.ClientCount())
	for _, client := range []*websocket.Conn{client1, client2} {
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := client.ReadMessage()
		assert.Error(t, err)
	}
}

func TestGateway_PushAfterClientWentAway(t *testing.T) {
	g := NewGateway()
	defer g.Stop()

	connectionID, _ := dialGateway(t, g)
	g.Unregister(connectionID)

	err := g.Push(context.Background(), connectionID, []byte("hi"))

	assert.ErrorIs(t, err, domain.ErrConnectionGone)
}
