package broadcast

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
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/auth"
	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/protocol"
)

type ownerAccess struct{}

func (ownerAccess) AuthorizeOrder(_ context.Context, user *domain.User, orderID string) error {
	if strings.HasPrefix(orderID, user.ID) {
		return nil
	}
	return domain.ForbiddenError("order %s belongs to another user", orderID)
}

func newLiveServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	handler := NewHandler(hub, ownerAccess{}, DefaultHandlerConfig(), zap.NewNop().Sugar())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithUser(r.Context(), &domain.User{ID: "alice", Role: domain.RoleCustomer})
		handler.ServeHTTP(w, r.WithContext(ctx))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, msg protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(msg)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
}

func receive(t *testing.T, ws *websocket.Conn) protocol.Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	return msg
}

func TestHandlerPingPong(t *testing.T) {
	srv := newLiveServer(t, newTestHub())
	ws := dial(t, srv)

	send(t, ws, protocol.Ping("p-1"))
	msg := receive(t, ws)
	assert.Equal(t, protocol.TypePong, msg.Type)
	assert.Equal(t, "p-1", msg.ID)
}

func TestHandlerJoinReceivesEvents(t *testing.T) {
	hub := newTestHub()
	srv := newLiveServer(t, hub)
	ws := dial(t, srv)

	send(t, ws, protocol.Join("alice-1"))
	// the pong proves the join frame was processed
	send(t, ws, protocol.Ping("sync"))
	require.Equal(t, protocol.TypePong, receive(t, ws).Type)
	require.Equal(t, 1, hub.Subscribers("alice-1"))

	hub.Publish("alice-1", statusFrame("alice-1", domain.OrderStatusCancelled))
	msg := receive(t, ws)
	assert.Equal(t, protocol.TypeOrderCancelled, msg.Type)
	assert.Equal(t, domain.OrderStatusCancelled, msg.Status)
}

func TestHandlerRejectsForeignOrder(t *testing.T) {
	hub := newTestHub()
	srv := newLiveServer(t, hub)
	ws := dial(t, srv)

	send(t, ws, protocol.Join("bob-1"))
	msg := receive(t, ws)
	assert.Equal(t, protocol.TypeError, msg.Type)
	assert.Equal(t, 0, hub.Subscribers("bob-1"))
}

func TestHandlerInvalidFrame(t *testing.T) {
	srv := newLiveServer(t, newTestHub())
	ws := dial(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"join"}`)))
	msg := receive(t, ws)
	assert.Equal(t, protocol.TypeError, msg.Type)
}

func TestHandlerDisconnectUnsubscribes(t *testing.T) {
	hub := newTestHub()
	srv := newLiveServer(t, hub)
	ws := dial(t, srv)

	send(t, ws, protocol.Join("alice-1"))
	send(t, ws, protocol.Ping("sync"))
	require.Equal(t, protocol.TypePong, receive(t, ws).Type)
	require.Equal(t, 1, hub.Subscribers("alice-1"))

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool {
		return hub.Subscribers("alice-1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}
