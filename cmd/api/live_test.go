package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/protocol"
	"github.com/zoransi/split-laundry-express/internal/ratelimiter"
)

func dialLive(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/live?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendFrame(t *testing.T, ws *websocket.Conn, msg protocol.Message) {
	t.Helper()

	data, err := protocol.Encode(msg)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
}

func readFrame(t *testing.T, ws *websocket.Conn) protocol.Message {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	return msg
}

func TestLiveStatusUpdates(t *testing.T) {
	app := newTestApplication(t, ratelimiter.Config{})
	mux := app.mount()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := createService(t, mux, "LIVE", 10)
	order := createOrder(t, mux, svc.ID.Hex(), 1)
	orderID := order.ID.Hex()

	ws := dialLive(t, srv, customerToken)
	sendFrame(t, ws, protocol.Join(orderID))
	require.Eventually(t, func() bool { return app.hub.Subscribers(orderID) == 1 }, time.Second, 5*time.Millisecond)

	rr, _ := executeRequest(t, mux, http.MethodPut, "/api/v1/orders/"+orderID+"/status", adminToken, UpdateOrderStatusRequest{Status: "processing"})
	require.Equal(t, http.StatusOK, rr.Code)

	msg := readFrame(t, ws)
	assert.Equal(t, protocol.TypeStatusChanged, msg.Type)
	assert.Equal(t, orderID, msg.OrderID)
	assert.Equal(t, domain.OrderStatusProcessing, msg.Status)
	require.NotNil(t, msg.UpdatedAt)

	rr, _ = executeRequest(t, mux, http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", customerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	msg = readFrame(t, ws)
	assert.Equal(t, protocol.TypeOrderCancelled, msg.Type)
	assert.Equal(t, domain.OrderStatusCancelled, msg.Status)

	sendFrame(t, ws, protocol.Ping("p1"))
	msg = readFrame(t, ws)
	assert.Equal(t, protocol.TypePong, msg.Type)
	assert.Equal(t, "p1", msg.ID)
}

func TestLiveJoinRequiresAccess(t *testing.T) {
	app := newTestApplication(t, ratelimiter.Config{})
	mux := app.mount()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := createService(t, mux, "PRIV", 10)
	order := createOrder(t, mux, svc.ID.Hex(), 1)

	ws := dialLive(t, srv, otherToken)
	sendFrame(t, ws, protocol.Join(order.ID.Hex()))

	msg := readFrame(t, ws)
	assert.Equal(t, protocol.TypeError, msg.Type)
	assert.Equal(t, 0, app.hub.Subscribers(order.ID.Hex()))
}

func TestLiveRequiresToken(t *testing.T) {
	srv := httptest.NewServer(newTestApplication(t, ratelimiter.Config{}).mount())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
