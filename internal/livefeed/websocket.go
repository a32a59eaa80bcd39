package livefeed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zoransi/split-laundry-express/internal/protocol"
)

// WebsocketDialer connects to the server's live endpoint.
type WebsocketDialer struct {
	URL   string
	Token string
	// IdleTimeout closes connections on which nothing arrives for this long.
	IdleTimeout time.Duration

	dialer *websocket.Dialer
}

func NewWebsocketDialer(rawURL, token string) *WebsocketDialer {
	return &WebsocketDialer{
		URL:         rawURL,
		Token:       token,
		IdleTimeout: 60 * time.Second,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context) (Transport, error) {
	header := http.Header{}
	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}

	conn, resp, err := d.dialer.DialContext(ctx, d.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, classifyDialError(err, resp)
	}

	t := &wsTransport{conn: conn, idleTimeout: d.IdleTimeout}
	t.extendDeadline()
	conn.SetPingHandler(func(data string) error {
		t.extendDeadline()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	return t, nil
}

func classifyDialError(err error, resp *http.Response) error {
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w: server answered %s", ErrUnauthorized, resp.Status)
	}

	var (
		netErr  net.Error
		opErr   *net.OpError
		urlErr  *url.Error
		certErr *tls.CertificateVerificationError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case errors.As(err, &certErr), errors.Is(err, websocket.ErrBadHandshake):
		return fmt.Errorf("%w: %v", ErrTransport, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.As(err, &opErr), errors.As(err, &urlErr):
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	default:
		return err
	}
}

type wsTransport struct {
	conn        *websocket.Conn
	idleTimeout time.Duration
	writeMu     sync.Mutex
	closed      atomic.Bool
}

func (t *wsTransport) extendDeadline() {
	if t.idleTimeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.idleTimeout))
	}
}

func (t *wsTransport) Send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_ = t.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return t.classify(err)
	}
	return nil
}

// Receive returns the next valid frame. Malformed frames are skipped.
func (t *wsTransport) Receive() (protocol.Message, error) {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return protocol.Message{}, t.classify(err)
		}
		t.extendDeadline()

		msg, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		return msg, nil
	}
}

func (t *wsTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.conn.Close()
}

func (t *wsTransport) classify(err error) error {
	if t.closed.Load() {
		return fmt.Errorf("%w: %v", ErrClientClosed, err)
	}

	var (
		closeErr *websocket.CloseError
		netErr   net.Error
	)
	switch {
	case errors.As(err, &closeErr):
		if closeErr.Code == websocket.CloseAbnormalClosure {
			return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
		return fmt.Errorf("%w: %v", ErrServerClosed, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}
