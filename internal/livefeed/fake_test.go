package livefeed

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/protocol"
)

type fakeTransport struct {
	in       chan protocol.Message
	fail     chan error
	done     chan struct{}
	once     sync.Once
	autoPong bool

	mu   sync.Mutex
	sent []protocol.Message
}

func newFakeTransport(autoPong bool) *fakeTransport {
	return &fakeTransport{
		in:       make(chan protocol.Message, 16),
		fail:     make(chan error, 1),
		done:     make(chan struct{}),
		autoPong: autoPong,
	}
}

func (t *fakeTransport) Send(msg protocol.Message) error {
	select {
	case <-t.done:
		return ErrClientClosed
	default:
	}

	t.mu.Lock()
	t.sent = append(t.sent, msg)
	t.mu.Unlock()

	if t.autoPong && msg.Type == protocol.TypePing {
		t.in <- protocol.Pong(msg.ID)
	}
	return nil
}

func (t *fakeTransport) Receive() (protocol.Message, error) {
	select {
	case msg := <-t.in:
		return msg, nil
	case err := <-t.fail:
		return protocol.Message{}, err
	case <-t.done:
		return protocol.Message{}, ErrClientClosed
	}
}

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

func (t *fakeTransport) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) drop(err error) {
	t.fail <- err
}

func (t *fakeTransport) joins() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	for _, msg := range t.sent {
		if msg.Type == protocol.TypeJoin {
			ids = append(ids, msg.OrderID)
		}
	}
	return ids
}

func (t *fakeTransport) sentOfType(typ protocol.Type) []protocol.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []protocol.Message
	for _, msg := range t.sent {
		if msg.Type == typ {
			out = append(out, msg)
		}
	}
	return out
}

// fakeDialer hands out transports from dial, counting calls.
type fakeDialer struct {
	mu    sync.Mutex
	calls int
	dial  func(ctx context.Context, call int) (Transport, error)
	last  *fakeTransport
}

func (d *fakeDialer) Dial(ctx context.Context) (Transport, error) {
	d.mu.Lock()
	d.calls++
	call := d.calls
	fn := d.dial
	d.mu.Unlock()

	t, err := fn(ctx, call)
	if ft, ok := t.(*fakeTransport); ok && err == nil {
		d.mu.Lock()
		d.last = ft
		d.mu.Unlock()
	}
	return t, err
}

func (d *fakeDialer) setDial(fn func(ctx context.Context, call int) (Transport, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dial = fn
}

func (d *fakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) Last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func alwaysConnect(autoPong bool) func(context.Context, int) (Transport, error) {
	return func(context.Context, int) (Transport, error) {
		return newFakeTransport(autoPong), nil
	}
}

type recorder struct {
	mu     sync.Mutex
	snaps  []Snapshot
	events []protocol.Message
}

func (r *recorder) StateChanged(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) OrderEvent(msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, msg)
}

func (r *recorder) Events() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Message(nil), r.events...)
}

func (r *recorder) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func testConfig() Config {
	return Config{
		MaxReconnectAttempts:  5,
		AttemptTimeout:        200 * time.Millisecond,
		ReconnectDelay:        time.Millisecond,
		ReconnectDelayMax:     5 * time.Millisecond,
		PingInterval:          time.Hour,
		PingTimeout:           50 * time.Millisecond,
		HistorySize:           20,
		ReconnectNoticeWindow: 50 * time.Millisecond,
	}
}

func newTestManager(t *testing.T, cfg Config, dialer *fakeDialer) (*Manager, *recorder) {
	t.Helper()
	m := NewManager(cfg, dialer, zap.NewNop().Sugar())
	rec := &recorder{}
	m.Observe(rec)
	t.Cleanup(func() { _ = m.Close() })
	return m, rec
}

func waitState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Snapshot().State == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("manager never reached %s, last state %s", want, m.Snapshot().State)
}
