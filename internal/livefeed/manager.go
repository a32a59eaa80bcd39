package livefeed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/protocol"
)

var ErrManagerClosed = errors.New("live feed manager closed")

// Observer receives connection snapshots and order frames. Callbacks run on
// the manager's goroutines, in order, and must not block or call Connect,
// Reconnect or Close.
type Observer interface {
	StateChanged(snapshot Snapshot)
	OrderEvent(msg protocol.Message)
}

// Manager owns the single live connection of a client. Every connection
// sequence started by Connect or Reconnect gets a new generation; goroutines
// of an older generation stop touching state as soon as it is superseded.
type Manager struct {
	cfg    Config
	dialer Dialer
	logger *zap.SugaredLogger
	now    func() time.Time

	mu                 sync.Mutex
	state              State
	attempt            int
	reason             *Reason
	gen                uint64
	cancel             context.CancelFunc
	transport          Transport
	monitor            *Monitor
	joined             map[string]struct{}
	reconnectSucceeded bool
	noticeTimer        *time.Timer
	observers          map[int]Observer
	nextObserver       int
	closed             bool

	// notifyMu keeps observer callbacks in order.
	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

func NewManager(cfg Config, dialer Dialer, logger *zap.SugaredLogger) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:       cfg,
		dialer:    dialer,
		logger:    logger,
		now:       time.Now,
		state:     StateDisconnected,
		monitor:   NewMonitor(cfg, time.Now),
		joined:    make(map[string]struct{}),
		observers: make(map[int]Observer),
	}
}

// Observe registers o and returns a function that removes it.
func (m *Manager) Observe(o Observer) func() {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = o
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Connect starts a connection sequence unless one is already running.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	switch m.state {
	case StateConnecting, StateConnected, StateReconnecting:
		m.mu.Unlock()
		return nil
	}
	m.startLocked(false)
	m.mu.Unlock()

	m.notify()
	return nil
}

// Reconnect drops any current connection or pending attempt, resets the
// attempt counter and starts a fresh sequence.
func (m *Manager) Reconnect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	m.startLocked(true)
	m.mu.Unlock()

	m.logger.Infow("manual reconnect requested")
	m.notify()
	return nil
}

// Close tears the connection down and waits for its goroutines to exit.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopLocked()
	m.state = StateDisconnected
	m.reason = nil
	m.reconnectSucceeded = false
	m.mu.Unlock()

	m.wg.Wait()
	m.notify()
	return nil
}

// JoinOrder subscribes to an order. The join is sent right away when
// connected and replayed after every reconnect.
func (m *Manager) JoinOrder(orderID string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	m.joined[orderID] = struct{}{}
	t := m.connectedTransport()
	m.mu.Unlock()

	if t == nil {
		return nil
	}
	return t.Send(protocol.Join(orderID))
}

func (m *Manager) LeaveOrder(orderID string) error {
	m.mu.Lock()
	if _, ok := m.joined[orderID]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.joined, orderID)
	t := m.connectedTransport()
	m.mu.Unlock()

	if t == nil {
		return nil
	}
	return t.Send(protocol.Leave(orderID))
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		State:              m.state,
		Attempt:            m.attempt,
		MaxAttempts:        m.cfg.MaxReconnectAttempts,
		ReconnectSucceeded: m.reconnectSucceeded,
		Quality:            QualityDisconnected,
		Diagnostics:        m.monitor.Diagnostics(),
		History:            m.monitor.Samples(),
		Joined:             m.joinedLocked(),
	}
	if m.reason != nil {
		r := *m.reason
		s.Reason = &r
	}
	if m.state == StateConnected {
		s.Quality = QualityGood
		if latest, ok := m.monitor.Latest(); ok {
			s.Quality = QualityFor(m.state, latest.Latency)
		}
	}
	return s
}

func (m *Manager) connectedTransport() Transport {
	if m.state != StateConnected {
		return nil
	}
	return m.transport
}

func (m *Manager) joinedLocked() []string {
	ids := make([]string, 0, len(m.joined))
	for id := range m.joined {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) startLocked(manual bool) {
	m.stopLocked()
	m.attempt = 0
	m.reason = nil
	m.reconnectSucceeded = false
	m.state = StateConnecting

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	gen := m.gen

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, gen, manual)
	}()
}

// stopLocked invalidates the current generation and releases everything it
// owns.
func (m *Manager) stopLocked() {
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.transport != nil {
		_ = m.transport.Close()
		m.transport = nil
	}
	if m.noticeTimer != nil {
		m.noticeTimer.Stop()
		m.noticeTimer = nil
	}
}

func (m *Manager) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.ReconnectDelay
	bo.MaxInterval = m.cfg.ReconnectDelayMax
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.5
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

func (m *Manager) run(ctx context.Context, gen uint64, manual bool) {
	bo := m.newBackOff()

	for {
		t, ok := m.dialLoop(ctx, gen, bo, manual)
		if !ok {
			return
		}
		manual = false

		err := m.serve(ctx, gen, t)
		_ = t.Close()
		if ctx.Err() != nil {
			return
		}

		reason := DisconnectReason(err)

		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			return
		}
		m.transport = nil
		m.state = StateDisconnected
		m.reason = &reason
		m.reconnectSucceeded = false
		if m.noticeTimer != nil {
			m.noticeTimer.Stop()
			m.noticeTimer = nil
		}
		m.mu.Unlock()

		m.logger.Warnw("live connection lost", "reason", reason.Message, "error", err)
		m.notify()

		if reason.Kind == ReasonClientClose {
			return
		}

		bo.Reset()
		if !m.sleep(ctx, bo.NextBackOff()) {
			return
		}
	}
}

// dialLoop dials until a connection is established, the attempt cap is
// reached or the generation is superseded.
func (m *Manager) dialLoop(ctx context.Context, gen uint64, bo *backoff.ExponentialBackOff, manual bool) (Transport, bool) {
	for {
		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			return nil, false
		}
		if m.state == StateDisconnected {
			m.state = StateReconnecting
			m.mu.Unlock()
			m.notify()
		} else {
			m.mu.Unlock()
		}

		dialCtx, cancel := context.WithTimeout(ctx, m.cfg.AttemptTimeout)
		t, err := m.dialer.Dial(dialCtx)
		if err != nil && errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		cancel()

		if err == nil {
			if m.connected(gen, t, manual) {
				return t, true
			}
			_ = t.Close()
			return nil, false
		}
		if ctx.Err() != nil {
			return nil, false
		}

		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			return nil, false
		}
		m.attempt++
		reason := ConnectReason(err, m.attempt, m.cfg.AttemptTimeout)
		if m.attempt >= m.cfg.MaxReconnectAttempts {
			reason = retriesExhausted(m.cfg.MaxReconnectAttempts)
			m.state = StateFailed
			m.reason = &reason
			m.mu.Unlock()

			m.logger.Errorw("giving up on live connection", "attempts", m.cfg.MaxReconnectAttempts, "error", err)
			m.notify()
			return nil, false
		}
		m.state = StateReconnecting
		m.reason = &reason
		attempt := m.attempt
		m.mu.Unlock()

		m.logger.Warnw("live connection attempt failed", "attempt", attempt, "error", err)
		m.notify()

		if !m.sleep(ctx, bo.NextBackOff()) {
			return nil, false
		}
	}
}

func (m *Manager) connected(gen uint64, t Transport, manual bool) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return false
	}
	m.transport = t
	m.state = StateConnected
	m.attempt = 0
	m.reason = nil
	m.monitor = NewMonitor(m.cfg, m.now)
	if manual {
		m.reconnectSucceeded = true
		m.noticeTimer = time.AfterFunc(m.cfg.ReconnectNoticeWindow, func() {
			m.clearNotice(gen)
		})
	}
	joined := m.joinedLocked()
	m.mu.Unlock()

	for _, orderID := range joined {
		if err := t.Send(protocol.Join(orderID)); err != nil {
			m.logger.Warnw("failed to rejoin order", "order_id", orderID, "error", err)
		}
	}

	m.logger.Infow("live connection established", "rejoined", len(joined))
	m.notify()
	return true
}

func (m *Manager) clearNotice(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.reconnectSucceeded {
		m.mu.Unlock()
		return
	}
	m.reconnectSucceeded = false
	m.noticeTimer = nil
	m.mu.Unlock()

	m.notify()
}

// serve reads frames and runs the heartbeat until the transport fails.
func (m *Manager) serve(ctx context.Context, gen uint64, t Transport) error {
	hbCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	monitor := m.monitor
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := monitor.Run(hbCtx, t.Send, func(Sample) { m.notify() })
		if err != nil {
			m.logger.Warnw("heartbeat stopped", "error", err)
		}
	}()

	for {
		msg, err := t.Receive()
		if err != nil {
			return err
		}

		switch {
		case msg.Type == protocol.TypePong:
			monitor.HandlePong(msg.ID)
		case msg.IsStatusUpdate():
			m.mu.Lock()
			_, joined := m.joined[msg.OrderID]
			current := gen == m.gen
			m.mu.Unlock()
			if !current {
				return ctx.Err()
			}
			if joined {
				m.dispatch(msg)
			}
		case msg.Type == protocol.TypeError:
			m.logger.Warnw("server reported an error", "error", msg.Error)
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (m *Manager) observerList() []Observer {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Observer, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.observers[id])
	}
	return out
}

func (m *Manager) notify() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	snapshot := m.Snapshot()
	for _, o := range m.observerList() {
		o.StateChanged(snapshot)
	}
}

func (m *Manager) dispatch(msg protocol.Message) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	for _, o := range m.observerList() {
		o.OrderEvent(msg)
	}
}
