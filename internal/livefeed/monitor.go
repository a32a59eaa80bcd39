package livefeed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zoransi/split-laundry-express/internal/protocol"
)

// Monitor runs the heartbeat of one connection lifecycle and keeps its
// latency history.
type Monitor struct {
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu          sync.Mutex
	history     *History
	diagnostics Diagnostics
	latest      *Sample
	waitingID   string
	pong        chan time.Time
}

func NewMonitor(cfg Config, now func() time.Time) *Monitor {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		interval: cfg.PingInterval,
		timeout:  cfg.PingTimeout,
		now:      now,
		history:  NewHistory(cfg.HistorySize),
	}
}

// Run pings every interval until ctx is done or send fails. Each ping
// produces one sample; a ping without reply within the timeout is recorded
// at the timeout latency and counts as lost.
func (m *Monitor) Run(ctx context.Context, send func(protocol.Message) error, onSample func(Sample)) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sample, err := m.heartbeat(ctx, send)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if onSample != nil {
				onSample(sample)
			}
		}
	}
}

func (m *Monitor) heartbeat(ctx context.Context, send func(protocol.Message) error) (Sample, error) {
	id := uuid.NewString()
	pong := make(chan time.Time, 1)

	m.mu.Lock()
	m.waitingID = id
	m.pong = pong
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.waitingID == id {
			m.waitingID = ""
			m.pong = nil
		}
		m.mu.Unlock()
	}()

	sent := m.now()
	if err := send(protocol.Ping(id)); err != nil {
		return Sample{}, err
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case at := <-pong:
		return m.Record(sent, at.Sub(sent), false), nil
	case <-timer.C:
		return m.Record(sent, m.timeout, true), nil
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	}
}

// HandlePong completes the outstanding ping with the given id. Late or
// unknown pongs are ignored.
func (m *Monitor) HandlePong(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" || id != m.waitingID || m.pong == nil {
		return
	}
	m.pong <- m.now()
	m.waitingID = ""
	m.pong = nil
}

// Record adds a sample taken at the given time. Diagnostics are recomputed
// once at least two samples are retained.
func (m *Monitor) Record(at time.Time, latency time.Duration, timedOut bool) Sample {
	s := Sample{
		Timestamp: at,
		Latency:   latency,
		Quality:   Classify(latency),
		TimedOut:  timedOut,
	}
	if timedOut {
		s.Quality = QualityPoor
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history.Add(s)
	if m.history.Len() >= 2 {
		m.diagnostics = m.history.Diagnostics(at)
	}
	m.latest = &s
	return s
}

func (m *Monitor) Latest() (Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return Sample{}, false
	}
	return *m.latest, true
}

func (m *Monitor) Diagnostics() Diagnostics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.diagnostics
}

func (m *Monitor) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Samples()
}
