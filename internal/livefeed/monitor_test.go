package livefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoransi/split-laundry-express/internal/protocol"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    Quality
	}{
		{50 * time.Millisecond, QualityGood},
		{99 * time.Millisecond, QualityGood},
		{100 * time.Millisecond, QualityFair},
		{150 * time.Millisecond, QualityFair},
		{299 * time.Millisecond, QualityFair},
		{300 * time.Millisecond, QualityPoor},
		{400 * time.Millisecond, QualityPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.latency), "latency %s", tt.latency)
	}
}

func TestQualityForDisconnectedStates(t *testing.T) {
	for _, s := range []State{StateDisconnected, StateConnecting, StateReconnecting, StateFailed} {
		assert.Equal(t, QualityDisconnected, QualityFor(s, 10*time.Millisecond))
	}
	assert.Equal(t, QualityGood, QualityFor(StateConnected, 10*time.Millisecond))
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(20)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 21; i++ {
		h.Add(Sample{Timestamp: base.Add(time.Duration(i) * time.Second), Latency: time.Duration(i) * time.Millisecond})
	}

	samples := h.Samples()
	require.Len(t, samples, 20)
	assert.Equal(t, 20, h.Cap())
	assert.Equal(t, time.Millisecond, samples[0].Latency, "first sample evicted")
	assert.Equal(t, 20*time.Millisecond, samples[19].Latency)
}

func TestHistoryPartiallyFilled(t *testing.T) {
	h := NewHistory(4)
	assert.Empty(t, h.Samples())

	h.Add(Sample{Latency: 1})
	h.Add(Sample{Latency: 2})
	samples := h.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, time.Duration(1), samples[0].Latency)
	assert.Equal(t, time.Duration(2), samples[1].Latency)
}

func TestDiagnostics(t *testing.T) {
	h := NewHistory(20)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	h.Add(Sample{Latency: 100 * time.Millisecond})
	h.Add(Sample{Latency: 300 * time.Millisecond})
	h.Add(Sample{Latency: 2 * time.Second, TimedOut: true})
	h.Add(Sample{Latency: 200 * time.Millisecond})

	d := h.Diagnostics(at)
	assert.Equal(t, 650*time.Millisecond, d.AverageLatency)
	assert.Equal(t, 25.0, d.PacketLoss)
	assert.Equal(t, at, d.LastUpdated)
	// population standard deviation of 100, 300, 2000, 200 ms
	assert.InDelta(t, float64(782623*time.Microsecond), float64(d.Jitter), float64(time.Millisecond))
}

func TestMonitorDiagnosticsNeedTwoSamples(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m.Record(t0, 80*time.Millisecond, false)
	assert.Equal(t, Diagnostics{}, m.Diagnostics())

	t1 := t0.Add(5 * time.Second)
	m.Record(t1, 120*time.Millisecond, false)
	d := m.Diagnostics()
	assert.Equal(t, 100*time.Millisecond, d.AverageLatency)
	assert.Equal(t, 20*time.Millisecond, d.Jitter)
	assert.Equal(t, t1, d.LastUpdated)
}

func TestMonitorSampleScenario(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s := m.Record(t0, 120*time.Millisecond, false)
	assert.Equal(t, 120*time.Millisecond, s.Latency)
	assert.Equal(t, QualityFair, s.Quality)

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, s, latest)
}

// pongServer answers pings after a delay, or never when delay is negative.
type pongServer struct {
	mu      sync.Mutex
	monitor *Monitor
	delay   time.Duration
}

func (p *pongServer) send(msg protocol.Message) error {
	if msg.Type != protocol.TypePing || p.delay < 0 {
		return nil
	}
	go func() {
		time.Sleep(p.delay)
		p.mu.Lock()
		defer p.mu.Unlock()
		p.monitor.HandlePong(msg.ID)
	}()
	return nil
}

func runMonitor(t *testing.T, m *Monitor, send func(protocol.Message) error) Sample {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	samples := make(chan Sample, 1)
	go func() {
		_ = m.Run(ctx, send, func(s Sample) {
			select {
			case samples <- s:
			default:
			}
		})
	}()

	select {
	case s := <-samples:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no sample recorded")
		return Sample{}
	}
}

func TestMonitorMeasuresRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.PingInterval = 5 * time.Millisecond
	cfg.PingTimeout = time.Second
	m := NewMonitor(cfg, nil)

	server := &pongServer{monitor: m, delay: 120 * time.Millisecond}
	s := runMonitor(t, m, server.send)

	assert.False(t, s.TimedOut)
	assert.GreaterOrEqual(t, s.Latency, 120*time.Millisecond)
	assert.Equal(t, Classify(s.Latency), s.Quality)
}

func TestMonitorRecordsTimeoutAsLoss(t *testing.T) {
	cfg := testConfig()
	cfg.PingInterval = 5 * time.Millisecond
	cfg.PingTimeout = 30 * time.Millisecond
	m := NewMonitor(cfg, nil)

	server := &pongServer{monitor: m, delay: -1}
	s := runMonitor(t, m, server.send)

	assert.True(t, s.TimedOut)
	assert.Equal(t, 30*time.Millisecond, s.Latency)
	// a lost ping is poor no matter how short the timeout
	assert.Equal(t, QualityPoor, s.Quality)

	// a second timed out sample makes diagnostics report full loss
	m.Record(time.Now(), cfg.PingTimeout, true)
	assert.Equal(t, 100.0, m.Diagnostics().PacketLoss)
}

func TestMonitorIgnoresUnknownPong(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	m.HandlePong("nobody-asked")
	_, ok := m.Latest()
	assert.False(t, ok)
}

func TestMonitorStopsOnSendFailure(t *testing.T) {
	cfg := testConfig()
	cfg.PingInterval = time.Millisecond
	m := NewMonitor(cfg, nil)

	boom := errors.New("write failed")
	err := m.Run(context.Background(), func(protocol.Message) error { return boom }, nil)
	assert.ErrorIs(t, err, boom)
}
