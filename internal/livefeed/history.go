package livefeed

import (
	"container/ring"
	"math"
	"time"
)

// Sample is one heartbeat measurement.
type Sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Quality   Quality
	// TimedOut marks pings that got no reply within the ping timeout.
	TimedOut bool
}

type Diagnostics struct {
	AverageLatency time.Duration
	Jitter         time.Duration
	PacketLoss     float64
	LastUpdated    time.Time
}

// History keeps the most recent samples, evicting the oldest once full.
type History struct {
	next *ring.Ring
	size int
}

func NewHistory(capacity int) *History {
	return &History{next: ring.New(capacity)}
}

func (h *History) Add(s Sample) {
	h.next.Value = s
	h.next = h.next.Next()
	if h.size < h.next.Len() {
		h.size++
	}
}

func (h *History) Len() int {
	return h.size
}

func (h *History) Cap() int {
	return h.next.Len()
}

// Samples returns the retained samples, oldest first.
func (h *History) Samples() []Sample {
	out := make([]Sample, 0, h.size)
	r := h.next.Move(-h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, r.Value.(Sample))
		r = r.Next()
	}
	return out
}

// Diagnostics computes mean latency, population standard deviation of
// latency and the share of timed out pings over the retained samples.
func (h *History) Diagnostics(at time.Time) Diagnostics {
	samples := h.Samples()
	if len(samples) == 0 {
		return Diagnostics{LastUpdated: at}
	}

	var sum float64
	lost := 0
	for _, s := range samples {
		sum += float64(s.Latency)
		if s.TimedOut {
			lost++
		}
	}
	n := float64(len(samples))
	mean := sum / n

	var variance float64
	for _, s := range samples {
		d := float64(s.Latency) - mean
		variance += d * d
	}
	variance /= n

	return Diagnostics{
		AverageLatency: time.Duration(mean),
		Jitter:         time.Duration(math.Sqrt(variance)),
		PacketLoss:     float64(lost) / n * 100,
		LastUpdated:    at,
	}
}
