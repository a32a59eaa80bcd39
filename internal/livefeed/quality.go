package livefeed

import "time"

type Quality string

const (
	QualityGood         Quality = "good"
	QualityFair         Quality = "fair"
	QualityPoor         Quality = "poor"
	QualityDisconnected Quality = "disconnected"
)

const (
	goodLatency = 100 * time.Millisecond
	fairLatency = 300 * time.Millisecond
)

// Classify maps a round trip time to a link quality.
func Classify(latency time.Duration) Quality {
	switch {
	case latency < goodLatency:
		return QualityGood
	case latency < fairLatency:
		return QualityFair
	default:
		return QualityPoor
	}
}

// QualityFor is the quality shown for a connection in state s whose last
// sample measured latency.
func QualityFor(s State, latency time.Duration) Quality {
	if s != StateConnected {
		return QualityDisconnected
	}
	return Classify(latency)
}
