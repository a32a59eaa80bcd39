package livefeed

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Snapshot is a consistent view of the manager at one point in time.
type Snapshot struct {
	State State
	// Attempt counts failed connection attempts in the current sequence.
	Attempt            int
	MaxAttempts        int
	Reason             *Reason
	ReconnectSucceeded bool
	Quality            Quality
	Diagnostics        Diagnostics
	History            []Sample
	Joined             []string
}

func (s Snapshot) Connected() bool {
	return s.State == StateConnected
}
