package livefeed

import "time"

type Config struct {
	URL   string
	Token string

	MaxReconnectAttempts int
	AttemptTimeout       time.Duration
	ReconnectDelay       time.Duration
	ReconnectDelayMax    time.Duration

	PingInterval time.Duration
	PingTimeout  time.Duration
	HistorySize  int

	// ReconnectNoticeWindow is how long a manual reconnect stays flagged as
	// succeeded.
	ReconnectNoticeWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts:  5,
		AttemptTimeout:        10 * time.Second,
		ReconnectDelay:        time.Second,
		ReconnectDelayMax:     5 * time.Second,
		PingInterval:          5 * time.Second,
		PingTimeout:           2 * time.Second,
		HistorySize:           20,
		ReconnectNoticeWindow: 3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.ReconnectDelayMax <= 0 {
		c.ReconnectDelayMax = d.ReconnectDelayMax
	}
	if c.ReconnectDelayMax < c.ReconnectDelay {
		c.ReconnectDelayMax = c.ReconnectDelay
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	if c.ReconnectNoticeWindow <= 0 {
		c.ReconnectNoticeWindow = d.ReconnectNoticeWindow
	}
	return c
}
