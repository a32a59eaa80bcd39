package livefeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZeroConfigUsesDefaults(t *testing.T) {
	assert.Equal(t, DefaultConfig(), Config{}.withDefaults())
}

func TestReconnectDelayMaxNeverBelowDelay(t *testing.T) {
	cfg := Config{ReconnectDelay: 8 * time.Second}.withDefaults()
	assert.Equal(t, 8*time.Second, cfg.ReconnectDelayMax)

	cfg = Config{ReconnectDelay: 2 * time.Second}.withDefaults()
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelayMax)
}
