package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zoransi/split-laundry-express/internal/livefeed"
)

// Config holds the tracker configuration
type Config struct {
	// Server is the API base URL, e.g. http://localhost:8080
	Server string `mapstructure:"server"`

	// Token is the bearer token sent to the API and the live endpoint
	Token string `mapstructure:"token"`

	// Verbose enables debug logging on stderr
	Verbose bool `mapstructure:"verbose"`

	Live LiveConfig `mapstructure:"live"`
}

// LiveConfig tunes the live connection
type LiveConfig struct {
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
	AttemptTimeout       time.Duration `mapstructure:"attempt_timeout"`
	PingInterval         time.Duration `mapstructure:"ping_interval"`
	PingTimeout          time.Duration `mapstructure:"ping_timeout"`
}

func setDefaults(v *viper.Viper) {
	d := livefeed.DefaultConfig()

	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("token", "")
	v.SetDefault("verbose", false)
	v.SetDefault("live.max_reconnect_attempts", d.MaxReconnectAttempts)
	v.SetDefault("live.attempt_timeout", d.AttemptTimeout)
	v.SetDefault("live.ping_interval", d.PingInterval)
	v.SetDefault("live.ping_timeout", d.PingTimeout)
}

func configureViper(v *viper.Viper) {
	v.SetConfigName("tracker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.laundry")

	// LAUNDRY_SERVER, LAUNDRY_TOKEN, LAUNDRY_LIVE_PING_INTERVAL, ...
	v.SetEnvPrefix("LAUNDRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func loadConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server must be an http(s) URL, got %q", cfg.Server)
	}
	if cfg.Token == "" {
		return errors.New("token is required")
	}
	if cfg.Live.MaxReconnectAttempts < 1 {
		return errors.New("live.max_reconnect_attempts must be at least 1")
	}
	return nil
}

// liveURL derives the websocket endpoint from the API base URL.
func (c *Config) liveURL() string {
	u, _ := url.Parse(strings.TrimRight(c.Server, "/"))
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/api/v1/live"
	return u.String()
}

func (c *Config) feedConfig() livefeed.Config {
	cfg := livefeed.DefaultConfig()
	cfg.URL = c.liveURL()
	cfg.Token = c.Token
	cfg.MaxReconnectAttempts = c.Live.MaxReconnectAttempts
	cfg.AttemptTimeout = c.Live.AttemptTimeout
	cfg.PingInterval = c.Live.PingInterval
	cfg.PingTimeout = c.Live.PingTimeout
	return cfg
}
