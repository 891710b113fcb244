package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent council configuration stored as
// config.toml in the .council/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Render  RenderConfig `toml:"render"`
	Log     LogConfig    `toml:"log"`
	Events  EventsConfig `toml:"events"`
}

// ClientConfig holds the settings used to reach the council backend.
// Durations are Go duration strings ("30s", "2m").
type ClientConfig struct {
	APITarget         string `toml:"api_target,omitempty"`
	DeviceID          string `toml:"device_id,omitempty"`
	RequestTimeout    string `toml:"request_timeout,omitempty"`
	StreamIdleTimeout string `toml:"stream_idle_timeout,omitempty"`
	MaxLineBytes      int    `toml:"max_line_bytes,omitempty"`
}

// RequestTimeoutDuration parses RequestTimeout.
func (c ClientConfig) RequestTimeoutDuration() (time.Duration, error) {
	return parseDuration("client.request_timeout", c.RequestTimeout)
}

// StreamIdleTimeoutDuration parses StreamIdleTimeout.
func (c ClientConfig) StreamIdleTimeoutDuration() (time.Duration, error) {
	return parseDuration("client.stream_idle_timeout", c.StreamIdleTimeout)
}

// RenderConfig holds terminal output settings.
type RenderConfig struct {
	// Plain disables markdown rendering and styling of answers.
	Plain bool `toml:"plain,omitempty"`

	// Width is the word wrap width for rendered markdown.
	Width uint `toml:"width,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// JSON switches log output to JSON lines.
	JSON bool `toml:"json,omitempty"`
}

// EventsConfig holds the optional Kafka sink for finished answers.
type EventsConfig struct {
	// Brokers is a comma separated list of Kafka brokers. Publishing is
	// disabled when empty.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// BrokerList splits Brokers into addresses, dropping blanks.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	return d, nil
}

func validateTarget(v string) error {
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("invalid value for client.api_target: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid value for client.api_target: %q is not an http(s) URL", v)
	}
	return nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error {
			if err := validateTarget(v); err != nil {
				return err
			}
			c.Client.APITarget = v
			return nil
		},
	},
	"client.device_id": {
		get: func(c *Config) string { return c.Client.DeviceID },
		set: func(c *Config, v string) error { c.Client.DeviceID = v; return nil },
	},
	"client.request_timeout": {
		get: func(c *Config) string { return c.Client.RequestTimeout },
		set: func(c *Config, v string) error {
			if _, err := parseDuration("client.request_timeout", v); err != nil {
				return err
			}
			c.Client.RequestTimeout = v
			return nil
		},
	},
	"client.stream_idle_timeout": {
		get: func(c *Config) string { return c.Client.StreamIdleTimeout },
		set: func(c *Config, v string) error {
			if _, err := parseDuration("client.stream_idle_timeout", v); err != nil {
				return err
			}
			c.Client.StreamIdleTimeout = v
			return nil
		},
	},
	"client.max_line_bytes": {
		get: func(c *Config) string {
			if c.Client.MaxLineBytes == 0 {
				return ""
			}
			return strconv.Itoa(c.Client.MaxLineBytes)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.max_line_bytes: %w", err)
			}
			if n <= 0 {
				return fmt.Errorf("invalid value for client.max_line_bytes: must be positive")
			}
			c.Client.MaxLineBytes = n
			return nil
		},
	},
	"render.plain": {
		get: func(c *Config) string { return strconv.FormatBool(c.Render.Plain) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for render.plain: %w", err)
			}
			c.Render.Plain = b
			return nil
		},
	},
	"render.width": {
		get: func(c *Config) string {
			if c.Render.Width == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Render.Width), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for render.width: %w", err)
			}
			c.Render.Width = uint(n)
			return nil
		},
	},
	"log.json": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for log.json: %w", err)
			}
			c.Log.JSON = b
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error {
			if strings.TrimSpace(v) == "" {
				return errors.New("invalid value for events.topic: must not be empty")
			}
			c.Events.Topic = v
			return nil
		},
	},
}
