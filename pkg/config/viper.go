package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/council/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the COUNCIL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (COUNCIL_CLIENT_API_TARGET, COUNCIL_LOG_JSON, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: COUNCIL_CLIENT_API_TARGET, COUNCIL_RENDER_WIDTH, etc.
	v.SetEnvPrefix("COUNCIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper resolves the effective configuration from v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			APITarget:         v.GetString("client.api_target"),
			DeviceID:          v.GetString("client.device_id"),
			RequestTimeout:    v.GetString("client.request_timeout"),
			StreamIdleTimeout: v.GetString("client.stream_idle_timeout"),
			MaxLineBytes:      v.GetInt("client.max_line_bytes"),
		},
		Render: RenderConfig{
			Plain: v.GetBool("render.plain"),
			Width: v.GetUint("render.width"),
		},
		Log: LogConfig{
			JSON: v.GetBool("log.json"),
		},
		Events: EventsConfig{
			Brokers: v.GetString("events.brokers"),
			Topic:   v.GetString("events.topic"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that need parsing before use.
func (c *Config) Validate() error {
	if c.Version != CurrentV {
		return fmt.Errorf("unsupported config version %d (expected %d)", c.Version, CurrentV)
	}
	if err := validateTarget(c.Client.APITarget); err != nil {
		return err
	}
	if _, err := c.Client.RequestTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Client.StreamIdleTimeoutDuration(); err != nil {
		return err
	}
	if len(c.Events.BrokerList()) > 0 && c.Events.Topic == "" {
		return errors.New("invalid value for events.topic: required when events.brokers is set")
	}
	if c.Client.MaxLineBytes < 0 {
		return errors.New("invalid value for client.max_line_bytes: must be positive")
	}
	return nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)
	v.SetDefault("client.device_id", d.Client.DeviceID)
	v.SetDefault("client.request_timeout", d.Client.RequestTimeout)
	v.SetDefault("client.stream_idle_timeout", d.Client.StreamIdleTimeout)
	v.SetDefault("client.max_line_bytes", d.Client.MaxLineBytes)

	// Render
	v.SetDefault("render.plain", d.Render.Plain)
	v.SetDefault("render.width", d.Render.Width)

	// Log
	v.SetDefault("log.json", d.Log.JSON)

	// Events
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
