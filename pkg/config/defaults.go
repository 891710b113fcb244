package config

const (
	defaultClientAPITarget   = "http://localhost:8000"
	defaultRequestTimeout    = "30s"
	defaultStreamIdleTimeout = "3m"
	defaultMaxLineBytes      = 1024 * 1024

	defaultRenderWidth = 80

	defaultEventsTopic = "council.answers"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APITarget:         defaultClientAPITarget,
			RequestTimeout:    defaultRequestTimeout,
			StreamIdleTimeout: defaultStreamIdleTimeout,
			MaxLineBytes:      defaultMaxLineBytes,
		},
		Render: RenderConfig{
			Width: defaultRenderWidth,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
	}
}
