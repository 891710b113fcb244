package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/council/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// keyOrder lists every key of configKeys in config.toml section order.
var keyOrder = []string{
	"client.api_target",
	"client.device_id",
	"client.request_timeout",
	"client.stream_idle_timeout",
	"client.max_line_bytes",
	"render.plain",
	"render.width",
	"log.json",
	"events.brokers",
	"events.topic",
}

// Configer reads and writes the config.toml of one council directory.
type Configer struct {
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	path, err := dotdir.NewManager().File(override, configFile)
	if err != nil {
		return nil, err
	}
	return &Configer{targetPath: path}, nil
}

// GetTarget returns the path of config.toml, which may not exist yet.
func (c *Configer) GetTarget() string {
	return c.targetPath
}

// ValidConfigKeys returns every supported key in config.toml section order.
func ValidConfigKeys() []string {
	return slices.Clone(keyOrder)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func lookupKey(key string) (configKeyInfo, error) {
	info, ok := configKeys[key]
	if !ok {
		return configKeyInfo{}, fmt.Errorf("unknown config key: %q", key)
	}
	return info, nil
}

// LoadConfig reads config.toml and fills every unset field with its
// default. A missing file yields NewDefaultConfig.
func (c *Configer) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(c.targetPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	setIfZero(&cfg.Version, d.Version)
	setIfZero(&cfg.Client.APITarget, d.Client.APITarget)
	setIfZero(&cfg.Client.RequestTimeout, d.Client.RequestTimeout)
	setIfZero(&cfg.Client.StreamIdleTimeout, d.Client.StreamIdleTimeout)
	setIfZero(&cfg.Client.MaxLineBytes, d.Client.MaxLineBytes)
	setIfZero(&cfg.Render.Width, d.Render.Width)
	setIfZero(&cfg.Events.Topic, d.Events.Topic)
}

func setIfZero[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// SaveConfig writes cfg to config.toml. The file is replaced atomically so
// a concurrent reader never sees a partial config.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.targetPath), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.targetPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SetConfigValue validates value for key and saves it to config.toml.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := info.set(cfg, value); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// GetConfigValue returns the value of key from config.toml, or its default.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return info.get(cfg), nil
}

// ParseConfigTOML parses raw TOML bytes into a Config. Unknown keys and
// versions other than CurrentV are rejected.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if keys := unknownKeys(md.Undecoded()); len(keys) > 0 {
		return nil, fmt.Errorf("parsing config TOML: unknown keys %s", strings.Join(keys, ", "))
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return cfg, nil
}

// unknownKeys names the undecoded keys, leaving out tables whose own keys
// are already listed.
func unknownKeys(undecoded []toml.Key) []string {
	var keys []string
	for i, k := range undecoded {
		parent := false
		for j, other := range undecoded {
			if i != j && len(other) > len(k) && slices.Equal(other[:len(k)], k) {
				parent = true
				break
			}
		}
		if !parent {
			keys = append(keys, k.String())
		}
	}
	return keys
}
