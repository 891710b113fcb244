package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g. --api-target
// on "council chat", "council ask" and "council conversations").
type Flag struct {
	// Name is the long flag name (e.g. "api-target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "a"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.api_target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPITarget         = "api-target"
	FlagDeviceID          = "device-id"
	FlagRequestTimeout    = "request-timeout"
	FlagStreamIdleTimeout = "stream-idle-timeout"
	FlagPlain             = "plain"
	FlagWidth             = "width"
	FlagLogJSON           = "log-json"
)

// ClientFlags is the FlagSet shared by every command that talks to the
// backend.
var ClientFlags = FlagSet{
	FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "Council backend URL",
	},
	FlagDeviceID: {
		Name:        "device-id",
		ViperKey:    "client.device_id",
		Description: "Device identifier owning the conversations (generated when empty)",
	},
	FlagRequestTimeout: {
		Name:        "request-timeout",
		ViperKey:    "client.request_timeout",
		Description: "Timeout for non-streaming backend calls",
	},
	FlagStreamIdleTimeout: {
		Name:        "stream-idle-timeout",
		ViperKey:    "client.stream_idle_timeout",
		Description: "Abort a stream after this long without data (0 disables)",
	},
	FlagPlain: {
		Name:        "plain",
		ViperKey:    "render.plain",
		Description: "Print answers without markdown rendering or styling",
	},
	FlagWidth: {
		Name:        "width",
		ViperKey:    "render.width",
		Description: "Wrap width for rendered answers",
	},
	FlagLogJSON: {
		Name:        "log-json",
		ViperKey:    "log.json",
		Description: "Write logs as JSON lines",
	},
}

// ClientFlagKeys lists every key in ClientFlags.
var ClientFlagKeys = []string{
	FlagAPITarget,
	FlagDeviceID,
	FlagRequestTimeout,
	FlagStreamIdleTimeout,
	FlagPlain,
	FlagWidth,
	FlagLogJSON,
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
