// Package cmdenv resolves what every backend-facing council command needs:
// the effective configuration, the logger, the backend client and the
// device identifier.
package cmdenv

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/council/pkg/cliui"
	"github.com/papercomputeco/council/pkg/client"
	"github.com/papercomputeco/council/pkg/config"
	"github.com/papercomputeco/council/pkg/dotdir"
	"github.com/papercomputeco/council/pkg/eventstream"
	"github.com/papercomputeco/council/pkg/eventstream/kafka"
	"github.com/papercomputeco/council/pkg/eventstream/nop"
	"github.com/papercomputeco/council/pkg/logger"
)

// flagValues holds the flag targets. Values are read back through viper,
// which also sees the environment and config file.
type flagValues struct {
	apiTarget         string
	deviceID          string
	requestTimeout    string
	streamIdleTimeout string
	plain             bool
	width             uint
	logJSON           bool
}

// AddClientFlags registers the shared client flags on cmd.
func AddClientFlags(cmd *cobra.Command) {
	v := &flagValues{}
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &v.apiTarget)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagDeviceID, &v.deviceID)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagRequestTimeout, &v.requestTimeout)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagStreamIdleTimeout, &v.streamIdleTimeout)
	config.AddBoolFlag(cmd, config.ClientFlags, config.FlagPlain, &v.plain)
	config.AddUintFlag(cmd, config.ClientFlags, config.FlagWidth, &v.width)
	config.AddBoolFlag(cmd, config.ClientFlags, config.FlagLogJSON, &v.logJSON)
}

// Env is the resolved runtime of a command.
type Env struct {
	ConfigDir string
	Config    *config.Config
	Logger    *slog.Logger

	Stdout io.Writer
	Stderr io.Writer

	dotdir  *dotdir.Manager
	closers []io.Closer
}

// Load resolves the configuration of cmd (flag > env > config file >
// defaults) and builds its logger. The persistent --debug, --config-dir
// and --log-file flags are read when present.
func Load(cmd *cobra.Command) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")
	logFile, _ := cmd.Flags().GetString("log-file")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.ClientFlags, config.ClientFlagKeys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	env := &Env{
		ConfigDir: configDir,
		Config:    cfg,
		Stdout:    cmd.OutOrStdout(),
		Stderr:    cmd.ErrOrStderr(),
		dotdir:    dotdir.NewManager(),
	}

	format := logger.FormatText
	switch {
	case cfg.Log.JSON:
		format = logger.FormatJSON
	case cliui.IsTerminal(env.Stderr):
		format = logger.FormatPretty
	}
	env.Logger = logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(format),
		logger.WithPrefix(cmd.Name()),
		logger.WithWriter(env.Stderr),
	)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		env.closers = append(env.closers, f)
		env.Logger = logger.Tee(env.Logger, logger.New(
			logger.WithDebug(true),
			logger.WithFormat(logger.FormatJSON),
			logger.WithPrefix(cmd.Name()),
			logger.WithWriter(f),
		))
	}

	return env, nil
}

// Client builds the backend client from the effective configuration.
func (e *Env) Client() (*client.Client, error) {
	requestTimeout, err := e.Config.Client.RequestTimeoutDuration()
	if err != nil {
		return nil, err
	}
	idleTimeout, err := e.Config.Client.StreamIdleTimeoutDuration()
	if err != nil {
		return nil, err
	}

	return client.New(e.Config.Client.APITarget,
		client.WithRequestTimeout(requestTimeout),
		client.WithStreamIdleTimeout(idleTimeout),
		client.WithMaxLineBytes(e.Config.Client.MaxLineBytes),
		client.WithLogger(e.Logger),
	)
}

// DeviceID returns the configured device identifier, or the one persisted
// in the .council directory, generating it on first use.
func (e *Env) DeviceID() (string, error) {
	if e.Config.Client.DeviceID != "" {
		return e.Config.Client.DeviceID, nil
	}
	id, err := e.dotdir.DeviceID(e.ConfigDir)
	if err != nil {
		return "", fmt.Errorf("resolving device id: %w", err)
	}
	return id, nil
}

// Publisher returns the answer event publisher: Kafka when events.brokers
// is set, a no-op publisher otherwise. The caller closes it.
func (e *Env) Publisher() (eventstream.Publisher, error) {
	brokers := e.Config.Events.BrokerList()
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	pub, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   e.Config.Events.Topic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	e.Logger.Debug("publishing answer events", "brokers", brokers, "topic", e.Config.Events.Topic)
	return pub, nil
}

// EventSource describes this client in published events.
func (e *Env) EventSource(deviceID string) eventstream.EventSource {
	return eventstream.EventSource{
		DeviceID: deviceID,
		Backend:  e.Config.Client.APITarget,
	}
}

// LastConversation returns the conversation recorded by the last chat, if
// any.
func (e *Env) LastConversation() (string, error) {
	state, err := e.dotdir.LoadState(e.ConfigDir)
	if err != nil {
		return "", err
	}
	return state.LastConversation, nil
}

// RememberConversation records id as the conversation to resume. Failures
// are logged: they never fail the command.
func (e *Env) RememberConversation(id string) {
	if err := e.dotdir.SetLastConversation(id, e.ConfigDir); err != nil {
		e.Logger.Warn("could not record last conversation", "conversation", id, "error", err)
	}
}

// RenderOptions returns the cliui options for the effective configuration.
// Styling is turned off when stdout is not a terminal.
func (e *Env) RenderOptions() []cliui.RenderOption {
	return []cliui.RenderOption{
		cliui.WithPlain(e.Config.Render.Plain || !cliui.IsTerminal(e.Stdout)),
		cliui.WithWidth(e.Config.Render.Width),
	}
}

// Close releases the log file, if one was opened.
func (e *Env) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
