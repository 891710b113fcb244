// Package configcmder provides the config command for managing persistent
// council configuration stored in the .council/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/council/pkg/cliui"
	"github.com/papercomputeco/council/pkg/config"
)

const configLongDesc string = `Manage persistent council configuration.

Configuration is stored as config.toml in the .council/ directory and provides
default values for command flags. CLI flags and COUNCIL_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_target, client.device_id,
  client.request_timeout, client.stream_idle_timeout, client.max_line_bytes,
  render.plain, render.width,
  log.json

Use subcommands to get, set, or list configuration values:
  council config set <key> <value>    Set a configuration value
  council config get <key>            Get a configuration value
  council config list                 List all configuration values

Examples:
  council config set client.api_target http://council.internal:8000
  council config set client.stream_idle_timeout 5m
  council config get render.width
  council config list`

const configShortDesc string = "Manage persistent council configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// completeKeys offers the config keys for the first argument.
func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
