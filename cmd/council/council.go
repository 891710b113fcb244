// Package councilcmder
package councilcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/council/cmd/council/ask"
	chatcmder "github.com/papercomputeco/council/cmd/council/chat"
	configcmder "github.com/papercomputeco/council/cmd/council/config"
	conversationscmder "github.com/papercomputeco/council/cmd/council/conversations"
	versioncmder "github.com/papercomputeco/council/cmd/version"
)

const councilLongDesc string = `Council puts your questions to an ensemble of language models.

Every answer is produced in three stages: each model answers on its own,
the models rank each other's anonymized answers, and a chairman model
synthesizes the final answer. Progress is streamed from the council backend
and printed stage by stage.

Talk to the council using:
  council chat                 Start an interactive session
  council ask <prompt>...      Ask one or more prompts at once
  council conversations list   Browse stored conversations
  council config list          Show the effective configuration`

const councilShortDesc string = "Council - LLM council client"

func NewCouncilCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "council",
		Short:        councilShortDesc,
		Long:         councilLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml and client state (default ./.council or ~/.council)")
	cmd.PersistentFlags().String("log-file", "", "Also write debug logs as JSON lines to this file")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(conversationscmder.NewConversationsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
