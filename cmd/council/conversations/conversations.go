// Package conversationscmder provides the conversations command for listing,
// creating and displaying the conversations stored by the council backend.
package conversationscmder

import (
	"github.com/spf13/cobra"
)

const conversationsLongDesc string = `Manage council conversations.

Conversations are stored by the council backend and owned by a device
identifier. The identifier is taken from client.device_id, or generated once
and kept in the .council/ directory.

Use subcommands to list, create or show conversations:
  council conversations list         List the conversations of this device
  council conversations new          Start an empty conversation
  council conversations show <id>    Print a conversation with every stage`

const conversationsShortDesc string = "Manage council conversations"

func NewConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   conversationsShortDesc,
		Long:    conversationsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}
