package conversationscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/council/cmd/council/cmdenv"
	"github.com/papercomputeco/council/pkg/cliui"
)

const showLongDesc string = `Print a conversation with the individual responses, peer rankings and
final answer of every council reply.

Examples:
  council conversations show 6f1c2e9a-0b7d-4c1e-9d55-3f2a1b0c9e8d
  council conversations show --plain 6f1c2e9a-0b7d-4c1e-9d55-3f2a1b0c9e8d`

const showShortDesc string = "Print a conversation"

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdenv.Load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			return runShow(cmd.Context(), env, args[0])
		},
	}

	cmdenv.AddClientFlags(cmd)
	return cmd
}

func runShow(ctx context.Context, env *cmdenv.Env, id string) error {
	cl, err := env.Client()
	if err != nil {
		return err
	}

	conv, err := cl.GetConversation(ctx, id)
	if err != nil {
		return err
	}

	out := env.Stdout
	title := conv.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(out, "\n  %s  %s\n", cliui.KeyStyle.Render("Conversation:"), cliui.HashStyle.Render(conv.ID))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("Title:       "), cliui.NameStyle.Render(title))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("Messages:    "), cliui.ValueStyle.Render(fmt.Sprint(len(conv.Messages))))

	cliui.RenderConversation(out, conv, env.RenderOptions()...)
	fmt.Fprintln(out)
	return nil
}
