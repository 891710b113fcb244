package conversationscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/council/cmd/council/cmdenv"
	"github.com/papercomputeco/council/pkg/cliui"
)

const listLongDesc string = `List the conversations of this device, as ordered by the backend.

The conversation "council chat --resume" would continue is marked with *.

Examples:
  council conversations list`

const listShortDesc string = "List conversations"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			return runList(cmd.Context(), env)
		},
	}

	cmdenv.AddClientFlags(cmd)
	return cmd
}

func runList(ctx context.Context, env *cmdenv.Env) error {
	cl, err := env.Client()
	if err != nil {
		return err
	}
	deviceID, err := env.DeviceID()
	if err != nil {
		return err
	}

	metas, err := cl.ListConversations(ctx, deviceID)
	if err != nil {
		return err
	}

	out := env.Stdout
	if len(metas) == 0 {
		fmt.Fprintf(out, "  %s No conversations yet. Start one with \"council chat\".\n", cliui.DimStyle.Render("●"))
		return nil
	}

	last, err := env.LastConversation()
	if err != nil {
		env.Logger.Warn("could not load state", "error", err)
	}

	fmt.Fprintln(out)
	for _, m := range metas {
		marker := " "
		if m.ID == last {
			marker = "*"
		}
		title := m.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(out, "%s %s  %s  %s\n",
			marker,
			cliui.HashStyle.Render(m.ID),
			cliui.NameStyle.Render(title),
			cliui.DimStyle.Render(fmt.Sprintf("%s · %d messages", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.MessageCount)),
		)
	}
	fmt.Fprintln(out)
	return nil
}
