package conversationscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/council/cmd/council/cmdenv"
	"github.com/papercomputeco/council/pkg/cliui"
)

const newLongDesc string = `Start an empty conversation and make it the one "council chat --resume"
continues.

Examples:
  council conversations new`

const newShortDesc string = "Start an empty conversation"

func newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: newShortDesc,
		Long:  newLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			return runNew(cmd.Context(), env)
		},
	}

	cmdenv.AddClientFlags(cmd)
	return cmd
}

func runNew(ctx context.Context, env *cmdenv.Env) error {
	cl, err := env.Client()
	if err != nil {
		return err
	}
	deviceID, err := env.DeviceID()
	if err != nil {
		return err
	}

	conv, err := cl.CreateConversation(ctx, deviceID)
	if err != nil {
		return err
	}
	env.RememberConversation(conv.ID)

	fmt.Fprintf(env.Stdout, "  %s Created %s\n", cliui.SuccessMark, cliui.HashStyle.Render(conv.ID))
	return nil
}
