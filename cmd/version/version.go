// Package versioncmder
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/council/pkg/cliui"
	"github.com/papercomputeco/council/pkg/utils"
)

type versionCommander struct {
	short bool
}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version, commit and build time of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&cmder.short, "short", "s", false, "Print only the version")

	return cmd
}

func (c *versionCommander) run(w io.Writer) error {
	if c.short {
		fmt.Fprintln(w, utils.Version)
		return nil
	}

	fmt.Fprintf(w, "%s %s\n%s %s\n%s %s\n",
		cliui.KeyStyle.Render("Version: "), utils.Version,
		cliui.KeyStyle.Render("Sha:     "), utils.Sha,
		cliui.KeyStyle.Render("Built at:"), utils.Buildtime,
	)
	return nil
}
