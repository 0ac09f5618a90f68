package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewSpecgateCommand builds the root command with all subcommands attached.
func NewSpecgateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specgate",
		Short: "specgate normalizes API descriptions and gates which capabilities automated callers may see",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(NewCmdInspect())
	cmd.AddCommand(NewCmdClassify())
	cmd.AddCommand(NewCmdServe())
	return cmd
}
