package nueva

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nuevaaudio/nueva-engine/internal/layers"
)

func projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project <path>",
		Short: "Load a project, running crash recovery, and print its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, recoveryMsg, err := openProject(args[0])
			if err != nil {
				return err
			}
			if recoveryMsg != "" {
				fmt.Fprintln(cmd.OutOrStdout(), recoveryMsg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema_version=%s modified_at=%s\n", layers.CurrentSchemaVersion, p.ModifiedAt.Format("2006-01-02T15:04:05Z"))
			return nil
		},
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}
