package nueva

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nuevaaudio/nueva-engine/internal/undo"
)

func saveStateCommand() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "save-state <path>",
		Short: "Snapshot the current project state onto the undo stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			p, _, err := openProject(path)
			if err != nil {
				return err
			}

			before, err := p.MarshalJSON()
			if err != nil {
				return err
			}

			mgr, err := loadUndoManager(path)
			if err != nil {
				return err
			}

			if description == "" {
				description = "manual save"
			}
			mgr.Push(undo.NewAction(undo.ActionDspChange, description, before, before))

			if err := mgr.Save(historyDirOf(path)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "state saved")
			return nil
		},
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.Flags().StringVar(&description, "description", "", "description recorded with this snapshot")
	return cmd
}
