package nueva

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nuevaaudio/nueva-engine/internal/historyindex"
)

func undoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo <path>",
		Short: "Revert the project to its state before the last saved action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			p, _, err := openProject(path)
			if err != nil {
				return err
			}
			mgr, err := loadUndoManager(path)
			if err != nil {
				return err
			}

			action, err := mgr.Undo()
			if err != nil {
				return err
			}
			if err := p.ApplyManifestJSON(action.StateBefore); err != nil {
				return err
			}
			if err := mgr.Save(historyDirOf(path)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "undid %q\n", action.Description)
			return nil
		},
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}

func redoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redo <path>",
		Short: "Reapply the most recently undone action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			p, _, err := openProject(path)
			if err != nil {
				return err
			}
			mgr, err := loadUndoManager(path)
			if err != nil {
				return err
			}

			action, err := mgr.Redo()
			if err != nil {
				return err
			}
			if err := p.ApplyManifestJSON(action.StateAfter); err != nil {
				return err
			}
			if err := mgr.Save(historyDirOf(path)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "redid %q\n", action.Description)
			return nil
		},
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}

func historyCommand() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "history <path>",
		Short: "List the project's recorded actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			mgr, err := loadUndoManager(path)
			if err != nil {
				return err
			}
			actions := mgr.History()

			ix, err := historyindex.Open(filepath.Join(historyDirOf(path), "index.db"))
			if err != nil {
				return err
			}
			defer ix.Close()

			if stale, err := ix.NeedsRebuild(len(actions)); err != nil {
				return err
			} else if stale {
				if err := ix.Rebuild(actions, mgr.DiscardedActionIDs()); err != nil {
					return err
				}
			}

			if model != "" {
				rows, err := ix.ActionsForModel(model)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-16s  %s\n", r.Timestamp.Format("2006-01-02T15:04:05Z"), r.ActionType, r.Description)
				}
				return nil
			}

			for _, a := range actions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-16s  %s\n", a.Timestamp.Format("2006-01-02T15:04:05Z"), a.Type, a.Description)
			}
			return nil
		},
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.Flags().StringVar(&model, "model", "", "filter to actions associated with neural processing by this model")
	return cmd
}
