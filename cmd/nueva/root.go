// Package nueva implements the engine's CLI surface: a thin external
// collaborator over the project/layer/undo/bake machinery in internal/.
package nueva

import (
	"github.com/spf13/cobra"

	"github.com/nuevaaudio/nueva-engine/internal/nconf"
)

// RootCommand builds the "nueva" root command and its subcommands.
func RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "nueva",
		Short: "Non-destructive audio editing engine",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		_, err := nconf.Load()
		return err
	}

	root.AddCommand(
		createProjectCommand(),
		projectCommand(),
		saveStateCommand(),
		undoCommand(),
		redoCommand(),
		historyCommand(),
		bakeCommand(),
		printStateCommand(),
	)
	return root
}

// ExitCode maps a command error to the process exit code the CLI should
// return, per the engine's error taxonomy.
func ExitCode(err error) int { return exitCode(err) }
