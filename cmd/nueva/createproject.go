package nueva

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nuevaaudio/nueva-engine/internal/layers"
)

func createProjectCommand() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "create-project <path>",
		Short: "Create a new project directory from a source WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if inputPath == "" {
				return fmt.Errorf("--input is required")
			}
			name := path
			p, err := layers.CreateProject(name, inputPath, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created project %s at %s\n", p.Name, p.Dir)
			return nil
		},
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.Flags().StringVar(&inputPath, "input", "", "path to the source WAV file to import")
	return cmd
}
