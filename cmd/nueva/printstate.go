package nueva

import (
	"fmt"

	"github.com/spf13/cobra"
)

func printStateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print-state <path>",
		Short: "Print a summary of the project's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, recoveryMsg, err := openProject(args[0])
			if err != nil {
				return err
			}
			if recoveryMsg != "" {
				fmt.Fprintln(cmd.OutOrStdout(), recoveryMsg)
			}

			s := p.Summary()
			fmt.Fprintf(cmd.OutOrStdout(), "name=%s\n", s.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "has_ai_processing=%t\n", s.HasAIProcessing)
			if s.AIModel != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "ai_model=%s\n", *s.AIModel)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dsp_effect_count=%d\n", s.DSPEffectCount)
			fmt.Fprintf(cmd.OutOrStdout(), "enabled_effect_count=%d\n", s.EnabledEffectCount)
			fmt.Fprintf(cmd.OutOrStdout(), "created_at=%s\n", s.CreatedAt.Format("2006-01-02T15:04:05Z"))
			fmt.Fprintf(cmd.OutOrStdout(), "modified_at=%s\n", s.ModifiedAt.Format("2006-01-02T15:04:05Z"))
			return nil
		},
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}
