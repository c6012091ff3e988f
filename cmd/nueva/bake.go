package nueva

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nuevaaudio/nueva-engine/internal/notify"
)

// drainDelay gives the dispatcher's background loop one poll cycle to
// deliver a just-queued event before the CLI process exits.
const drainDelay = 100 * time.Millisecond

func bakeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bake <path>",
		Short: "Render Layer 1 + Layer 2 into a new immutable Layer 0",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			p, _, err := openProject(path)
			if err != nil {
				return err
			}

			dispatcher := notify.NewDispatcher()
			dispatcher.Start()
			defer func() {
				time.Sleep(drainDelay)
				dispatcher.Stop()
			}()

			if err := p.Bake(); err != nil {
				dispatcher.Notify(notify.Event{
					Kind:        notify.EventBakeFailed,
					ProjectName: p.Name,
					HTMLBody:    fmt.Sprintf("<p>bake failed: %s</p>", err),
				})
				return err
			}

			dispatcher.Notify(notify.Event{
				Kind:        notify.EventBakeComplete,
				ProjectName: p.Name,
				HTMLBody:    "<p>bake completed</p>",
			})
			fmt.Fprintln(cmd.OutOrStdout(), "bake complete")
			return nil
		},
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}
