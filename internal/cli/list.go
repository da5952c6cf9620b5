package cli

import (
	"time"

	"github.com/spf13/cobra"

	"aioniser/internal/output"
)

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cycles, err := app.Config.AllCycles()
			if err != nil {
				return err
			}

			summaries := make([]output.CycleSummary, 0, len(cycles))
			for _, name := range app.Config.CycleNames() {
				c := cycles[name]
				timeout := c.ResetTimeout
				if timeout == 0 {
					timeout = app.Stepper.ResetTimeout()
				}
				summaries = append(summaries, output.CycleSummary{
					Name:         c.Name,
					Steps:        c.Len(),
					Reset:        c.Reset,
					ResetTimeout: timeout.Round(time.Millisecond),
				})
			}

			app.Printer.CycleList(summaries)
			return nil
		},
	}
}
