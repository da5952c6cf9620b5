package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"aioniser/internal/config"
	"aioniser/internal/state"
)

func newResetCommand(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset <cycle...>",
		Short: "Forget the state of cycles",
		Long: `Forget the state of the named cycles so their next trigger runs step 1.

With --all the state file is replaced with an empty one without reading it,
which also recovers from a corrupt state file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return usageError("--all cannot be combined with cycle names")
			}
			if !all && len(args) == 0 {
				return usageError("requires at least one cycle name, or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := app.Store.Save(state.States{}); err != nil {
					return err
				}
				app.Printer.Success("all cycle state cleared")
				return nil
			}

			for _, name := range args {
				removed, err := app.Stepper.Forget(name)
				if err != nil {
					return err
				}
				if !removed {
					if _, ok := app.Config.Cycles[name]; !ok {
						return &config.CycleNotFoundError{Name: name, Available: app.Config.CycleNames()}
					}
					app.Printer.Success(fmt.Sprintf("%s has no saved state", name))
					continue
				}
				app.Logger.WithField("cycle", name).Debug("cycle state removed")
				app.Printer.Success(fmt.Sprintf("%s reset", name))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "clear the state of every cycle")

	return cmd
}
