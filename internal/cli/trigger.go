package cli

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aioniser/internal/action"
	"aioniser/internal/trigger"
)

func newTriggerCommand(app *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "trigger <cycle>",
		Short: "Run the next step of a cycle",
		Long: `Run the next step of a cycle and remember it.

This is the same as "aioniser <cycle>", and works for cycles whose name
matches a subcommand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(cmd.Context(), app, args[0], dryRun)
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show the next step without running it")

	return cmd
}

func runTrigger(ctx context.Context, app *App, name string, dryRun bool) error {
	tr := trigger.New(app.Config, app.Stepper, action.NewResolver(app.Config.Actions), app.Executor)
	tr.SetDryRun(dryRun)
	tr.SetStepCallback(func(cycleName string, step, stepCount int) {
		app.Printer.StepStart(cycleName, step, stepCount, false)
	})
	tr.SetProgressCallback(func(_, _ int, command string) {
		app.Printer.Command(command)
	})

	res, err := tr.Run(ctx, name)
	if err != nil {
		return err
	}

	if res.DryRun {
		app.Printer.StepStart(res.Cycle, res.Step, res.StepCount, true)
		for _, command := range res.Commands {
			app.Printer.Command(command)
		}
	}

	app.Logger.WithFields(logrus.Fields{
		"cycle":   res.Cycle,
		"step":    res.Step,
		"dry_run": res.DryRun,
	}).Debug("cycle triggered")
	return nil
}
