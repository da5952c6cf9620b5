package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"aioniser/internal/config"
	"aioniser/internal/output"
	"aioniser/internal/state"
)

func newStatusCommand(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status [cycle...]",
		Short: "Show the persisted state of cycles",
		Long: `Show the last step run for each cycle and when it ran.

Without arguments, every configured cycle is shown together with any cycle
that only exists in the state file. The json and yaml formats print the
state records as they are stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := app.Stepper.States()
			if err != nil {
				return err
			}

			names, err := statusNames(app.Config, states, args)
			if err != nil {
				return err
			}

			switch format {
			case "text":
				app.Printer.StatusList(buildStatuses(app.Config, states, names), app.Now())
				return nil
			case "json", "yaml":
				selected := make(state.States, len(names))
				for _, name := range names {
					if rec, ok := states[name]; ok {
						selected[name] = rec
					}
				}
				f := state.FormatJSON
				if format == "yaml" {
					f = state.FormatYAML
				}
				data, err := state.Encode(selected, f)
				if err != nil {
					return err
				}
				app.Printer.Raw(string(data))
				return nil
			default:
				return usageError("unknown format %q (want text, json or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")

	return cmd
}

// statusNames returns the cycles to report on, sorted. A requested name must
// be configured or present in the state file.
func statusNames(cfg *config.Config, states state.States, requested []string) ([]string, error) {
	if len(requested) > 0 {
		for _, name := range requested {
			if _, ok := cfg.Cycles[name]; ok {
				continue
			}
			if _, ok := states[name]; ok {
				continue
			}
			return nil, &config.CycleNotFoundError{Name: name, Available: cfg.CycleNames()}
		}
		return requested, nil
	}

	seen := make(map[string]bool, len(cfg.Cycles)+len(states))
	names := make([]string, 0, len(cfg.Cycles)+len(states))
	for _, name := range cfg.CycleNames() {
		seen[name] = true
		names = append(names, name)
	}
	for name := range states {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func buildStatuses(cfg *config.Config, states state.States, names []string) []output.CycleStatus {
	statuses := make([]output.CycleStatus, 0, len(names))
	for _, name := range names {
		s := output.CycleStatus{Name: name}
		if cc, ok := cfg.Cycles[name]; ok {
			s.Steps = len(cc.Steps)
		}
		if rec, ok := states[name]; ok {
			s.Triggered = true
			s.LastStep = rec.LastStep
			s.LastStepped = rec.LastStepped
		}
		statuses = append(statuses, s)
	}
	return statuses
}
