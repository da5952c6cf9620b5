// Package cli provides the command-line interface for aioniser.
//
// The CLI is built on Cobra. Running "aioniser <cycle>" advances the named
// cycle by one step and runs that step's commands; subcommands inspect and
// manage cycles:
//   - trigger: Run one step of a cycle (same as "aioniser <cycle>")
//   - list: List configured cycles
//   - status: Show persisted cycle state
//   - reset: Forget the state of one or more cycles
//   - init: Write an example configuration file
//
// The [App] struct holds the dependencies the commands share. Fields left
// nil are built from the loaded configuration before a command runs, so
// tests can inject a config, store and executor directly.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aioniser/internal/config"
	"aioniser/internal/executor"
	"aioniser/internal/output"
	"aioniser/internal/state"
	"aioniser/internal/stepper"
)

// skipConfigAnnotation marks commands that run without a configuration file.
const skipConfigAnnotation = "aioniser/skip-config"

// App holds the dependencies shared by all commands.
type App struct {
	Config   *config.Config
	Store    state.Store
	Stepper  *stepper.Stepper
	Executor executor.Executor
	Printer  *output.Printer
	Logger   *logrus.Logger
	Now      func() time.Time
}

// ExecuteResult holds the outcome of running the CLI.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

type rootOptions struct {
	configPath string
	statePath  string
	verbose    bool
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand(app *App) *cobra.Command {
	opts := &rootOptions{}
	var dryRun bool

	rootCmd := &cobra.Command{
		Use:   "aioniser <cycle>",
		Short: "Step through cycles of shell actions, one trigger at a time",
		Long: `aioniser binds a cycle of actions to a single trigger such as a hotkey.

Each invocation runs the next step of the named cycle and remembers where it
left off. Cycles marked "reset" start over when triggered again after the
reset timeout has passed.`,
		Example: `  aioniser lights
  aioniser trigger mic --dry-run
  aioniser status`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.bootstrap(cmd, args, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runTrigger(cmd.Context(), app, args[0], dryRun)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: $AIONISER_CONFIG_PATH or the user config directory)")
	flags.StringVar(&opts.statePath, "state", "", "state file (default: settings.state_path or the temp directory)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show the next step without running it")

	rootCmd.AddCommand(
		newTriggerCommand(app),
		newListCommand(app),
		newStatusCommand(app),
		newResetCommand(app),
		newInitCommand(app, opts),
	)

	return rootCmd
}

// bootstrap fills in the App fields a command needs that were not injected.
func (o *rootOptions) bootstrap(cmd *cobra.Command, args []string, app *App) error {
	if app.Logger == nil {
		app.Logger = logrus.New()
		app.Logger.SetOutput(cmd.ErrOrStderr())
		app.Logger.SetLevel(logrus.WarnLevel)
		if o.verbose {
			app.Logger.SetLevel(logrus.DebugLevel)
		}
	}
	if app.Printer == nil {
		app.Printer = output.NewPrinterWithWriter(cmd.OutOrStdout())
	}
	if app.Now == nil {
		app.Now = time.Now
	}

	if !needsConfig(cmd, args) {
		return nil
	}

	if app.Config == nil {
		loader := config.NewLoader()
		var (
			cfg *config.Config
			err error
		)
		if o.configPath != "" {
			cfg, err = loader.LoadFromFile(o.configPath)
		} else {
			cfg, err = loader.Load()
		}
		if err != nil {
			return err
		}
		app.Config = cfg
		app.Logger.WithFields(logrus.Fields{"path": cfg.Path, "cycles": len(cfg.Cycles)}).Debug("config loaded")
	}

	if app.Store == nil {
		path := o.statePath
		if path == "" {
			path = app.Config.StatePath()
		}
		store := state.NewFileStore(path)
		app.Store = store
		app.Logger.WithField("path", store.Path()).Debug("using state file")
	}

	if app.Stepper == nil {
		app.Stepper = stepper.New(app.Store)
		app.Stepper.SetResetTimeout(app.Config.ResetTimeout())
		app.Stepper.SetClock(app.Now)
	}

	if app.Executor == nil {
		app.Executor = executor.NewShellExecutor(app.Config.Settings.Shell, app.Logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	return nil
}

// needsConfig reports whether cmd reads the configuration. Help, shell
// completion and init run without one.
func needsConfig(cmd *cobra.Command, args []string) bool {
	if cmd.Annotations[skipConfigAnnotation] == "true" {
		return false
	}
	if cmd == cmd.Root() && len(args) == 0 {
		return false
	}
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd, "completion":
			return false
		}
	}
	return true
}

// Run executes the CLI with the given arguments and returns the result
// without calling os.Exit. Failures are reported on the command's stderr.
func Run(ctx context.Context, args []string, app *App) ExecuteResult {
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)
	return execute(ctx, rootCmd)
}

func execute(ctx context.Context, rootCmd *cobra.Command) ExecuteResult {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		output.NewPrinterWithWriter(rootCmd.ErrOrStderr()).Error(Describe(err))
	}
	return ExecuteResult{ExitCode: ExitCodeFor(err), Err: err}
}

// Execute runs the CLI with the process arguments and exits with the
// resulting exit code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result := Run(ctx, os.Args[1:], &App{})
	stop()
	os.Exit(result.ExitCode)
}
