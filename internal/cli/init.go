package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aioniser/internal/config"
)

func newInitCommand(app *App, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Write an example configuration file",
		Long:        "Write an example configuration file to the --config path, $AIONISER_CONFIG_PATH or the default location.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = os.Getenv(config.ConfigPathEnv)
			}
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			if err := config.WriteExample(path); err != nil {
				return err
			}
			app.Printer.Success(fmt.Sprintf("wrote %s", path))
			return nil
		},
	}
}
