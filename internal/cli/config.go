package cli

import (
	"github.com/spf13/cobra"

	"todo-cli/internal/config"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			file := app.v.ConfigFileUsed()
			return writeOut(cmd, app, envelope{
				Data: app.v.AllSettings(),
				Meta: map[string]any{"file": file, "dir": config.Dir()},
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the default config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, envelope{Data: map[string]any{"file": config.File(), "dir": config.Dir()}})
		},
	})

	return cmd
}
