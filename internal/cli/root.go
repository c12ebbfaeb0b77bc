// Package cli wires the todo command line: scriptable task commands, the web
// front end, the browser terminal and, with no subcommand, the terminal UI.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"todo-cli/internal/backend"
	"todo-cli/internal/config"
	"todo-cli/internal/controller"
	"todo-cli/internal/format"
	"todo-cli/internal/logging"
	"todo-cli/internal/model"
	"todo-cli/internal/store"
	"todo-cli/internal/tui"
)

type App struct {
	ConfigFile string
	PrettyJSON bool
	Format     string

	v        *viper.Viper
	cfg      *config.Config
	logger   *log.Logger
	closeLog func() error
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "todo",
		Short:        "Task list client: terminal UI, web UI and scriptable commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  todo

  # Scriptable commands
  todo tasks list
  todo tasks add --title "Buy milk" --due 2025-06-01

  # Sort shortcut (same as: todo tasks sort desc)
  todo desc

  # Serve the web UI
  todo web --addr 127.0.0.1:3335
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.load(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.closeLog != nil {
			return app.closeLog()
		}
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigFile, "config", "", "Config file (default "+config.File()+")")
	pf.String("backend", "", "Task server base URL (overrides backend.url)")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	pf.StringVar(&app.Format, "format", envOr("TODO_FORMAT", "json"), "Output format ("+strings.Join(format.Formats, "|")+")")

	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newWebTUICmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// load resolves configuration for the running command: flags, then TODO_*
// environment variables, then the config file, then defaults.
func (app *App) load(cmd *cobra.Command) error {
	v := config.New()
	root := cmd.Root().PersistentFlags()
	bindFlag(v, "backend.url", root.Lookup("backend"))
	bindFlag(v, "log.level", root.Lookup("log-level"))
	switch cmd.Name() {
	case "web":
		bindFlag(v, "web.addr", cmd.Flags().Lookup("addr"))
		bindFlag(v, "web.reload", cmd.Flags().Lookup("reload"))
	case "webtui":
		bindFlag(v, "webtui.addr", cmd.Flags().Lookup("addr"))
	}
	if err := config.ReadFile(v, app.ConfigFile); err != nil {
		return writeErr(cmd, err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.v = v
	app.cfg = cfg

	// The TUI owns the terminal, so it only logs to a file.
	var fallback io.Writer = cmd.ErrOrStderr()
	if isTUI(cmd) {
		fallback = nil
	}
	logger, closeLog, err := logging.OpenFile(cfg.Log.File, cfg.Log.Level, fallback)
	if err != nil {
		return writeErr(cmd, fmt.Errorf("open log file: %w", err))
	}
	app.logger = logger
	app.closeLog = closeLog
	return nil
}

func isTUI(cmd *cobra.Command) bool {
	return cmd == cmd.Root()
}

// bindFlag lets a flag override a config key, but only when it was set.
func bindFlag(v *viper.Viper, key string, f *pflag.Flag) {
	if f == nil {
		return
	}
	_ = v.BindPFlag(key, f)
}

func (app *App) client() (*backend.Client, error) {
	return backend.NewClient(app.cfg.Backend.URL,
		backend.WithTimeout(app.cfg.Backend.Timeout),
		backend.WithLogger(app.logger),
	)
}

func (app *App) timing() controller.Timing {
	return controller.Timing{Visible: app.cfg.UI.MessageVisible, Fade: app.cfg.UI.MessageFade}
}

func (app *App) defaultSort() model.SortType {
	st, err := model.ParseSortType(app.cfg.UI.DefaultSort)
	if err != nil {
		return model.SortAsc
	}
	return st
}

func (app *App) openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, app.cfg.State.Path)
}

func runTUI(cmd *cobra.Command, app *App) error {
	client, err := app.client()
	if err != nil {
		return writeErr(cmd, err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := app.openStore(ctx)
	if err != nil {
		// The TUI works without persisted view state.
		app.logger.Warn("open state store", "path", app.cfg.State.Path, "err", err)
		st = nil
	} else {
		defer st.Close()
	}
	return tui.Run(ctx, tui.Options{
		Backend:     client,
		Store:       st,
		Logger:      app.logger,
		Timing:      app.timing(),
		DefaultSort: app.defaultSort(),
		BackendURL:  client.BaseURL(),
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return reportedError{err}
}
