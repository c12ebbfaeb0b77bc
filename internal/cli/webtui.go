package cli

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todo-cli/internal/webtui"
)

func newWebTUICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the terminal UI in your browser (PTY + WebSocket)",
		Long: strings.TrimSpace(`
Run the terminal UI over the web through a server-side PTY and a browser
terminal emulator.

Each browser tab starts its own TUI process on the server. There is no
authentication; bind to localhost.
`),
		Example: strings.TrimSpace(`
todo webtui --addr 127.0.0.1:3334
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			exe, err := os.Executable()
			if err != nil {
				return writeErr(cmd, err)
			}
			// Child TUIs talk to the same backend with the same settings.
			argv := []string{exe, "--backend", cfg.Backend.URL, "--log-level", cfg.Log.Level}
			if app.ConfigFile != "" {
				argv = append(argv, "--config", app.ConfigFile)
			}

			srv, err := webtui.NewServer(webtui.ServerConfig{
				Addr:    cfg.WebTUI.Addr,
				Command: argv,
				Logger:  app.logger,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			listenAddr := srv.Addr()
			if listenAddr == "" {
				return writeErr(cmd, errors.New("webtui: missing --addr"))
			}
			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()

			_ = writeOut(cmd, app, envelope{
				Data: map[string]any{
					"addr":      actualAddr,
					"backend":   cfg.Backend.URL,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				Hints: []string{"open http://" + actualAddr},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "todo webtui running at http://%s\n", actualAddr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, ln, srv.Handler())
		},
	}

	cmd.Flags().String("addr", "", "Bind address, host:port or :port (default webtui.addr)")
	return cmd
}
