package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todo-cli/internal/controller"
	"todo-cli/internal/web"
)

func newWebCmd(app *App) *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the task page to a browser",
		Long: strings.TrimSpace(`
Serve the task page from a local HTTP server.

Pages are rendered on the server. Actions are sent with Datastar and the page
is patched over server-sent events while each request to the task server runs.
`),
		Example: strings.TrimSpace(`
# Serve on localhost
todo web --addr 127.0.0.1:3335

# Reload the whole page after each change instead of refetching the list
todo web --reload page
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			reload, ok := controller.ParseReloadMode(cfg.Web.Reload)
			if !ok {
				return writeErr(cmd, fmt.Errorf("web: invalid reload mode %q", cfg.Web.Reload))
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := app.openStore(ctx)
			if err != nil {
				// Sessions fall back to in-memory state.
				app.logger.Warn("open state store", "path", cfg.State.Path, "err", err)
				st = nil
			} else {
				defer st.Close()
			}

			srv, err := web.NewServer(web.ServerConfig{
				Addr:        cfg.Web.Addr,
				Backend:     client,
				Store:       st,
				SecretDir:   secretDir(cfg.State.Path),
				Logger:      app.logger,
				Timing:      app.timing(),
				ReloadMode:  reload,
				DefaultSort: app.defaultSort(),
				DatastarURL: cfg.Web.DatastarURL,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := strings.TrimSpace(cfg.Web.Addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("web: missing --addr"))
			}
			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			opened := false
			openErr := ""
			if open {
				if err := openPath(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}

			hints := []string{}
			if !opened {
				hints = append(hints, "open "+url)
			}
			_ = writeOut(cmd, app, envelope{
				Data: map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"backend":   client.BaseURL(),
					"reload":    string(reload),
					"opened":    opened,
					"openError": openErr,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				Hints: hints,
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "todo web running at %s (backend=%s)\n", url, client.BaseURL())
			if openErr != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to open browser: %s\n", openErr)
			}
			return srv.Serve(ctx, ln)
		},
	}

	cmd.Flags().String("addr", "", "Bind address, host:port or :port (default web.addr)")
	cmd.Flags().String("reload", "", "After a change: refetch the list or reload the page (refetch|page)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the UI in your default browser")
	return cmd
}

// serve runs handler on ln until ctx is cancelled.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	hs := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}

// secretDir keeps the cookie key next to the state database. An in-memory
// database gets a per-run key.
func secretDir(statePath string) string {
	if statePath == "" || statePath == ":memory:" {
		return ""
	}
	return filepath.Dir(statePath)
}

func openPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("empty path")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}
