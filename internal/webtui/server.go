// Package webtui serves the terminal UI to a browser: each WebSocket gets a
// server-side PTY running the todo binary, rendered by xterm.js.
package webtui

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
)

//go:embed templates/*.html static/*.css static/*.js
var assetsFS embed.FS

const defaultXtermVersion = "5.3.0"

type ServerConfig struct {
	Addr string
	// Command is the program started for each terminal, with its arguments.
	// It defaults to this executable with no subcommand, which runs the TUI.
	Command []string
	// Env is appended to the server's environment for each terminal.
	Env    []string
	Logger *log.Logger
	// XtermVersion selects the xterm.js release loaded from the CDN.
	XtermVersion string
}

type Server struct {
	cfg    ServerConfig
	tmpl   *template.Template
	logger *log.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("webtui: missing addr")
	}
	if strings.TrimSpace(cfg.XtermVersion) == "" {
		cfg.XtermVersion = defaultXtermVersion
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	tmpl, err := template.ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, tmpl: tmpl, logger: cfg.Logger.WithPrefix("webtui")}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/terminal", http.StatusFound)
	})
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /static/app.css", s.handleStatic("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /static/app.js", s.handleStatic("static/app.js", "text/javascript; charset=utf-8"))

	return mux
}

func (s *Server) handleStatic(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(path)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(b)
	}
}

type terminalVM struct {
	XtermVersion string
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, "terminal.html", terminalVM{XtermVersion: s.cfg.XtermVersion}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, b.String())
}
