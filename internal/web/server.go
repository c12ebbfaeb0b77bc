// Package web serves the task page to a browser. Pages are rendered on the
// server; user actions post Datastar signals back and receive element and
// signal patches over server-sent events while the controller runs.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"

	"todo-cli/internal/controller"
	"todo-cli/internal/help"
	"todo-cli/internal/model"
	"todo-cli/internal/page"
	"todo-cli/internal/store"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

type ServerConfig struct {
	Addr    string
	Backend controller.Backend
	// Store keeps each session's task index and sort order. Nil keeps them
	// in memory.
	Store *store.Store
	// SecretDir holds the cookie signing key. Empty means a fresh key per run.
	SecretDir   string
	Logger      *log.Logger
	Clock       controller.Clock
	Timing      controller.Timing
	ReloadMode  controller.ReloadMode
	DefaultSort model.SortType
	DatastarURL string
	// SessionIdle is how long an unused session and its stored state are
	// kept. Zero means a day.
	SessionIdle time.Duration
}

type Server struct {
	cfg    ServerConfig
	tmpl   *template.Template
	secret []byte
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one browser's page. A full page load replaces its document and
// controller.
type session struct {
	id string
	// mem holds the index and sort order when there is no store.
	mem *controller.MemoryIndex

	mu   sync.Mutex
	doc  *page.Document
	ctl  *controller.Controller
	seen time.Time
}

func (ss *session) current() (*page.Document, *controller.Controller) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.seen = time.Now()
	return ss.doc, ss.ctl
}

const (
	sessionIdle = 24 * time.Hour

	scopePrefix = "web:"
	prefSeenAt  = "web_seen_at"
)

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.DatastarURL = strings.TrimSpace(cfg.DatastarURL)
	if cfg.Backend == nil {
		return nil, errors.New("web: backend is nil")
	}
	if cfg.DatastarURL == "" {
		return nil, errors.New("web: datastar url is empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = sessionIdle
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		// Task text is always inserted as escaped plain text.
		"text": func(s string) template.HTML { return template.HTML(page.EscapeHTML(s)) },
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	secret, err := loadOrInitSecretKey(cfg.SecretDir)
	if err != nil {
		return nil, fmt.Errorf("web: secret key: %w", err)
	}
	s := &Server{
		cfg:      cfg,
		tmpl:     tmpl,
		secret:   secret,
		logger:   cfg.Logger.WithPrefix("web"),
		sessions: map[string]*session{},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.pruneScopes(ctx, time.Now())
	return s, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /help", s.handleHelp)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /ui/events", s.handleEvents)
	mux.HandleFunc("POST /ui/add", s.handleAdd)
	mux.HandleFunc("POST /ui/edit/{id}", s.handleEdit)
	mux.HandleFunc("POST /ui/update", s.handleUpdate)
	mux.HandleFunc("POST /ui/delete/{id}", s.handleDelete)
	mux.HandleFunc("POST /ui/sort/{sortType}", s.handleSort)
	mux.HandleFunc("POST /ui/modal/close", s.handleModalClose)
	mux.HandleFunc("POST /ui/modal/backdrop", s.handleModalBackdrop)
	mux.HandleFunc("POST /ui/key", s.handleKey)
	return withMiddleware(mux, s.logger)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
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

func (s *Server) newPage(ss *session) (*page.Document, *controller.Controller) {
	doc := page.NewDocument()
	opts := controller.Options{
		Page:        doc,
		Backend:     s.cfg.Backend,
		Index:       ss.mem,
		Prefs:       ss.mem,
		Clock:       s.cfg.Clock,
		Logger:      s.logger.With("session", shortID(ss.id)),
		Timing:      s.cfg.Timing,
		ReloadMode:  s.cfg.ReloadMode,
		DefaultSort: s.cfg.DefaultSort,
	}
	if s.cfg.Store != nil {
		scoped := s.cfg.Store.Scope(scopePrefix + ss.id)
		opts.Index = scoped
		opts.Prefs = scoped
	}
	return doc, controller.New(opts)
}

// resetSession gives the session id a fresh page, creating the session if
// needed. Other sessions idle for longer than SessionIdle are dropped along
// with their stored state.
func (s *Server) resetSession(ctx context.Context, id string) *session {
	now := time.Now()

	s.mu.Lock()
	var evicted []string
	for k, ss := range s.sessions {
		if k == id {
			continue
		}
		ss.mu.Lock()
		idle := now.Sub(ss.seen) > s.cfg.SessionIdle
		ss.mu.Unlock()
		if idle {
			delete(s.sessions, k)
			evicted = append(evicted, k)
		}
	}
	ss, ok := s.sessions[id]
	if !ok {
		ss = &session{id: id, mem: controller.NewMemoryIndex()}
		s.sessions[id] = ss
	}
	doc, ctl := s.newPage(ss)
	ss.mu.Lock()
	ss.doc, ss.ctl, ss.seen = doc, ctl, now
	ss.mu.Unlock()
	s.mu.Unlock()

	if s.cfg.Store == nil {
		return ss
	}
	for _, k := range evicted {
		if err := s.cfg.Store.DropScope(ctx, scopePrefix+k); err != nil {
			s.logger.Warn("drop session state", "session", shortID(k), "err", err)
		}
	}
	seen := strconv.FormatInt(now.UnixMilli(), 10)
	if err := s.cfg.Store.Scope(scopePrefix+id).SetPref(ctx, prefSeenAt, seen); err != nil {
		s.logger.Warn("mark session seen", "session", shortID(id), "err", err)
	}
	return ss
}

// pruneScopes drops stored session state left by an earlier run that has not
// been used within SessionIdle.
func (s *Server) pruneScopes(ctx context.Context, now time.Time) {
	if s.cfg.Store == nil {
		return
	}
	scopes, err := s.cfg.Store.Scopes(ctx)
	if err != nil {
		s.logger.Warn("list stored sessions", "err", err)
		return
	}
	dropped := 0
	for _, name := range scopes {
		if !strings.HasPrefix(name, scopePrefix) {
			continue
		}
		v, err := s.cfg.Store.Scope(name).Pref(ctx, prefSeenAt)
		if err != nil {
			s.logger.Warn("read session state", "scope", name, "err", err)
			continue
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && now.Sub(time.UnixMilli(ms)) <= s.cfg.SessionIdle {
			continue
		}
		if err := s.cfg.Store.DropScope(ctx, name); err != nil {
			s.logger.Warn("drop session state", "scope", name, "err", err)
			continue
		}
		dropped++
	}
	if dropped > 0 {
		s.logger.Info("dropped idle sessions", "count", dropped)
	}
}

func (s *Server) lookup(r *http.Request) *session {
	id := s.sessionID(r)
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type pageVM struct {
	State         page.State
	DatastarURL   string
	SignalsJSON   string
	ConfirmDelete string
}

func (s *Server) pageVM(st page.State) (pageVM, error) {
	sig, err := sonic.MarshalString(signalsOf(st))
	if err != nil {
		return pageVM{}, err
	}
	return pageVM{
		State:         st,
		DatastarURL:   s.cfg.DatastarURL,
		SignalsJSON:   sig,
		ConfirmDelete: controller.MsgConfirmDelete,
	}, nil
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	s.writeHTMLTemplate(w, "help.html", map[string]any{"Body": renderMarkdownHTML(help.Markdown())})
}

// handleHome renders a fresh page: the task list is fetched in the session's
// preferred order, and a failure shows up as an initial flash banner.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(r)
	if id == "" {
		var err error
		if id, err = s.issueSession(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	ss := s.resetSession(r.Context(), id)
	doc, ctl := ss.current()

	if err := ctl.Load(r.Context()); err != nil {
		s.logger.Error("fetch tasks", "session", shortID(id), "err", err)
		doc.PrependBanner(controller.MsgFetchFailed, page.KindError)
	}
	ctl.Init()

	vm, err := s.pageVM(doc.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeHTMLTemplate(w, "page.html", vm)
}
