package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"todo-cli/internal/controller"
	"todo-cli/internal/page"
)

// patcher remembers what a stream has already sent.
type patcher struct {
	version uint64
	focus   string
	reload  uint64
}

func newPatcher(st page.State) patcher {
	return patcher{version: st.Version, focus: st.Focus, reload: st.ReloadSeq}
}

// patchMain sends the signals and the main container if the page changed.
func (s *Server) patchMain(sse *datastar.ServerSentEventGenerator, doc *page.Document, p *patcher) {
	st := doc.Snapshot()
	if st.Version == p.version {
		return
	}
	p.version = st.Version

	vm, err := s.pageVM(st)
	if err == nil {
		var html string
		html, err = s.renderTemplate("main", vm)
		if err == nil {
			_ = sse.MarshalAndPatchSignals(signalsOf(st))
			_ = sse.PatchElements(html, datastar.WithSelector("#"+page.IDMain), datastar.WithMode(datastar.ElementPatchModeOuter))
		}
	}
	if err != nil {
		s.logger.Error("render page", "err", err)
		_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
		return
	}

	if st.Focus != "" && st.Focus != p.focus {
		_ = sse.ExecuteScript(fmt.Sprintf(`document.getElementById(%q)?.focus()`, st.Focus))
	}
	p.focus = st.Focus
	if st.ReloadSeq != p.reload {
		p.reload = st.ReloadSeq
		_ = sse.ExecuteScript(`window.location.reload()`)
	}
}

// action applies the posted signals to the session's page, runs fn, and
// streams every page change until fn returns. fn keeps running if the client
// goes away.
func (s *Server) action(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, ctl *controller.Controller)) {
	ss := s.lookup(r)
	if ss == nil {
		// Unknown or expired session: start over with a fresh page.
		sse := datastar.NewSSE(w, r)
		_ = sse.ExecuteScript(`window.location.reload()`)
		return
	}
	doc, ctl := ss.current()

	sig, ok, err := readSignals(r)
	if err != nil {
		http.Error(w, "invalid signals", http.StatusBadRequest)
		return
	}
	if ok {
		sig.applyTo(doc)
	}

	p := newPatcher(doc.Snapshot())
	ch, cancel := doc.Subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(context.WithoutCancel(r.Context()), ctl)
	}()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-ch:
			s.patchMain(sse, doc, &p)
		case <-done:
			s.patchMain(sse, doc, &p)
			return
		}
	}
}

func flashKey(st page.State) string {
	var b strings.Builder
	for _, bn := range st.Banners {
		b.WriteString(strconv.FormatUint(bn.ID, 10))
		if bn.Fading {
			b.WriteByte('f')
		}
		b.WriteByte(',')
	}
	return b.String()
}

// handleEvents keeps a stream open for changes no action is waiting on:
// banners fading out and disappearing.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ss := s.lookup(r)
	if ss == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	doc, _ := ss.current()

	ch, cancel := doc.Subscribe()
	defer cancel()
	last := flashKey(doc.Snapshot())

	sse := datastar.NewSSE(w, r)
	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			st := doc.Snapshot()
			key := flashKey(st)
			if key == last {
				continue
			}
			last = key
			html, err := s.renderTemplate("flash", pageVM{State: st})
			if err != nil {
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
				continue
			}
			_ = sse.PatchElements(html, datastar.WithSelector("#flash"), datastar.WithMode(datastar.ElementPatchModeOuter))
		}
	}
}
