package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"todo-cli/internal/backend"
	"todo-cli/internal/backend/backendtest"
	"todo-cli/internal/controller"
	"todo-cli/internal/model"
	"todo-cli/internal/store"
)

type harness struct {
	backend *backendtest.Server
	web     *httptest.Server
	client  *http.Client
}

func newHarness(t *testing.T, cfg ServerConfig, seed ...model.Task) *harness {
	t.Helper()
	be := backendtest.New(seed...)
	t.Cleanup(be.Close)

	client, err := backend.NewClient(be.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	cfg.Backend = client
	if cfg.DatastarURL == "" {
		cfg.DatastarURL = "/datastar.js"
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	return &harness{backend: be, web: ts, client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (h *harness) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := h.client.Get(h.web.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func (h *harness) post(t *testing.T, path, signals string) (int, string) {
	t.Helper()
	resp, err := h.client.Post(h.web.URL+path, "application/json", strings.NewReader(signals))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

// lastElementPatch returns the final datastar-patch-elements event of an SSE
// response body.
func lastElementPatch(t *testing.T, body string) string {
	t.Helper()
	i := strings.LastIndex(body, "event: datastar-patch-elements")
	if i < 0 {
		t.Fatalf("no element patch in %q", body)
	}
	ev := body[i:]
	if j := strings.Index(ev, "\n\n"); j >= 0 {
		ev = ev[:j]
	}
	return ev
}

func rowsBefore(s, first, second string) bool {
	i, j := strings.Index(s, first), strings.Index(s, second)
	return i >= 0 && j >= 0 && i < j
}

var seed = []model.Task{
	{ID: "1", Title: "<script>alert(1)</script>", Content: "a & b", DueDate: "2025-07-01"},
	{ID: "2", Title: "Buy milk", DueDate: "2025-06-01", Memo: `"quoted"`},
}

func TestHome_RendersEscapedRows(t *testing.T) {
	h := newHarness(t, ServerConfig{}, seed...)
	code, body := h.get(t, "/")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("task text rendered as markup")
	}
	for _, want := range []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"a &amp; b",
		`id="task-tbody"`,
		`class="task-row" data-task-id="2"`,
		`id="edit-modal"`,
		`id="loading"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	// ascending by due date by default
	if strings.Index(body, "Buy milk") > strings.Index(body, "alert(1)") {
		t.Fatalf("rows not in ascending order")
	}
}

func TestHome_FetchFailureShowsFlash(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	h.backend.BreakNext(http.StatusInternalServerError)
	code, body := h.get(t, "/")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if !strings.Contains(body, controller.MsgFetchFailed) || !strings.Contains(body, `role="alert"`) {
		t.Fatalf("missing flash banner")
	}
}

func TestSort_StreamsRows(t *testing.T) {
	h := newHarness(t, ServerConfig{}, seed...)
	h.get(t, "/")

	code, body := h.post(t, "/ui/sort/desc", `{}`)
	if code != http.StatusOK {
		t.Fatalf("status %d: %s", code, body)
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("task text rendered as markup")
	}
	// earlier patches show the loading overlay over the old rows
	if !rowsBefore(lastElementPatch(t, body), "alert(1)", "Buy milk") {
		t.Fatalf("rows not in descending order")
	}

	// the preference survives a page load
	_, page := h.get(t, "/")
	if !rowsBefore(page, "alert(1)", "Buy milk") {
		t.Fatalf("sort preference not remembered")
	}
}

func TestSort_RejectsUnknownOrder(t *testing.T) {
	h := newHarness(t, ServerConfig{}, seed...)
	h.get(t, "/")
	if code, _ := h.post(t, "/ui/sort/sideways", `{}`); code != http.StatusBadRequest {
		t.Fatalf("status %d", code)
	}
}

func TestAdd_UsesPostedSignals(t *testing.T) {
	h := newHarness(t, ServerConfig{}, seed...)
	h.get(t, "/")

	_, body := h.post(t, "/ui/add", `{"addTitle":"New task","addDueDate":"2025-05-01","addMemo":"m"}`)
	if h.backend.Calls("add_task") != 1 {
		t.Fatalf("add not sent")
	}
	if form := h.backend.LastForm(); form["title"] != "New task" || form["memo"] != "m" {
		t.Fatalf("unexpected form %v", form)
	}
	if !strings.Contains(body, "New task") || !strings.Contains(body, backendtest.MsgAdded) {
		t.Fatalf("refetched rows or success banner missing: %q", body)
	}
	if !strings.Contains(body, "datastar-patch-signals") {
		t.Fatalf("form reset not sent as signals")
	}
}

func TestAdd_InvalidShowsValidationMessage(t *testing.T) {
	h := newHarness(t, ServerConfig{}, seed...)
	h.get(t, "/")
	_, body := h.post(t, "/ui/add", `{"addTitle":"   ","addDueDate":"2025-05-01"}`)
	if h.backend.Calls("add_task") != 0 {
		t.Fatalf("invalid form was sent")
	}
	if !strings.Contains(body, controller.MsgTitleRequired) {
		t.Fatalf("validation banner missing")
	}
}

func TestEditThenEscape(t *testing.T) {
	h := newHarness(t, ServerConfig{}, seed...)
	h.get(t, "/")

	_, body := h.post(t, "/ui/edit/2", `{}`)
	if !strings.Contains(body, `"modalOpen":true`) || !strings.Contains(body, `"editDueDate":"2025-06-01"`) {
		t.Fatalf("modal not opened with values: %q", body)
	}
	if !strings.Contains(body, `getElementById("edit-title")`) {
		t.Fatalf("focus script missing")
	}

	_, body = h.post(t, "/ui/key?key=Escape", `{"modalOpen":true,"editTaskId":"2","editTitle":"Buy milk","editDueDate":"2025-06-01"}`)
	if !strings.Contains(body, `"modalOpen":false`) || !strings.Contains(body, `"editTitle":""`) {
		t.Fatalf("modal not closed and cleared: %q", body)
	}
}

func TestDelete_WithoutConfirmationSendsNothing(t *testing.T) {
	h := newHarness(t, ServerConfig{}, seed...)
	h.get(t, "/")
	h.post(t, "/ui/delete/1", `{}`)
	if h.backend.Calls("delete_task") != 0 {
		t.Fatalf("delete sent without confirmation")
	}
	h.post(t, "/ui/delete/1?confirmed=1", `{}`)
	if h.backend.Calls("delete_task") != 1 {
		t.Fatalf("confirmed delete not sent")
	}
	if n := len(h.backend.Tasks()); n != 1 {
		t.Fatalf("tasks left %d", n)
	}
}

func TestPageReloadMode(t *testing.T) {
	h := newHarness(t, ServerConfig{ReloadMode: controller.ReloadPage}, seed...)
	h.get(t, "/")
	_, body := h.post(t, "/ui/delete/2?confirmed=1", `{}`)
	if !strings.Contains(body, "window.location.reload()") {
		t.Fatalf("reload script missing: %q", body)
	}
}

func TestAction_WithoutSessionReloads(t *testing.T) {
	h := newHarness(t, ServerConfig{}, seed...)
	_, body := h.post(t, "/ui/sort/asc", `{}`)
	if !strings.Contains(body, "window.location.reload()") {
		t.Fatalf("expected reload script, got %q", body)
	}
	if h.backend.TotalCalls() != 0 {
		t.Fatalf("backend called without a session")
	}
}

func TestHelpAndHealth(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	code, body := h.get(t, "/help")
	if code != http.StatusOK || !strings.Contains(body, "<table>") || !strings.Contains(body, "<h1") {
		t.Fatalf("help not rendered: %d %q", code, body)
	}
	if code, body := h.get(t, "/health"); code != http.StatusOK || body != "ok\n" {
		t.Fatalf("health: %d %q", code, body)
	}
}

func TestSessionToken(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()
	tok, err := signToken(secret, signedPayload{Sub: "6f1c1d5e-2f0b-4c8e-9a51-3b5f3a7d2c10", Exp: now.Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifyToken(secret, tok, now); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := verifyToken([]byte("other"), tok, now); err == nil {
		t.Fatalf("wrong secret accepted")
	}
	if _, err := verifyToken(secret, tok, now.Add(2*time.Hour)); err == nil {
		t.Fatalf("expired token accepted")
	}
	bad, _ := signToken(secret, signedPayload{Sub: "not-a-uuid", Exp: now.Add(time.Hour).Unix()})
	if _, err := verifyToken(secret, bad, now); err == nil {
		t.Fatalf("non-uuid subject accepted")
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.MemoryPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func webScopes(t *testing.T, st *store.Store) []string {
	t.Helper()
	all, err := st.Scopes(context.Background())
	if err != nil {
		t.Fatalf("Scopes: %v", err)
	}
	var out []string
	for _, s := range all {
		if strings.HasPrefix(s, scopePrefix) {
			out = append(out, s)
		}
	}
	return out
}

func TestIdleSessionsDropStoredState(t *testing.T) {
	st := openStore(t)
	h := newHarness(t, ServerConfig{Store: st, SessionIdle: time.Nanosecond}, seed...)

	for i := 0; i < 5; i++ {
		// a new cookie jar is a new browser
		jar, _ := cookiejar.New(nil)
		h.client = &http.Client{Jar: jar, Timeout: 10 * time.Second}
		if code, _ := h.get(t, "/"); code != http.StatusOK {
			t.Fatalf("status %d", code)
		}
	}
	if got := webScopes(t, st); len(got) != 1 {
		t.Fatalf("stored sessions after 5 browsers: %q", got)
	}

	// the live session keeps its state across its own page loads
	h.get(t, "/")
	if got := webScopes(t, st); len(got) != 1 {
		t.Fatalf("stored sessions after reload: %q", got)
	}
}

func TestNewServer_PrunesStaleScopes(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	now := time.Now()

	stale := st.Scope(scopePrefix + "stale")
	if err := stale.SetSortType(ctx, model.SortDesc); err != nil {
		t.Fatal(err)
	}
	if err := stale.SetPref(ctx, prefSeenAt, strconv.FormatInt(now.Add(-48*time.Hour).UnixMilli(), 10)); err != nil {
		t.Fatal(err)
	}
	if err := st.Scope(scopePrefix+"unmarked").SetSortType(ctx, model.SortDesc); err != nil {
		t.Fatal(err)
	}
	fresh := st.Scope(scopePrefix + "fresh")
	if err := fresh.SetPref(ctx, prefSeenAt, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		t.Fatal(err)
	}
	if err := st.Scope("tui").SetSortType(ctx, model.SortAsc); err != nil {
		t.Fatal(err)
	}

	newHarness(t, ServerConfig{Store: st})

	all, err := st.Scopes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(all, ",") != "tui,web:fresh" {
		t.Fatalf("scopes after startup: %q", all)
	}
}
