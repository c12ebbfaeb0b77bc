package webtui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestNewServer_RequiresAddr(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Fatalf("expected error for missing addr")
	}
}

func TestTerminalPage(t *testing.T) {
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/terminal" {
		t.Fatalf("redirect: %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = http.Get(ts.URL + "/terminal")
	if err != nil {
		t.Fatalf("GET /terminal: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "xterm@"+defaultXtermVersion) {
		t.Fatalf("terminal page missing xterm: %s", body)
	}
}

func TestParseControl(t *testing.T) {
	m, ok := parseControl([]byte(`{"type":"resize","cols":80,"rows":24}`))
	if !ok || m.Cols != 80 || m.Rows != 24 {
		t.Fatalf("resize not parsed: %+v %v", m, ok)
	}
	if _, ok := parseControl([]byte(`{`)); ok {
		t.Fatalf("a typed brace is input, not control")
	}
	if _, ok := parseControl([]byte(`{"type":"ping"}`)); ok {
		t.Fatalf("unknown control accepted")
	}
}

func TestSameOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://localhost:3334/ws", nil)
	r.Host = "localhost:3334"
	if !sameOrigin(r) {
		t.Fatalf("no origin should pass")
	}
	r.Header.Set("Origin", "http://localhost:3334")
	if !sameOrigin(r) {
		t.Fatalf("same origin rejected")
	}
	r.Header.Set("Origin", "http://evil.example")
	if sameOrigin(r) {
		t.Fatalf("cross origin accepted")
	}
}

func TestWS_StreamsCommandOutput(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Addr:    "127.0.0.1:0",
		Command: []string{"/bin/sh", "-c", "printf 'todo-ready\\n'; sleep 5"},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Skipf("websocket dial: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"resize","cols":100,"rows":30}`))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got strings.Builder
	for !strings.Contains(got.String(), "todo-ready") {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (got %q)", err, got.String())
		}
		if strings.HasPrefix(string(data), "failed to start session") {
			t.Skipf("no pty available: %s", data)
		}
		got.Write(data)
	}
}
