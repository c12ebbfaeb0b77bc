package backend

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSnippet_CutsOnRuneBoundary(t *testing.T) {
	body := []byte(strings.Repeat("エラー", 100))
	s := snippet(body)
	if !utf8.ValidString(s) {
		t.Fatalf("snippet is not valid UTF-8: %q", s)
	}
	if !strings.HasSuffix(s, "...") || utf8.RuneCountInString(strings.TrimSuffix(s, "...")) != 200 {
		t.Fatalf("unexpected snippet %q", s)
	}
	if got := snippet([]byte("  short  ")); got != "short" {
		t.Fatalf("snippet(short) = %q", got)
	}
}
