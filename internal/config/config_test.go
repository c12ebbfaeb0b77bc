package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	t.Setenv("TODO_CONFIG_DIR", "/tmp/todo-test")
	cfg := Default()

	if cfg.Backend.URL != "http://127.0.0.1:5000" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.UI.MessageVisible != 5*time.Second || cfg.UI.MessageFade != 300*time.Millisecond {
		t.Errorf("message timing = %v/%v", cfg.UI.MessageVisible, cfg.UI.MessageFade)
	}
	if cfg.State.Path != filepath.Join("/tmp/todo-test", "state.sqlite") {
		t.Errorf("State.Path = %q", cfg.State.Path)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("defaults do not validate: %v", ValidationErrors(errs))
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	yaml := "backend:\n  url: http://file:1/\nui:\n  default_sort: desc\n  message_visible: 2s\nweb:\n  reload: page\n"
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TODO_BACKEND_URL", "http://env:2")

	v := New()
	if err := ReadFile(v, file); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "http://env:2" {
		t.Errorf("env should win over file, got %q", cfg.Backend.URL)
	}
	if cfg.UI.DefaultSort != "desc" || cfg.Web.Reload != "page" {
		t.Errorf("file values not applied: %+v %+v", cfg.UI, cfg.Web)
	}
	if cfg.UI.MessageVisible != 2*time.Second {
		t.Errorf("MessageVisible = %v", cfg.UI.MessageVisible)
	}
	if cfg.UI.MessageFade != 300*time.Millisecond {
		t.Errorf("default not kept: %v", cfg.UI.MessageFade)
	}

	v.Set("backend.url", "http://flag:3/")
	cfg, err = Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "http://flag:3" {
		t.Errorf("explicit set should win and be trimmed, got %q", cfg.Backend.URL)
	}
}

func TestReadFile_MissingDefaultIsFine(t *testing.T) {
	t.Setenv("TODO_CONFIG_DIR", t.TempDir())
	t.Chdir(t.TempDir())
	if err := ReadFile(New(), ""); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
}

func TestReadFile_MissingExplicitIsError(t *testing.T) {
	if err := ReadFile(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad_ReportsAllErrors(t *testing.T) {
	v := New()
	v.Set("backend.url", "ftp://x")
	v.Set("web.reload", "sometimes")
	v.Set("ui.default_sort", "random")
	v.Set("log.level", "loud")
	v.Set("web.addr", "nope")

	_, err := Load(v)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, want := range []string{"backend.url", "web.reload", "ui.default_sort", "log.level", "web.addr"} {
		if !fields[want] {
			t.Errorf("missing error for %s in %v", want, err)
		}
	}
	if !strings.Contains(err.Error(), "5 validation errors") {
		t.Errorf("unexpected message: %s", err)
	}
}
