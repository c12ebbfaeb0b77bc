package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"todo-cli/internal/backend/backendtest"
	"todo-cli/internal/controller"
	"todo-cli/internal/model"
)

func runCLI(t *testing.T, stdin string, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate keeps config files and view state out of the user's home.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("TODO_CONFIG_DIR", t.TempDir())
	t.Setenv("TODO_STATE_PATH", ":memory:")
	t.Setenv("TODO_BACKEND_URL", "")
	t.Setenv("TODO_FORMAT", "")
}

func seeded(t *testing.T) *backendtest.Server {
	t.Helper()
	srv := backendtest.New(
		model.Task{ID: "1", Title: "Write report", DueDate: "2025-07-01"},
		model.Task{ID: "2", Title: "Buy milk", DueDate: "2025-06-01", Memo: "2L"},
	)
	t.Cleanup(srv.Close)
	return srv
}

type listOut struct {
	Data []map[string]any `json:"data"`
	Meta map[string]any   `json:"meta"`
}

func decodeList(t *testing.T, b []byte) listOut {
	t.Helper()
	var out listOut
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, string(b))
	}
	return out
}

func titles(out listOut) []string {
	var got []string
	for _, row := range out.Data {
		got = append(got, fmt.Sprint(row["title"]))
	}
	return got
}

func TestTasksList_SortsByDueDate(t *testing.T) {
	isolate(t)
	srv := seeded(t)

	stdout, stderr, err := runCLI(t, "", []string{"--backend", srv.URL, "tasks", "list"})
	if err != nil {
		t.Fatalf("list: %v\nstderr=%s", err, string(stderr))
	}
	out := decodeList(t, stdout)
	if got := strings.Join(titles(out), ","); got != "Buy milk,Write report" {
		t.Fatalf("asc order: %q", got)
	}
	if out.Meta["sort"] != "asc" {
		t.Fatalf("meta sort: %#v", out.Meta)
	}

	stdout, _, err = runCLI(t, "", []string{"--backend", srv.URL, "tasks", "list", "--sort", "desc"})
	if err != nil {
		t.Fatalf("list desc: %v", err)
	}
	if got := strings.Join(titles(decodeList(t, stdout)), ","); got != "Write report,Buy milk" {
		t.Fatalf("desc order: %q", got)
	}
}

func TestTasksAdd_BlankTitleNeverReachesServer(t *testing.T) {
	isolate(t)
	srv := seeded(t)

	_, stderr, err := runCLI(t, "", []string{"--backend", srv.URL, "tasks", "add", "--title", "  ", "--due", "2025-06-01"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(string(stderr), controller.MsgTitleRequired) {
		t.Fatalf("stderr: %q", string(stderr))
	}
	if n := srv.TotalCalls(); n != 0 {
		t.Fatalf("backend calls: %d", n)
	}

	_, stderr, err = runCLI(t, "", []string{"--backend", srv.URL, "tasks", "add", "--title", "x"})
	if err == nil || !strings.Contains(string(stderr), controller.MsgDueRequired) {
		t.Fatalf("missing due: err=%v stderr=%q", err, string(stderr))
	}
}

func TestTasksAdd_Succeeds(t *testing.T) {
	isolate(t)
	srv := seeded(t)

	stdout, stderr, err := runCLI(t, "", []string{"--backend", srv.URL, "tasks", "add", "--title", "Call mom", "--due", "2025-05-01", "--memo", "evening"})
	if err != nil {
		t.Fatalf("add: %v\nstderr=%s", err, string(stderr))
	}
	if !strings.Contains(string(stdout), `"message"`) {
		t.Fatalf("stdout: %s", string(stdout))
	}
	form := srv.LastForm()
	if form["title"] != "Call mom" || form["memo"] != "evening" || form["due_date"] != "2025-05-01" {
		t.Fatalf("form: %#v", form)
	}
	if len(srv.Tasks()) != 3 {
		t.Fatalf("tasks: %d", len(srv.Tasks()))
	}
}

func TestTasksUpdate_KeepsUnsetFields(t *testing.T) {
	isolate(t)
	srv := seeded(t)

	_, stderr, err := runCLI(t, "", []string{"--backend", srv.URL, "tasks", "update", "2", "--title", "Buy oat milk"})
	if err != nil {
		t.Fatalf("update: %v\nstderr=%s", err, string(stderr))
	}
	form := srv.LastForm()
	if form["task_id"] != "2" || form["title"] != "Buy oat milk" || form["memo"] != "2L" || form["due_date"] != "2025-06-01" {
		t.Fatalf("form: %#v", form)
	}

	_, stderr, err = runCLI(t, "", []string{"--backend", srv.URL, "tasks", "update", "99", "--title", "x"})
	if err == nil || !strings.Contains(string(stderr), "task not found: 99") {
		t.Fatalf("missing task: err=%v stderr=%q", err, string(stderr))
	}
}

func TestTasksDelete_DeclinedSendsNothing(t *testing.T) {
	isolate(t)
	srv := seeded(t)

	stdout, stderr, err := runCLI(t, "n\n", []string{"--backend", srv.URL, "tasks", "delete", "1"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(string(stderr), controller.MsgConfirmDelete) {
		t.Fatalf("prompt missing: %q", string(stderr))
	}
	if !strings.Contains(string(stdout), `"deleted":false`) {
		t.Fatalf("stdout: %s", string(stdout))
	}
	if n := srv.Calls("delete_task"); n != 0 {
		t.Fatalf("delete calls: %d", n)
	}

	// End of input is a no as well.
	if _, _, err := runCLI(t, "", []string{"--backend", srv.URL, "tasks", "delete", "1"}); err != nil {
		t.Fatalf("delete eof: %v", err)
	}
	if n := srv.Calls("delete_task"); n != 0 {
		t.Fatalf("delete calls after eof: %d", n)
	}
}

func TestTasksDelete_Confirmed(t *testing.T) {
	isolate(t)
	srv := seeded(t)

	if _, stderr, err := runCLI(t, "y\n", []string{"--backend", srv.URL, "tasks", "delete", "1"}); err != nil {
		t.Fatalf("delete: %v\nstderr=%s", err, string(stderr))
	}
	if _, stderr, err := runCLI(t, "", []string{"--backend", srv.URL, "tasks", "delete", "2", "--yes"}); err != nil {
		t.Fatalf("delete --yes: %v\nstderr=%s", err, string(stderr))
	}
	if n := srv.Calls("delete_task"); n != 2 {
		t.Fatalf("delete calls: %d", n)
	}
	if len(srv.Tasks()) != 0 {
		t.Fatalf("tasks left: %#v", srv.Tasks())
	}
}

func TestTasksSort_Errors(t *testing.T) {
	isolate(t)
	srv := seeded(t)

	_, _, err := runCLI(t, "", []string{"--backend", srv.URL, "tasks", "sort", "sideways"})
	if err == nil {
		t.Fatalf("expected error for unknown sort")
	}
	if n := srv.TotalCalls(); n != 0 {
		t.Fatalf("backend calls: %d", n)
	}

	srv.BreakNext(500)
	_, stderr, err := runCLI(t, "", []string{"--backend", srv.URL, "tasks", "sort", "desc"})
	if err == nil || !strings.Contains(string(stderr), controller.MsgSortFailed) {
		t.Fatalf("broken backend: err=%v stderr=%q", err, string(stderr))
	}

	srv.FailNext("シートが見つかりません")
	_, stderr, err = runCLI(t, "", []string{"--backend", srv.URL, "tasks", "sort", "asc"})
	if err == nil || strings.TrimSpace(string(stderr)) != "シートが見つかりません" {
		t.Fatalf("rejected: err=%v stderr=%q", err, string(stderr))
	}
}

func TestTasksList_TextFormat(t *testing.T) {
	isolate(t)
	srv := seeded(t)

	stdout, _, err := runCLI(t, "", []string{"--backend", srv.URL, "--format", "text", "tasks", "list"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	s := string(stdout)
	if !strings.Contains(s, "due_date") || !strings.Contains(s, "Buy milk") {
		t.Fatalf("table: %s", s)
	}
}

func TestConfigShow_EnvOverridesDefault(t *testing.T) {
	isolate(t)
	t.Setenv("TODO_BACKEND_URL", "http://tasks.example:8080/")

	stdout, stderr, err := runCLI(t, "", []string{"config", "show"})
	if err != nil {
		t.Fatalf("config show: %v\nstderr=%s", err, string(stderr))
	}
	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(stdout, &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, string(stdout))
	}
	backend, _ := out.Data["backend"].(map[string]any)
	if got := fmt.Sprint(backend["url"]); !strings.HasPrefix(got, "http://tasks.example:8080") {
		t.Fatalf("backend.url: %q", got)
	}

	// The flag wins over the environment.
	stdout, _, err = runCLI(t, "", []string{"--backend", "http://flag.example", "config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(string(stdout), "http://flag.example") {
		t.Fatalf("flag override missing: %s", string(stdout))
	}
}

func TestErrors_PrintedOnce(t *testing.T) {
	isolate(t)
	srv := seeded(t)

	_, stderr, err := runCLI(t, "", []string{"--backend", srv.URL, "tasks", "update", "99", "--title", "x"})
	if err == nil || !IsReported(err) {
		t.Fatalf("expected a reported error, got %v", err)
	}
	if n := strings.Count(string(stderr), "task not found: 99"); n != 1 {
		t.Fatalf("error printed %d times: %q", n, string(stderr))
	}

	// Argument errors come from cobra and are left for the caller to print.
	_, stderr, err = runCLI(t, "", []string{"--backend", srv.URL, "tasks", "show"})
	if err == nil || IsReported(err) {
		t.Fatalf("expected an unreported argument error, got %v", err)
	}
	if len(stderr) != 0 {
		t.Fatalf("stderr: %q", string(stderr))
	}
}
