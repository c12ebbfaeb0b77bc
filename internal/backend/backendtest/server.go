// Package backendtest runs an in-memory task server that speaks the backend
// wire contract, for tests.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"todo-cli/internal/model"
)

// Messages returned by the server, matching the production backend.
const (
	MsgTitleRequired = "タイトルは必須です。"
	MsgDueRequired   = "期日は必須です。"
	MsgDueFormat     = "期日はYYYY-MM-DD形式で入力してください。"
	MsgAdded         = "タスクが正常に追加されました。"
	MsgUpdated       = "タスクが正常に更新されました。"
	MsgDeleted       = "タスクが正常に削除されました。"
	MsgUpdateFailed  = "タスクの更新に失敗しました。"
	MsgDeleteFailed  = "タスクの削除に失敗しました。"
	MsgSortFailed    = "ソートに失敗しました。"
)

type fault int

const (
	faultNone fault = iota
	faultMessage
	faultStatus
	faultGarbage
)

type injected struct {
	kind    fault
	message string
	status  int
}

// Server is an httptest server holding tasks in memory.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	tasks  []model.Task
	nextID int
	faults []injected
	calls  map[string]int
	forms  []map[string]string
	hold   chan struct{}
}

// New starts a server seeded with tasks. Task ids must be integers; new tasks
// get ids after the largest seeded one.
func New(seed ...model.Task) *Server {
	s := &Server{calls: map[string]int{}, nextID: 1}
	for _, t := range seed {
		s.tasks = append(s.tasks, t)
		if n, err := strconv.Atoi(t.ID.String()); err == nil && n >= s.nextID {
			s.nextID = n + 1
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /add_task", s.handleAdd)
	mux.HandleFunc("POST /update_task/{id}", s.handleUpdate)
	mux.HandleFunc("POST /delete_task/{id}", s.handleDelete)
	mux.HandleFunc("POST /sort_tasks", s.handleSort)
	s.Server = httptest.NewServer(mux)
	return s
}

// FailNext makes the next request answer success=false with message.
func (s *Server) FailNext(message string) {
	s.push(injected{kind: faultMessage, message: message})
}

// BreakNext makes the next request answer with an HTTP error status.
func (s *Server) BreakNext(status int) {
	s.push(injected{kind: faultStatus, status: status})
}

// GarbageNext makes the next request answer with a body that is not JSON.
func (s *Server) GarbageNext() {
	s.push(injected{kind: faultGarbage})
}

// Hold blocks every request until the returned function is called.
func (s *Server) Hold() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.hold = nil
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) push(f injected) {
	s.mu.Lock()
	s.faults = append(s.faults, f)
	s.mu.Unlock()
}

// Calls returns how many requests reached an endpoint ("add_task",
// "update_task", "delete_task", "sort_tasks").
func (s *Server) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[action]
}

// TotalCalls returns the number of requests across all endpoints.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// LastForm returns the form fields of the last multipart request.
func (s *Server) LastForm() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.forms) == 0 {
		return nil
	}
	return s.forms[len(s.forms)-1]
}

// Tasks returns the stored tasks in insertion order.
func (s *Server) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.tasks...)
}

// begin counts the call, waits out a hold and applies an injected fault. It
// reports whether the handler should continue.
func (s *Server) begin(w http.ResponseWriter, action string) bool {
	s.mu.Lock()
	s.calls[action]++
	hold := s.hold
	s.mu.Unlock()
	if hold != nil {
		<-hold
	}

	s.mu.Lock()
	var f injected
	if len(s.faults) > 0 {
		f = s.faults[0]
		s.faults = s.faults[1:]
	}
	s.mu.Unlock()

	switch f.kind {
	case faultMessage:
		writeJSON(w, http.StatusOK, model.Result{Success: false, Message: f.message})
		return false
	case faultStatus:
		http.Error(w, http.StatusText(f.status), f.status)
		return false
	case faultGarbage:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>not json</html>"))
		return false
	}
	return true
}

func (s *Server) readForm(r *http.Request) (model.Fields, bool) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		return model.Fields{}, false
	}
	form := map[string]string{}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			form[k] = v[0]
		}
	}
	s.mu.Lock()
	s.forms = append(s.forms, form)
	s.mu.Unlock()
	return model.Fields{
		TaskID:  form["task_id"],
		Title:   strings.TrimSpace(form["title"]),
		Content: strings.TrimSpace(form["content"]),
		DueDate: strings.TrimSpace(form["due_date"]),
		Memo:    strings.TrimSpace(form["memo"]),
	}, true
}

func validate(f model.Fields) string {
	if f.Title == "" {
		return MsgTitleRequired
	}
	if f.DueDate == "" {
		return MsgDueRequired
	}
	if _, err := time.Parse(time.DateOnly, f.DueDate); err != nil {
		return MsgDueFormat
	}
	return ""
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "add_task") {
		return
	}
	f, ok := s.readForm(r)
	if !ok {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if msg := validate(f); msg != "" {
		writeJSON(w, http.StatusOK, model.Result{Message: msg})
		return
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, model.Task{
		ID:      model.TaskID(strconv.Itoa(s.nextID)),
		Title:   f.Title,
		Content: f.Content,
		DueDate: f.DueDate,
		Memo:    f.Memo,
	})
	s.nextID++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, model.Result{Success: true, Message: MsgAdded})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "update_task") {
		return
	}
	id := r.PathValue("id")
	if _, err := strconv.Atoi(id); err != nil {
		http.NotFound(w, r)
		return
	}
	f, ok := s.readForm(r)
	if !ok {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if msg := validate(f); msg != "" {
		writeJSON(w, http.StatusOK, model.Result{Message: msg})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID.String() == id {
			s.tasks[i].Title = f.Title
			s.tasks[i].Content = f.Content
			s.tasks[i].DueDate = f.DueDate
			s.tasks[i].Memo = f.Memo
			writeJSON(w, http.StatusOK, model.Result{Success: true, Message: MsgUpdated})
			return
		}
	}
	writeJSON(w, http.StatusOK, model.Result{Message: MsgUpdateFailed})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "delete_task") {
		return
	}
	id := r.PathValue("id")
	if _, err := strconv.Atoi(id); err != nil {
		http.NotFound(w, r)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID.String() == id {
			s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
			writeJSON(w, http.StatusOK, model.Result{Success: true, Message: MsgDeleted})
			return
		}
	}
	writeJSON(w, http.StatusOK, model.Result{Message: MsgDeleteFailed})
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "sort_tasks") {
		return
	}
	var req struct {
		SortType string `json:"sort_type"`
	}
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, model.Result{Message: MsgSortFailed})
		return
	}
	s.mu.Lock()
	tasks := append([]model.Task(nil), s.tasks...)
	s.mu.Unlock()

	if req.SortType == "asc" || req.SortType == "" {
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueDate < tasks[j].DueDate })
	} else {
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueDate > tasks[j].DueDate })
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, model.Result{Success: true, Tasks: tasks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
