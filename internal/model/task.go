package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TaskID is the backend's identifier for a task. The backend sends it as a JSON
// number (a sheet row) but the client never does arithmetic on it, so it is kept
// as text and accepted in either JSON form.
type TaskID string

func (id TaskID) String() string { return string(id) }

func (id *TaskID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = TaskID(strings.TrimSpace(s))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("task id: %w", err)
		}
		*id = TaskID(n.String())
		return nil
	}
}

// MarshalJSON writes integer ids as JSON numbers, the way the backend does, and
// anything else as a string.
func (id TaskID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if s != "" && strings.Trim(s, "0123456789") == "" && (s == "0" || s[0] != '0') {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

// Task is a task as the backend reports it.
type Task struct {
	ID      TaskID `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	DueDate string `json:"due_date"`
	Memo    string `json:"memo"`
}

// Fields is the attribute bundle a form submits. TaskID is only sent on update.
type Fields struct {
	TaskID  string `json:"task_id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
	DueDate string `json:"due_date"`
	Memo    string `json:"memo"`
}

// FieldsOf returns the editable attributes of t.
func FieldsOf(t Task) Fields {
	return Fields{
		TaskID:  t.ID.String(),
		Title:   t.Title,
		Content: t.Content,
		DueDate: t.DueDate,
		Memo:    t.Memo,
	}
}

type SortType string

const (
	SortAsc  SortType = "asc"
	SortDesc SortType = "desc"
)

var ErrInvalidSortType = errors.New("sort type must be asc or desc")

func ParseSortType(s string) (SortType, error) {
	switch SortType(strings.ToLower(strings.TrimSpace(s))) {
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	default:
		return "", ErrInvalidSortType
	}
}

// Result is the JSON body every backend endpoint answers with.
// Success=false is an application-level failure, not a transport error.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Tasks   []Task `json:"tasks,omitempty"`
}
