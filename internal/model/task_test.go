package model

import (
	"encoding/json"
	"testing"
)

func TestTaskID_AcceptsNumberAndString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want TaskID
	}{
		{`{"id": 12}`, "12"},
		{`{"id": "12"}`, "12"},
		{`{"id": " abc "}`, "abc"},
		{`{"id": null}`, ""},
	}
	for _, tc := range cases {
		var task Task
		if err := json.Unmarshal([]byte(tc.in), &task); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if task.ID != tc.want {
			t.Fatalf("%s: got id %q, want %q", tc.in, task.ID, tc.want)
		}
	}
}

func TestTaskID_RejectsObjects(t *testing.T) {
	t.Parallel()

	var task Task
	if err := json.Unmarshal([]byte(`{"id": {"x": 1}}`), &task); err == nil {
		t.Fatalf("expected error for object id")
	}
}

func TestParseSortType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]SortType{"asc": SortAsc, " DESC ": SortDesc} {
		got, err := ParseSortType(in)
		if err != nil {
			t.Fatalf("ParseSortType(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseSortType(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseSortType("sideways"); err != ErrInvalidSortType {
		t.Fatalf("expected ErrInvalidSortType, got %v", err)
	}
}

func TestTaskID_MarshalsIntegersAsNumbers(t *testing.T) {
	t.Parallel()

	cases := map[TaskID]string{
		"12":  `12`,
		"0":   `0`,
		"007": `"007"`,
		"a-1": `"a-1"`,
		"":    `""`,
	}
	for id, want := range cases {
		b, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("marshal %q: %v", id, err)
		}
		if string(b) != want {
			t.Fatalf("marshal %q = %s, want %s", id, b, want)
		}
	}
}
