package main

import (
	"reflect"
	"testing"
)

func TestRewriteSortShortcutArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"todo"},
			want: []string{"todo"},
		},
		{
			name: "sort word first token",
			in:   []string{"todo", "desc"},
			want: []string{"todo", "tasks", "sort", "desc"},
		},
		{
			name: "sort word after value flag",
			in:   []string{"todo", "--backend", "http://127.0.0.1:5000", "asc"},
			want: []string{"todo", "--backend", "http://127.0.0.1:5000", "tasks", "sort", "asc"},
		},
		{
			name: "sort word after equals flag",
			in:   []string{"todo", "--format=text", "asc"},
			want: []string{"todo", "--format=text", "tasks", "sort", "asc"},
		},
		{
			name: "sort word after bool flag",
			in:   []string{"todo", "--pretty", "desc"},
			want: []string{"todo", "--pretty", "tasks", "sort", "desc"},
		},
		{
			name: "sort word after double dash",
			in:   []string{"todo", "--", "desc"},
			want: []string{"todo", "--", "tasks", "sort", "desc"},
		},
		{
			name: "flag value named like a sort word",
			in:   []string{"todo", "--config", "asc", "tasks", "list"},
			want: []string{"todo", "--config", "asc", "tasks", "list"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"todo", "tasks", "sort", "asc"},
			want: []string{"todo", "tasks", "sort", "asc"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"todo", "wat"},
			want: []string{"todo", "wat"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteSortShortcutArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteSortShortcutArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
