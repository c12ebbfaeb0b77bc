package store

import (
	"context"
	"testing"
)

func TestTUIState_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t).Scope("tui")

	got, err := st.LoadTUIState(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if got.Version != 1 || got.SelectedTaskID != "" {
		t.Fatalf("unexpected empty state: %+v", got)
	}

	if err := st.SaveTUIState(ctx, &TUIState{SelectedTaskID: "4", ShowHelp: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = st.LoadTUIState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Version != 1 || got.SelectedTaskID != "4" || !got.ShowHelp {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestTUIState_CorruptReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t).Scope("tui")
	if err := st.SetPref(ctx, prefTUIState, "{not json"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := st.LoadTUIState(ctx)
	if err != nil || got.SelectedTaskID != "" || got.Version != 1 {
		t.Fatalf("corrupt state: %+v %v", got, err)
	}
}
