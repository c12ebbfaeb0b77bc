package store

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
)

const prefTUIState = "tui_state"

// TUIState stores small, user-facing UI state for restoring the last screen on
// relaunch. It is best effort: callers should tolerate missing data.
type TUIState struct {
	Version int `json:"version"`

	// SelectedTaskID is the row under the cursor.
	SelectedTaskID string `json:"selectedTaskId,omitempty"`

	ShowHelp bool `json:"showHelp,omitempty"`
}

func (st *ScopedState) LoadTUIState(ctx context.Context) (*TUIState, error) {
	raw, err := st.Pref(ctx, prefTUIState)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return &TUIState{Version: 1}, nil
	}
	var out TUIState
	if err := sonic.UnmarshalString(raw, &out); err != nil {
		// Corrupted state reads as missing.
		return &TUIState{Version: 1}, nil
	}
	if out.Version == 0 {
		out.Version = 1
	}
	return &out, nil
}

func (st *ScopedState) SaveTUIState(ctx context.Context, ts *TUIState) error {
	if ts == nil {
		return nil
	}
	if ts.Version == 0 {
		ts.Version = 1
	}
	raw, err := sonic.MarshalString(ts)
	if err != nil {
		return err
	}
	return st.SetPref(ctx, prefTUIState, raw)
}
