package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"todo-cli/internal/model"
)

const prefSortType = "sort_type"

// ScopedState is the view state of one scope. It satisfies the controller's
// TaskIndex and Preferences interfaces.
type ScopedState struct {
	s     *Store
	scope string
	now   func() time.Time
}

// Scope returns the state stored under name.
func (s *Store) Scope(name string) *ScopedState {
	return &ScopedState{s: s, scope: strings.TrimSpace(name), now: time.Now}
}

func (st *ScopedState) Name() string { return st.scope }

// Replace stores tasks as the scope's task list, in order, discarding the
// previous list.
func (st *ScopedState) Replace(ctx context.Context, tasks []model.Task) error {
	tx, err := st.s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE scope = ?`, st.scope); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO tasks(scope, id, position, title, content, due_date, memo, fetched_at_unixms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	at := st.now().UnixMilli()
	for i, t := range tasks {
		if _, err := stmt.ExecContext(ctx, st.scope, t.ID.String(), i, t.Title, t.Content, t.DueDate, t.Memo, at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get returns the stored task with id.
func (st *ScopedState) Get(ctx context.Context, id model.TaskID) (model.Task, bool, error) {
	row := st.s.db.QueryRowContext(ctx, `
		SELECT id, title, content, due_date, memo FROM tasks
		WHERE scope = ? AND id = ?`, st.scope, id.String())
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, false, nil
	}
	if err != nil {
		return model.Task{}, false, err
	}
	return t, true, nil
}

// Tasks returns the stored task list in the order it was fetched, and when it
// was fetched. The time is zero when nothing is stored.
func (st *ScopedState) Tasks(ctx context.Context) ([]model.Task, time.Time, error) {
	rows, err := st.s.db.QueryContext(ctx, `
		SELECT id, title, content, due_date, memo, fetched_at_unixms FROM tasks
		WHERE scope = ? ORDER BY position`, st.scope)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var (
		out     []model.Task
		fetched int64
	)
	for rows.Next() {
		var t model.Task
		var id string
		if err := rows.Scan(&id, &t.Title, &t.Content, &t.DueDate, &t.Memo, &fetched); err != nil {
			return nil, time.Time{}, err
		}
		t.ID = model.TaskID(id)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	if len(out) == 0 {
		return nil, time.Time{}, nil
	}
	return out, time.UnixMilli(fetched), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (model.Task, error) {
	var t model.Task
	var id string
	if err := r.Scan(&id, &t.Title, &t.Content, &t.DueDate, &t.Memo); err != nil {
		return model.Task{}, err
	}
	t.ID = model.TaskID(id)
	return t, nil
}

// Pref returns a stored preference, or "" if unset.
func (st *ScopedState) Pref(ctx context.Context, key string) (string, error) {
	var v string
	err := st.s.db.QueryRowContext(ctx, `SELECT v FROM prefs WHERE scope = ? AND k = ?`, st.scope, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (st *ScopedState) SetPref(ctx context.Context, key, value string) error {
	_, err := st.s.db.ExecContext(ctx, `INSERT OR REPLACE INTO prefs(scope, k, v) VALUES(?, ?, ?)`, st.scope, key, value)
	return err
}

// SortType returns the remembered sort order. A missing or unreadable value
// reads as "".
func (st *ScopedState) SortType(ctx context.Context) (model.SortType, error) {
	v, err := st.Pref(ctx, prefSortType)
	if err != nil || v == "" {
		return "", err
	}
	parsed, err := model.ParseSortType(v)
	if err != nil {
		return "", nil
	}
	return parsed, nil
}

func (st *ScopedState) SetSortType(ctx context.Context, sortType model.SortType) error {
	if _, err := model.ParseSortType(string(sortType)); err != nil {
		return err
	}
	return st.SetPref(ctx, prefSortType, string(sortType))
}
