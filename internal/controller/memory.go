package controller

import (
	"context"
	"sync"

	"todo-cli/internal/model"
)

// MemoryIndex keeps the last fetched tasks and the sort preference in process
// memory. It satisfies TaskIndex and Preferences.
type MemoryIndex struct {
	mu    sync.RWMutex
	tasks map[model.TaskID]model.Task
	sort  model.SortType
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{tasks: map[model.TaskID]model.Task{}}
}

func (m *MemoryIndex) Replace(_ context.Context, tasks []model.Task) error {
	next := make(map[model.TaskID]model.Task, len(tasks))
	for _, t := range tasks {
		next[t.ID] = t
	}
	m.mu.Lock()
	m.tasks = next
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Get(_ context.Context, id model.TaskID) (model.Task, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	return t, ok, nil
}

func (m *MemoryIndex) SortType(context.Context) (model.SortType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sort, nil
}

func (m *MemoryIndex) SetSortType(_ context.Context, st model.SortType) error {
	m.mu.Lock()
	m.sort = st
	m.mu.Unlock()
	return nil
}
