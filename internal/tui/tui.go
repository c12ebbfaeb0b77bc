// Package tui is the terminal front end for the task list. It drives the same
// controller as the web page and renders its page state with Lip Gloss.
package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"todo-cli/internal/controller"
	"todo-cli/internal/model"
	"todo-cli/internal/page"
	"todo-cli/internal/store"
)

// StateScope is the store scope the terminal UI keeps its task index and
// preferences in.
const StateScope = "tui"

type Options struct {
	Backend     controller.Backend
	Store       *store.Store
	Logger      *log.Logger
	Timing      controller.Timing
	DefaultSort model.SortType
	// BackendURL is shown in the header.
	BackendURL string
}

func Run(ctx context.Context, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()

	m := newAppModel(ctx, opts)
	defer m.cancelSub()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func newController(opts Options, doc *page.Document, scoped *store.ScopedState) *controller.Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	co := controller.Options{
		Page:        doc,
		Backend:     opts.Backend,
		Logger:      logger.WithPrefix("tui"),
		Timing:      opts.Timing,
		ReloadMode:  controller.ReloadRefetch,
		DefaultSort: opts.DefaultSort,
	}
	if scoped != nil {
		co.Index = scoped
		co.Prefs = scoped
	}
	return controller.New(co)
}
