// Package controller implements the task page's behaviour: form submission,
// the edit modal, deletion, sorting, flash messages and the loading overlay.
// It mutates a page.Document and talks to the server through a Backend.
package controller

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"todo-cli/internal/model"
	"todo-cli/internal/page"
)

// Backend is the task server.
type Backend interface {
	AddTask(ctx context.Context, f model.Fields) (model.Result, error)
	UpdateTask(ctx context.Context, id model.TaskID, f model.Fields) (model.Result, error)
	DeleteTask(ctx context.Context, id model.TaskID) (model.Result, error)
	SortTasks(ctx context.Context, sortType model.SortType) (model.Result, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

type ConfirmFunc func(ctx context.Context, message string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool { return f(ctx, message) }

// Confirmed answers every question with ok. Front ends that ask before calling
// the controller pass Confirmed(true).
func Confirmed(ok bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return ok })
}

// TaskIndex holds the most recently fetched tasks by id.
type TaskIndex interface {
	Replace(ctx context.Context, tasks []model.Task) error
	Get(ctx context.Context, id model.TaskID) (model.Task, bool, error)
}

// Preferences remembers the last sort order. SortType returns "" when none
// has been stored.
type Preferences interface {
	SortType(ctx context.Context) (model.SortType, error)
	SetSortType(ctx context.Context, st model.SortType) error
}

// ReloadMode selects what "reload" means after a successful mutation.
type ReloadMode string

const (
	// ReloadRefetch fetches the task list again and rebuilds the table.
	ReloadRefetch ReloadMode = "refetch"
	// ReloadPage asks the browser to reload the whole page.
	ReloadPage ReloadMode = "page"
)

func ParseReloadMode(s string) (ReloadMode, bool) {
	switch ReloadMode(s) {
	case ReloadRefetch, "":
		return ReloadRefetch, true
	case ReloadPage:
		return ReloadPage, true
	default:
		return "", false
	}
}

// Timing controls banner dismissal.
type Timing struct {
	Visible time.Duration
	Fade    time.Duration
}

func DefaultTiming() Timing {
	return Timing{Visible: 5 * time.Second, Fade: 300 * time.Millisecond}
}

type Options struct {
	Page        *page.Document
	Backend     Backend
	Index       TaskIndex
	Prefs       Preferences
	Clock       Clock
	Logger      *log.Logger
	Timing      Timing
	ReloadMode  ReloadMode
	DefaultSort model.SortType
}

// Controller drives one page. Its methods may be called concurrently; each
// reads the current page state when it starts and never holds the page lock
// across a backend call.
type Controller struct {
	doc         *page.Document
	backend     Backend
	index       TaskIndex
	prefs       Preferences
	clock       Clock
	logger      *log.Logger
	timing      Timing
	reload      ReloadMode
	defaultSort model.SortType
}

func New(opts Options) *Controller {
	c := &Controller{
		doc:         opts.Page,
		backend:     opts.Backend,
		index:       opts.Index,
		prefs:       opts.Prefs,
		clock:       opts.Clock,
		logger:      opts.Logger,
		timing:      opts.Timing,
		reload:      opts.ReloadMode,
		defaultSort: opts.DefaultSort,
	}
	if c.doc == nil {
		c.doc = page.NewDocument()
	}
	if c.index == nil || c.prefs == nil {
		mem := NewMemoryIndex()
		if c.index == nil {
			c.index = mem
		}
		if c.prefs == nil {
			c.prefs = mem
		}
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	def := DefaultTiming()
	if c.timing.Visible <= 0 {
		c.timing.Visible = def.Visible
	}
	if c.timing.Fade <= 0 {
		c.timing.Fade = def.Fade
	}
	if c.reload == "" {
		c.reload = ReloadRefetch
	}
	if c.defaultSort == "" {
		c.defaultSort = model.SortAsc
	}
	return c
}

// Page returns the document the controller drives.
func (c *Controller) Page() *page.Document { return c.doc }

// Init sets today's date as the due date minimum on both forms and schedules
// dismissal of every banner already on the page.
func (c *Controller) Init() {
	today := c.clock.Now().Format(time.DateOnly)
	c.doc.SetDueDateMin(page.IDAddForm, today)
	c.doc.SetDueDateMin(page.IDEditForm, today)
	for _, b := range c.doc.Banners() {
		c.scheduleDismiss(b.ID)
	}
}

// ShowMessage replaces every banner with one new banner and schedules its
// dismissal.
func (c *Controller) ShowMessage(text string, kind page.MessageKind) {
	id := c.doc.ReplaceBanners(text, kind)
	c.scheduleDismiss(id)
}

func (c *Controller) scheduleDismiss(id uint64) {
	c.clock.AfterFunc(c.timing.Visible, func() {
		if !c.doc.FadeBanner(id) {
			return
		}
		c.clock.AfterFunc(c.timing.Fade, func() {
			c.doc.RemoveBanner(id)
		})
	})
}

func (c *Controller) ShowLoading() { c.doc.SetLoading(true) }

func (c *Controller) HideLoading() { c.doc.SetLoading(false) }

// CloseModal resets the edit form and hides the modal.
func (c *Controller) CloseModal() { c.doc.HideModal() }

// BackdropClick closes the modal when the click landed on the modal surface
// itself rather than on its content.
func (c *Controller) BackdropClick(targetID string) {
	if targetID == page.IDEditModal {
		c.CloseModal()
	}
}

// KeyDown closes a visible modal on Escape.
func (c *Controller) KeyDown(key string) {
	if key == "Escape" && c.doc.ModalVisible() {
		c.CloseModal()
	}
}

// SortPreference returns the remembered sort order, or the default.
func (c *Controller) SortPreference(ctx context.Context) model.SortType {
	st, err := c.prefs.SortType(ctx)
	if err != nil {
		c.logger.Warn("read sort preference", "err", err)
	}
	if st == "" {
		return c.defaultSort
	}
	return st
}

func failureText(message string) string {
	if message == "" {
		return MsgServerError
	}
	return message
}
