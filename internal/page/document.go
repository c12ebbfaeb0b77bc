package page

import (
	"sync"

	"todo-cli/internal/model"
)

// MessageKind selects the banner styling.
type MessageKind string

const (
	KindInfo    MessageKind = "info"
	KindSuccess MessageKind = "success"
	KindError   MessageKind = "error"
)

// Form is one of the two task forms.
type Form struct {
	ID         string
	Values     model.Fields
	DueDateMin string
}

type Modal struct {
	Display    string
	AriaHidden bool
}

func (m Modal) Visible() bool { return m.Display == DisplayBlock }

// Row is one rendered table row. Cells hold the visible text of the title,
// content, due date and memo cells, unescaped.
type Row struct {
	TaskID string
	Cells  [4]string
}

// Banner is a flash message shown at the top of the main container.
type Banner struct {
	ID     uint64
	Text   string
	Kind   MessageKind
	Fading bool
}

// State is a copy of the page at one point in time.
type State struct {
	Create  Form
	Edit    Form
	Modal   Modal
	Rows    []Row
	Banners []Banner
	Loading string

	// Focus names the element that should hold keyboard focus, or "".
	Focus string
	// ReloadSeq increments each time a full page reload is requested.
	ReloadSeq uint64
	// Version increments on every change.
	Version uint64
}

func (s State) LoadingVisible() bool { return s.Loading == DisplayFlex }

func (s State) clone() State {
	out := s
	out.Rows = append([]Row(nil), s.Rows...)
	out.Banners = append([]Banner(nil), s.Banners...)
	return out
}

// Document is the mutable page. All methods are safe for concurrent use; every
// change notifies subscribers.
type Document struct {
	mu         sync.Mutex
	st         State
	nextBanner uint64
	hub        hub
}

// NewDocument returns a page with empty forms, a hidden modal, no rows, no
// banners and a hidden loading overlay.
func NewDocument() *Document {
	return &Document{st: State{
		Create:  Form{ID: IDAddForm},
		Edit:    Form{ID: IDEditForm},
		Modal:   Modal{Display: DisplayNone, AriaHidden: true},
		Loading: DisplayNone,
	}}
}

// Snapshot returns a copy of the current state.
func (d *Document) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.clone()
}

// Subscribe returns a channel that receives a signal after changes, and a
// function that cancels the subscription.
func (d *Document) Subscribe() (<-chan struct{}, func()) {
	return d.hub.subscribe()
}

// Update applies fn under the document lock. fn reports whether it changed
// anything; only then are the version bumped and subscribers notified.
func (d *Document) Update(fn func(*State) bool) {
	d.mu.Lock()
	changed := fn(&d.st)
	if changed {
		d.st.Version++
	}
	d.mu.Unlock()
	if changed {
		d.hub.broadcast()
	}
}

func formOf(st *State, id string) *Form {
	switch id {
	case IDAddForm:
		return &st.Create
	case IDEditForm:
		return &st.Edit
	default:
		return nil
	}
}

// FormValues returns the current field values of the form with the given id.
func (d *Document) FormValues(formID string) model.Fields {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f := formOf(&d.st, formID); f != nil {
		return f.Values
	}
	return model.Fields{}
}

// SetFormValues replaces the field values of a form, as typing would.
func (d *Document) SetFormValues(formID string, values model.Fields) {
	d.Update(func(st *State) bool {
		f := formOf(st, formID)
		if f == nil || f.Values == values {
			return false
		}
		f.Values = values
		return true
	})
}

// ResetForm clears every field of a form. The due date minimum is kept.
func (d *Document) ResetForm(formID string) {
	d.SetFormValues(formID, model.Fields{})
}

// SetDueDateMin sets the earliest selectable due date on a form.
func (d *Document) SetDueDateMin(formID, date string) {
	d.Update(func(st *State) bool {
		f := formOf(st, formID)
		if f == nil || f.DueDateMin == date {
			return false
		}
		f.DueDateMin = date
		return true
	})
}

func (d *Document) ModalVisible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.Modal.Visible()
}

// ShowModal makes the edit modal visible.
func (d *Document) ShowModal() {
	d.Update(func(st *State) bool {
		if st.Modal.Visible() && !st.Modal.AriaHidden {
			return false
		}
		st.Modal = Modal{Display: DisplayBlock, AriaHidden: false}
		return true
	})
}

// HideModal resets the edit form and hides the modal. Hiding a hidden, empty
// modal is not a change.
func (d *Document) HideModal() {
	hidden := Modal{Display: DisplayNone, AriaHidden: true}
	d.Update(func(st *State) bool {
		if st.Modal == hidden && st.Edit.Values == (model.Fields{}) && st.Focus != IDEditTitle {
			return false
		}
		st.Edit.Values = model.Fields{}
		st.Modal = hidden
		if st.Focus == IDEditTitle {
			st.Focus = ""
		}
		return true
	})
}

// Focus moves keyboard focus to an element.
func (d *Document) Focus(elementID string) {
	d.Update(func(st *State) bool {
		if st.Focus == elementID {
			return false
		}
		st.Focus = elementID
		return true
	})
}

// Row looks up the rendered row for a task id.
func (d *Document) Row(taskID string) (Row, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.st.Rows {
		if r.TaskID == taskID {
			return r, true
		}
	}
	return Row{}, false
}

// RowsOf builds table rows for tasks, in order.
func RowsOf(tasks []model.Task) []Row {
	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, Row{
			TaskID: t.ID.String(),
			Cells:  [4]string{t.Title, t.Content, t.DueDate, t.Memo},
		})
	}
	return rows
}

// ReplaceRows discards the table body and rebuilds it from tasks.
func (d *Document) ReplaceRows(tasks []model.Task) {
	rows := RowsOf(tasks)
	d.Update(func(st *State) bool {
		st.Rows = rows
		return true
	})
}

// Banners returns the banners currently in the main container, first to last.
func (d *Document) Banners() []Banner {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Banner(nil), d.st.Banners...)
}

// PrependBanner inserts a banner as the first child of the main container and
// returns its id.
func (d *Document) PrependBanner(text string, kind MessageKind) uint64 {
	var id uint64
	d.Update(func(st *State) bool {
		d.nextBanner++
		id = d.nextBanner
		st.Banners = append([]Banner{{ID: id, Text: text, Kind: kind}}, st.Banners...)
		return true
	})
	return id
}

// ReplaceBanners removes every banner and inserts a single new one, in one
// step. It returns the new banner's id.
func (d *Document) ReplaceBanners(text string, kind MessageKind) uint64 {
	var id uint64
	d.Update(func(st *State) bool {
		d.nextBanner++
		id = d.nextBanner
		st.Banners = []Banner{{ID: id, Text: text, Kind: kind}}
		return true
	})
	return id
}

// FadeBanner starts the fade-out of a banner. It reports false if the banner
// no longer exists.
func (d *Document) FadeBanner(id uint64) bool {
	found := false
	d.Update(func(st *State) bool {
		for i := range st.Banners {
			if st.Banners[i].ID == id {
				found = true
				if st.Banners[i].Fading {
					return false
				}
				st.Banners[i].Fading = true
				return true
			}
		}
		return false
	})
	return found
}

// RemoveBanner removes one banner.
func (d *Document) RemoveBanner(id uint64) bool {
	found := false
	d.Update(func(st *State) bool {
		for i := range st.Banners {
			if st.Banners[i].ID == id {
				st.Banners = append(st.Banners[:i:i], st.Banners[i+1:]...)
				found = true
				return true
			}
		}
		return false
	})
	return found
}

// SetLoading shows or hides the loading overlay.
func (d *Document) SetLoading(visible bool) {
	display := DisplayNone
	if visible {
		display = DisplayFlex
	}
	d.Update(func(st *State) bool {
		if st.Loading == display {
			return false
		}
		st.Loading = display
		return true
	})
}

func (d *Document) LoadingVisible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.LoadingVisible()
}

// RequestReload asks front ends that own a real browser page to reload it.
func (d *Document) RequestReload() {
	d.Update(func(st *State) bool {
		st.ReloadSeq++
		return true
	})
}
