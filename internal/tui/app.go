package tui

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"todo-cli/internal/controller"
	"todo-cli/internal/model"
	"todo-cli/internal/page"
	"todo-cli/internal/store"
)

type formKind int

const (
	formNone formKind = iota
	formAdd
	formEdit
)

const (
	fieldTitle = iota
	fieldContent
	fieldDueDate
	fieldMemo
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title *", "Content", "Due date * (YYYY-MM-DD)", "Memo"}

// pageChangedMsg reports that the controller changed the page, possibly from
// a banner timer.
type pageChangedMsg struct{}

// actionDoneMsg reports that a controller action returned.
type actionDoneMsg struct {
	action string
	ok     bool
}

const (
	actionLoad   = "load"
	actionAdd    = "add"
	actionOpen   = "open_edit"
	actionUpdate = "update"
	actionDelete = "delete"
	actionSort   = "sort"
)

type appModel struct {
	ctx        context.Context
	ctl        *controller.Controller
	doc        *page.Document
	scoped     *store.ScopedState
	logger     *log.Logger
	backendURL string

	width  int
	height int

	st         page.State
	cursor     int
	selectedID string

	form   formKind
	inputs [fieldCount]textinput.Model
	focus  int

	confirmDeleteID string
	confirmFocus    confirmModalFocus

	showHelp bool
	spinner  spinner.Model
	inFlight int

	updates   <-chan struct{}
	cancelSub func()
}

func newAppModel(ctx context.Context, opts Options) appModel {
	doc := page.NewDocument()
	var scoped *store.ScopedState
	if opts.Store != nil {
		scoped = opts.Store.Scope(StateScope)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	m := appModel{
		ctx:        ctx,
		ctl:        newController(opts, doc, scoped),
		doc:        doc,
		scoped:     scoped,
		logger:     logger.WithPrefix("tui"),
		backendURL: opts.BackendURL,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 500
		in.Width = 48
		m.inputs[i] = in
	}
	m.inputs[fieldDueDate].CharLimit = len("2006-01-02")

	// Best effort: restore the last selection.
	if scoped != nil {
		if ts, err := scoped.LoadTUIState(ctx); err == nil {
			m.selectedID = ts.SelectedTaskID
			m.showHelp = ts.ShowHelp
		} else {
			m.logger.Warn("load tui state", "err", err)
		}
	}

	// The last fetched list stands in until the first refresh answers.
	if scoped != nil {
		if tasks, _, err := scoped.Tasks(ctx); err != nil {
			m.logger.Warn("load cached tasks", "err", err)
		} else if len(tasks) > 0 {
			doc.ReplaceRows(tasks)
		}
	}

	m.ctl.Init()
	m.updates, m.cancelSub = doc.Subscribe()
	m.st = doc.Snapshot()
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.updates),
		m.spinner.Tick,
		m.run(actionLoad, func(ctx context.Context) bool { return m.ctl.Refresh(ctx) }),
	)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return pageChangedMsg{}
	}
}

// run executes a controller action off the update loop.
func (m appModel) run(action string, fn func(ctx context.Context) bool) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, ok: fn(ctx)}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case pageChangedMsg:
		m.syncState()
		return m, waitForChange(m.updates)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionDoneMsg:
		if m.inFlight > 0 {
			m.inFlight--
		}
		m.syncState()
		return m.afterAction(msg)

	case tea.KeyMsg:
		switch {
		case m.showHelp:
			return m.updateHelp(msg)
		case m.confirmDeleteID != "":
			return m.updateConfirm(msg)
		case m.form != formNone:
			return m.updateForm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

// syncState copies the page and keeps the cursor on the selected task.
func (m *appModel) syncState() {
	m.st = m.doc.Snapshot()
	if m.selectedID != "" {
		for i, r := range m.st.Rows {
			if r.TaskID == m.selectedID {
				m.cursor = i
				return
			}
		}
	}
	m.clampCursor()
}

func (m *appModel) clampCursor() {
	if m.cursor >= len(m.st.Rows) {
		m.cursor = len(m.st.Rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if len(m.st.Rows) > 0 {
		m.selectedID = m.st.Rows[m.cursor].TaskID
	}
}

func (m appModel) afterAction(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	switch msg.action {
	case actionOpen:
		if msg.ok && m.doc.ModalVisible() {
			m.openForm(formEdit, m.doc.FormValues(page.IDEditForm))
			return m, m.focusInput(fieldTitle)
		}
	case actionAdd:
		if msg.ok {
			m.closeForm()
		}
	case actionUpdate:
		if msg.ok || !m.doc.ModalVisible() {
			m.closeForm()
		}
	}
	return m, nil
}

func (m appModel) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, m.quit()
	case "?", "esc", "q", "enter":
		m.showHelp = false
	}
	return m, nil
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, m.quit()
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirmFocus = m.confirmFocus.toggle()
		return m, nil
	case "esc", "n", "ctrl+g":
		m.confirmDeleteID = ""
		return m, nil
	case "y":
		return m.confirmDelete(true)
	case "enter":
		return m.confirmDelete(m.confirmFocus == confirmFocusConfirm)
	}
	return m, nil
}

// confirmDelete closes the confirmation modal and deletes on yes. The answer
// is handed to the controller, which sends nothing on no.
func (m appModel) confirmDelete(yes bool) (tea.Model, tea.Cmd) {
	id := m.confirmDeleteID
	m.confirmDeleteID = ""
	if !yes {
		return m, nil
	}
	m.inFlight++
	return m, m.run(actionDelete, func(ctx context.Context) bool {
		return m.ctl.Delete(ctx, id, controller.Confirmed(true))
	})
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, m.quit()
	case "esc":
		if m.form == formEdit {
			m.ctl.KeyDown("Escape")
		} else {
			// Typed values stay in the create form for next time.
			m.doc.SetFormValues(page.IDAddForm, m.formValues())
		}
		m.closeForm()
		m.syncState()
		return m, nil
	case "tab", "down":
		return m, m.focusInput((m.focus + 1) % fieldCount)
	case "shift+tab", "up":
		return m, m.focusInput((m.focus + fieldCount - 1) % fieldCount)
	case "enter", "ctrl+s":
		return m.submitForm()
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m appModel) submitForm() (tea.Model, tea.Cmd) {
	if m.inFlight > 0 {
		return m, nil
	}
	values := m.formValues()
	m.inFlight++
	if m.form == formEdit {
		values.TaskID = m.doc.FormValues(page.IDEditForm).TaskID
		m.doc.SetFormValues(page.IDEditForm, values)
		return m, m.run(actionUpdate, m.ctl.SubmitEdit)
	}
	m.doc.SetFormValues(page.IDAddForm, values)
	return m, m.run(actionAdd, m.ctl.SubmitCreate)
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, m.quit()
	case "?":
		m.showHelp = true
		return m, nil
	case "up", "k", "ctrl+p":
		m.cursor--
		m.clampCursor()
		return m, nil
	case "down", "j", "ctrl+n":
		m.cursor++
		m.clampCursor()
		return m, nil
	case "home", "g":
		m.cursor = 0
		m.clampCursor()
		return m, nil
	case "end", "G":
		m.cursor = len(m.st.Rows) - 1
		m.clampCursor()
		return m, nil
	case "a", "n":
		m.openForm(formAdd, m.doc.FormValues(page.IDAddForm))
		return m, m.focusInput(fieldTitle)
	case "esc":
		m.ctl.KeyDown("Escape")
		return m, nil
	}

	if m.inFlight > 0 {
		return m, nil
	}
	switch msg.String() {
	case "e", "enter":
		id, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.inFlight++
		return m, m.run(actionOpen, func(ctx context.Context) bool { return m.ctl.OpenEdit(ctx, id) })
	case "d", "x":
		if id, ok := m.selected(); ok {
			m.confirmDeleteID = id
			m.confirmFocus = confirmFocusCancel
		}
		return m, nil
	case "s":
		return m.sort(model.SortAsc)
	case "S":
		return m.sort(model.SortDesc)
	case "r":
		m.inFlight++
		return m, m.run(actionLoad, m.ctl.Refresh)
	}
	return m, nil
}

func (m appModel) sort(st model.SortType) (tea.Model, tea.Cmd) {
	m.inFlight++
	return m, m.run(actionSort, func(ctx context.Context) bool { return m.ctl.Sort(ctx, st) })
}

func (m appModel) selected() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.st.Rows) {
		return "", false
	}
	return m.st.Rows[m.cursor].TaskID, true
}

func (m *appModel) openForm(kind formKind, f model.Fields) {
	m.form = kind
	m.inputs[fieldTitle].SetValue(f.Title)
	m.inputs[fieldContent].SetValue(f.Content)
	m.inputs[fieldDueDate].SetValue(f.DueDate)
	m.inputs[fieldMemo].SetValue(f.Memo)
	m.inputs[fieldDueDate].Placeholder = minDatePlaceholder(m.dueDateMin(kind))
}

func (m appModel) dueDateMin(kind formKind) string {
	if kind == formEdit {
		return m.st.Edit.DueDateMin
	}
	return m.st.Create.DueDateMin
}

func minDatePlaceholder(min string) string {
	if min == "" {
		return "YYYY-MM-DD"
	}
	return min
}

func (m *appModel) closeForm() {
	m.form = formNone
	for i := range m.inputs {
		m.inputs[i].Blur()
		m.inputs[i].SetValue("")
	}
	m.focus = 0
}

func (m *appModel) focusInput(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}

func (m appModel) formValues() model.Fields {
	return model.Fields{
		Title:   m.inputs[fieldTitle].Value(),
		Content: m.inputs[fieldContent].Value(),
		DueDate: strings.TrimSpace(m.inputs[fieldDueDate].Value()),
		Memo:    m.inputs[fieldMemo].Value(),
	}
}

// quit saves the selection for the next launch and exits.
func (m appModel) quit() tea.Cmd {
	if m.scoped != nil {
		ts := &store.TUIState{SelectedTaskID: m.selectedID, ShowHelp: m.showHelp}
		if err := m.scoped.SaveTUIState(m.ctx, ts); err != nil {
			m.logger.Warn("save tui state", "err", err)
		}
	}
	return tea.Quit
}
