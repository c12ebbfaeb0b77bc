package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"todo-cli/internal/controller"
	"todo-cli/internal/help"
)

const (
	defaultW = 100
	defaultH = 30
)

func (m appModel) View() string {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultW
	}
	if h <= 0 {
		h = defaultH
	}

	var overlay string
	switch {
	case m.showHelp:
		overlay = renderModalBox(w, "Help", renderMarkdown(help.Markdown(), modalBodyWidth(w)))
	case m.confirmDeleteID != "":
		overlay = renderConfirmModal(w, "Delete task", controller.MsgConfirmDelete, "Delete", "Cancel", m.confirmFocus)
	case m.form != formNone:
		overlay = m.viewForm(w)
	}
	if overlay != "" {
		return normalizePane(lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, overlay), w, h)
	}

	header := m.viewHeader(w)
	banners := m.viewBanners(w)
	footer := styleMuted().Render("a: add  e/enter: edit  d: delete  s/S: sort by due date ↑/↓  r: reload  ?: help  q: quit")

	used := lipgloss.Height(header) + lipgloss.Height(footer) + 2
	if banners != "" {
		used += lipgloss.Height(banners)
	}
	body := m.viewTable(w, h-used)

	parts := []string{header}
	if banners != "" {
		parts = append(parts, banners)
	}
	parts = append(parts, body, "", footer)
	return normalizePane(strings.Join(parts, "\n"), w, h)
}

func (m appModel) viewHeader(w int) string {
	title := styleHeader().Render("Tasks")
	if m.st.LoadingVisible() {
		title += " " + m.spinner.View() + styleMuted().Render("loading…")
	}
	if m.backendURL != "" {
		url := styleMuted().Render(m.backendURL)
		gap := w - lipgloss.Width(title) - lipgloss.Width(url)
		if gap > 1 {
			title += strings.Repeat(" ", gap) + url
		}
	}
	return title + "\n"
}

func (m appModel) viewBanners(w int) string {
	if len(m.st.Banners) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.st.Banners))
	for _, b := range m.st.Banners {
		lines = append(lines, styleBanner(b.Kind, b.Fading).Render(truncate(cellText(b.Text), w-2)))
	}
	return strings.Join(lines, "\n")
}

// viewTable renders the task rows, scrolled so the cursor stays visible.
func (m appModel) viewTable(w, maxH int) string {
	if len(m.st.Rows) == 0 {
		return styleMuted().Render("No tasks. Press a to add one.")
	}

	// Border, header and header separator take four lines.
	visible := maxH - 4
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.st.Rows) {
		end = len(m.st.Rows)
	}

	colW := columnWidths(w)
	rows := make([][]string, 0, end-start)
	for _, r := range m.st.Rows[start:end] {
		row := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			row[i] = truncate(cellText(c), colW[i])
		}
		rows = append(rows, row)
	}

	cursor := m.cursor - start
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("Title", "Content", "Due date", "Memo").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			st := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return st.Bold(true).Foreground(colorSurfaceFg)
			case row == cursor:
				return st.Bold(true).Foreground(colorSelectedFg).Background(colorSelectedBg)
			}
			return st
		})
	return t.String()
}

// columnWidths splits the terminal width between title, content, due date and
// memo. The due date column fits a date.
func columnWidths(w int) [4]int {
	const dateW = 10
	// Five borders and two columns of padding per cell.
	rest := w - 5 - 8 - dateW
	if rest < 12 {
		rest = 12
	}
	title := rest * 3 / 8
	content := rest * 3 / 8
	memo := rest - title - content
	return [4]int{title, content, dateW, memo}
}

func (m appModel) viewForm(w int) string {
	title := "New task"
	if m.form == formEdit {
		title = "Edit task"
	}
	bodyW := modalBodyWidth(w)

	var b strings.Builder
	for i := range m.inputs {
		label := fieldLabels[i]
		if i == m.focus {
			label = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(label)
		} else {
			label = styleMuted().Render(label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(renderInputLine(bodyW, m.inputs[i].View()))
		b.WriteString("\n\n")
	}
	if banners := m.viewBanners(bodyW); banners != "" {
		b.WriteString(banners)
		b.WriteString("\n\n")
	}
	if m.inFlight > 0 {
		b.WriteString(m.spinner.View() + styleMuted().Render("saving…") + "\n\n")
	}
	b.WriteString(styleMuted().Width(bodyW).Render("tab: next field   enter: save   esc: cancel"))
	return renderModalBox(w, title, b.String())
}
