// Package tui is the terminal front end: an alarm form with five link slots,
// the pending list, the history view and a pop-up for every due alarm.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pathakanu/myAlarm/internal/alarm"
	"github.com/pathakanu/myAlarm/internal/model"
	"github.com/pathakanu/myAlarm/internal/notify"
)

// Service is the alarm lifecycle as seen by the UI.
type Service interface {
	AddAlarm(year, month, day, hour, minute int, note string) (model.Alarm, error)
	RemoveAlarm(id uint) error
	ListPending() ([]model.Alarm, error)
	ListHistory() ([]model.HistoryEntry, error)
	SetLinks(links [model.MaxLinkSlots]model.Link)
	CurrentLinks() [model.MaxLinkSlots]model.Link
}

// DueMsg delivers a fired alarm to the program.
type DueMsg struct {
	Event notify.DueEvent
}

const (
	tabAlarms = iota
	tabHistory
)

// Input layout: five date fields, the note, then title/url per link slot.
const (
	fieldYear = iota
	fieldMonth
	fieldDay
	fieldHour
	fieldMinute
	fieldNote
	fieldLinks
)

var (
	tabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Background(lipgloss.Color("236")).
			PaddingLeft(1).
			PaddingRight(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			PaddingLeft(1).
			PaddingRight(1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("213")).
			Background(lipgloss.Color("225")).
			Foreground(lipgloss.Color("0")).
			Bold(true).
			Padding(1, 2)
)

// Model is the Bubble Tea model of the alarm window.
type Model struct {
	svc Service

	activeTab   int
	inputs      []textinput.Model
	focus       int
	listFocused bool

	pending    table.Model
	pendingIDs []uint
	history    table.Model

	popups []notify.DueEvent

	status    string
	statusErr bool
	width     int
	height    int
}

// New builds the model with the date fields set to now and the link slots
// filled from the saved ones.
func New(svc Service, now time.Time) Model {
	m := Model{svc: svc}
	m.setupInputs(now, svc.CurrentLinks())
	m.setupTables()
	m.refresh()
	return m
}

func (m *Model) setupInputs(now time.Time, links [model.MaxLinkSlots]model.Link) {
	newInput := func(placeholder, value string, width, limit int) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = ""
		ti.Width = width
		ti.CharLimit = limit
		ti.SetValue(value)
		return ti
	}

	m.inputs = []textinput.Model{
		newInput("year", fmt.Sprintf("%d", now.Year()), 5, 4),
		newInput("mm", fmt.Sprintf("%02d", int(now.Month())), 3, 2),
		newInput("dd", fmt.Sprintf("%02d", now.Day()), 3, 2),
		newInput("hh", fmt.Sprintf("%02d", now.Hour()), 3, 2),
		newInput("mm", fmt.Sprintf("%02d", now.Minute()), 3, 2),
		newInput("note (optional, kept in history)", "", 48, 256),
	}
	for _, l := range links {
		m.inputs = append(m.inputs,
			newInput("link title", l.Title, 16, 128),
			newInput("link url", l.URL, 40, 1024),
		)
	}
	m.inputs[0].Focus()
}

func (m *Model) setupTables() {
	m.pending = table.New(
		table.WithColumns([]table.Column{
			{Title: "Time", Width: 20},
			{Title: "Note", Width: 40},
		}),
		table.WithHeight(8),
	)
	m.history = table.New(
		table.WithColumns([]table.Column{
			{Title: "Time", Width: 20},
			{Title: "Note", Width: 40},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("86"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	m.pending.SetStyles(s)
	m.history.SetStyles(s)
}

func (m *Model) refresh() {
	alarms, err := m.svc.ListPending()
	if err != nil {
		m.setStatus(fmt.Sprintf("Could not load alarms: %v", err), true)
	} else {
		rows := make([]table.Row, 0, len(alarms))
		m.pendingIDs = make([]uint, 0, len(alarms))
		for _, a := range alarms {
			rows = append(rows, table.Row{a.Time, a.Note})
			m.pendingIDs = append(m.pendingIDs, a.ID)
		}
		m.pending.SetRows(rows)
		if c := m.pending.Cursor(); c >= len(rows) && len(rows) > 0 {
			m.pending.SetCursor(len(rows) - 1)
		}
	}

	entries, err := m.svc.ListHistory()
	if err != nil {
		m.setStatus(fmt.Sprintf("Could not load history: %v", err), true)
		return
	}
	rows := make([]table.Row, 0, len(entries))
	for _, h := range entries {
		rows = append(rows, table.Row{h.Time, h.Note})
	}
	m.history.SetRows(rows)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if h := m.height - 8; h > 5 {
			m.history.SetHeight(h)
		}
		return m, nil

	case DueMsg:
		m.popups = append(m.popups, msg.Event)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if len(m.popups) > 0 {
			switch msg.String() {
			case "enter", "esc", " ":
				m.popups = m.popups[1:]
			}
			return m, nil
		}
		if msg.String() == "ctrl+r" {
			if m.activeTab == tabHistory {
				m.activeTab = tabAlarms
			} else {
				m.activeTab = tabHistory
				m.refresh()
			}
			return m, nil
		}
		if m.activeTab == tabHistory {
			if msg.String() == "esc" {
				m.activeTab = tabAlarms
				return m, nil
			}
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}
		if m.listFocused {
			return m.updateList(msg)
		}
		return m.updateForm(msg)
	}

	if !m.listFocused && m.activeTab == tabAlarms {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.listFocused = false
		m.pending.Blur()
		return m, m.inputs[m.focus].Focus()
	case "d", "delete":
		m.deleteSelected()
		return m, nil
	}
	var cmd tea.Cmd
	m.pending, cmd = m.pending.Update(msg)
	return m, cmd
}

func (m *Model) deleteSelected() {
	cursor := m.pending.Cursor()
	if cursor < 0 || cursor >= len(m.pendingIDs) {
		return
	}
	if err := m.svc.RemoveAlarm(m.pendingIDs[cursor]); err != nil {
		m.setStatus(fmt.Sprintf("Could not delete alarm: %v", err), true)
		return
	}
	m.setStatus("Alarm moved to history", false)
	m.refresh()
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+l":
		m.inputs[m.focus].Blur()
		m.listFocused = true
		m.pending.Focus()
		return m, nil
	case "tab", "down":
		return m, m.moveFocus(1)
	case "shift+tab", "up":
		return m, m.moveFocus(-1)
	case "enter":
		m.submit()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if m.focus >= fieldLinks {
		m.svc.SetLinks(m.links())
	}
	return m, cmd
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	return m.inputs[m.focus].Focus()
}

func (m *Model) links() [model.MaxLinkSlots]model.Link {
	var out [model.MaxLinkSlots]model.Link
	for i := range out {
		out[i] = model.Link{
			Title: m.inputs[fieldLinks+2*i].Value(),
			URL:   m.inputs[fieldLinks+2*i+1].Value(),
		}
	}
	return out
}

func (m *Model) submit() {
	fields, err := alarm.ParseFields(
		m.inputs[fieldYear].Value(),
		m.inputs[fieldMonth].Value(),
		m.inputs[fieldDay].Value(),
		m.inputs[fieldHour].Value(),
		m.inputs[fieldMinute].Value(),
	)
	if err == nil {
		m.svc.SetLinks(m.links())
		var a model.Alarm
		a, err = m.svc.AddAlarm(fields[0], fields[1], fields[2], fields[3], fields[4], m.inputs[fieldNote].Value())
		if err == nil {
			m.setStatus("Alarm set for "+a.Time, false)
			m.inputs[fieldNote].SetValue("")
			m.refresh()
			return
		}
	}

	var verr *alarm.ValidationError
	if errors.As(err, &verr) {
		m.setStatus("Invalid date/time: "+verr.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("Could not save alarm: %v", err), true)
	m.refresh()
}

func (m Model) View() string {
	var b strings.Builder

	tabs := []string{"Alarms", "History"}
	var rendered []string
	for i, t := range tabs {
		if i == m.activeTab {
			rendered = append(rendered, activeTabStyle.Render(t))
		} else {
			rendered = append(rendered, tabStyle.Render(t))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n\n")

	if len(m.popups) > 0 {
		b.WriteString(m.popupView(m.popups[0]))
		if rest := len(m.popups) - 1; rest > 0 {
			b.WriteString(labelStyle.Render(fmt.Sprintf("\n%d more alarm(s) waiting", rest)))
		}
		return b.String()
	}

	if m.activeTab == tabHistory {
		b.WriteString(headerStyle.Render("History"))
		b.WriteString("\n")
		b.WriteString(m.history.View())
		b.WriteString("\n")
		b.WriteString(helpLine("ctrl+r", "back", "ctrl+c", "quit"))
		return b.String()
	}

	b.WriteString(m.formView())
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Pending"))
	b.WriteString("\n")
	b.WriteString(m.pending.View())
	b.WriteString("\n")
	if m.status != "" {
		if m.statusErr {
			b.WriteString(errStyle.Render(m.status))
		} else {
			b.WriteString(okStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	if m.listFocused {
		b.WriteString(helpLine("d", "delete", "esc", "form", "ctrl+r", "history", "ctrl+c", "quit"))
	} else {
		b.WriteString(helpLine("tab", "next", "enter", "add alarm", "ctrl+l", "list", "ctrl+r", "history", "ctrl+c", "quit"))
	}
	return b.String()
}

func (m Model) formView() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Date "))
	b.WriteString(m.inputs[fieldYear].View())
	b.WriteString("-")
	b.WriteString(m.inputs[fieldMonth].View())
	b.WriteString("-")
	b.WriteString(m.inputs[fieldDay].View())
	b.WriteString(labelStyle.Render("  Time "))
	b.WriteString(m.inputs[fieldHour].View())
	b.WriteString(":")
	b.WriteString(m.inputs[fieldMinute].View())
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Note "))
	b.WriteString(m.inputs[fieldNote].View())
	b.WriteString("\n")
	for i := 0; i < model.MaxLinkSlots; i++ {
		b.WriteString(labelStyle.Render(fmt.Sprintf("Link %d ", i+1)))
		b.WriteString(m.inputs[fieldLinks+2*i].View())
		b.WriteString(labelStyle.Render(" | "))
		b.WriteString(m.inputs[fieldLinks+2*i+1].View())
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) popupView(evt notify.DueEvent) string {
	note := evt.Note
	if note == "" {
		note = "(none)"
	}
	lines := []string{
		"⏰ Alarm",
		"Time: " + evt.Time,
		"Note: " + note,
	}
	for _, l := range evt.Links {
		if l.URL == "" {
			continue
		}
		title := l.Title
		if title == "" {
			title = "(untitled)"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", title, l.URL))
	}
	lines = append(lines, "", "[enter] got it")
	return popupStyle.Render(strings.Join(lines, "\n"))
}

func helpLine(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, keyStyle.Render(pairs[i])+" "+labelStyle.Render(pairs[i+1]))
	}
	return strings.Join(parts, labelStyle.Render(" • "))
}
