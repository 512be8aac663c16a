package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/views"
)

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DIALDECK"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	s.WriteString(m.renderContactsTable())
	s.WriteString("\n\n")

	if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString(warnStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string
	for i, name := range views.Names {
		if i == m.viewIdx {
			rendered = append(rendered, tabActiveStyle.Render(name))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderContactsTable() string {
	contacts := m.session.Contacts()
	if len(contacts) == 0 {
		return "Nothing here. Switch views with Tab or import contacts."
	}

	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Company", Width: 20},
		{Title: "Phone", Width: 16},
		{Title: "Status", Width: 14},
		{Title: "Callback", Width: 10},
	}

	var rows []table.Row
	for i := range contacts {
		c := &contacts[i]
		callback := ""
		if c.CallbackOn != nil {
			callback = c.CallbackOn.Format(db.DateFormat)
		}
		rows = append(rows, table.Row{
			c.Name,
			c.Company,
			c.Phone,
			c.Status,
			callback,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(m.height-10),
	)

	if m.session.Cursor() < len(rows) {
		t.SetCursor(m.session.Cursor())
	}

	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch view",
		"Enter: Details",
		"d: Dial",
		"o: Outcome",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	m.err = nil

	switch msg.String() {
	case "up", "k":
		m.session.Prev()
	case "down", "j":
		m.session.Next()
	case "tab":
		m.viewIdx = (m.viewIdx + 1) % len(views.Names)
		if err := m.session.SelectView(views.Names[m.viewIdx]); err != nil {
			m.err = err
		}
	case "shift+tab":
		m.viewIdx = (m.viewIdx + len(views.Names) - 1) % len(views.Names)
		if err := m.session.SelectView(views.Names[m.viewIdx]); err != nil {
			m.err = err
		}
	case "enter":
		if m.session.Current() != nil {
			m.viewMode = ModeDetail
		}
	case "d":
		return m.startCall()
	case "o":
		if m.session.Current() != nil {
			m.viewMode = ModeOutcome
			m.outcomeIdx = 0
			m.outcomeDate = false
		}
	case "r":
		if err := m.session.Reload(); err != nil {
			m.err = err
		} else {
			m.status = fmt.Sprintf("Reloaded %d contact(s)", len(m.session.Contacts()))
		}
	}

	return m, nil
}
