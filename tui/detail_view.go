package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dialdeck/db"
)

func (m Model) renderDetailView() string {
	contact := m.session.Current()
	if contact == nil {
		return "No contact selected\n\n" + helpStyle.Render("Esc: Back")
	}

	var s strings.Builder

	name := contact.Name
	if name == "" {
		name = contact.Phone
	}
	s.WriteString(titleStyle.Render(name))
	s.WriteString("\n\n")

	write := func(label, value string) {
		if value != "" {
			s.WriteString(fmt.Sprintf("  %-10s %s\n", label, value))
		}
	}

	write("Status", contact.Status)
	write("Company", contact.Company)
	write("Title", contact.Title)
	write("Phone", contact.Phone)
	write("Email", contact.Email)
	write("Address", contact.Address)
	write("City", contact.City)
	if contact.CallbackOn != nil {
		write("Callback", contact.CallbackOn.Format(db.DateFormat))
	}
	if contact.MeetingAt != nil {
		write("Meeting", contact.MeetingAt.Format("2006-01-02 15:04"))
	}
	if contact.LastCallAt != nil {
		write("Last call", contact.LastCallAt.Format("2006-01-02 15:04"))
	}
	if contact.LastSMSAt != nil {
		write("Last SMS", contact.LastSMSAt.Format("2006-01-02 15:04"))
	}
	write("ID", contact.ExternalRowID)

	if contact.Notes != "" {
		s.WriteString("\n  Notes:\n")
		for _, line := range strings.Split(contact.Notes, "; ") {
			s.WriteString("    " + line + "\n")
		}
	}

	s.WriteString("\n")
	if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString(warnStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}

	help := []string{
		"d: Dial",
		"o: Outcome",
		"e: Edit",
		"h: History",
		"←/→: Prev/Next",
		"Esc: Back",
	}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))

	return s.String()
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	m.err = nil

	switch msg.String() {
	case "esc":
		m.viewMode = ModeList
	case "left":
		m.session.Prev()
	case "right":
		m.session.Next()
	case "h":
		return m.openHistory()
	case "d":
		return m.startCall()
	case "o":
		m.viewMode = ModeOutcome
		m.outcomeIdx = 0
		m.outcomeDate = false
	case "e":
		m.initEditForm()
		m.viewMode = ModeEdit
	}

	return m, nil
}

func (m Model) openHistory() (tea.Model, tea.Cmd) {
	m.viewMode = ModeHistory
	m.historyRow = 0
	m.proposal = nil
	return m, nil
}
