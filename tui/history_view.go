package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
)

func (m Model) renderHistoryView() string {
	contact := m.session.Current()
	if contact == nil {
		return "No contact selected\n\n" + helpStyle.Render("Esc: Back")
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("HISTORY: " + contact.Phone))
	s.WriteString("\n\n")

	entries, err := db.ListHistory(m.session.DB, contact.ExternalRowID, 50)
	if err != nil {
		return s.String() + warnStyle.Render("Error: "+err.Error())
	}
	if len(entries) == 0 {
		s.WriteString("No edits recorded yet.\n\n")
		s.WriteString(helpStyle.Render("Esc: Back"))
		return s.String()
	}

	row := historyBound(entries, m.historyRow)
	for i, entry := range entries {
		marker := "  "
		if i == row {
			marker = "> "
		}
		s.WriteString(fmt.Sprintf("%s#%d  %s  %s: %q → %q\n",
			marker, entry.Seq, entry.Timestamp.Format("2006-01-02 15:04"),
			entry.FieldName, entry.OldValue, entry.NewValue))
	}

	s.WriteString("\n")
	if m.proposal != nil {
		s.WriteString(warnStyle.Render(fmt.Sprintf(
			"Revert %s from %q back to %q? (y/n)",
			m.proposal.FieldName, m.proposal.CurrentValue, m.proposal.RestoreValue)))
		s.WriteString("\n")
	}
	if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString(warnStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("↑/↓: Select • r: Revert • Esc: Back"))
	return s.String()
}

func (m Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	contact := m.session.Current()
	if contact == nil {
		m.viewMode = ModeList
		return m, nil
	}

	// A pending proposal owns the keyboard until confirmed or dropped.
	if m.proposal != nil {
		switch msg.String() {
		case "y", "Y":
			return m.commitRevert()
		default:
			m.proposal = nil
			m.status = "Revert cancelled"
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.viewMode = ModeDetail
	case "up", "k":
		if m.historyRow > 0 {
			m.historyRow--
		}
	case "down", "j":
		m.historyRow++
	case "r":
		return m.proposeRevert()
	}

	return m, nil
}

func (m Model) proposeRevert() (tea.Model, tea.Cmd) {
	contact := m.session.Current()
	m.status = ""
	m.err = nil

	entries, err := db.ListHistory(m.session.DB, contact.ExternalRowID, 50)
	if err != nil {
		m.err = err
		return m, nil
	}
	if m.historyRow >= len(entries) {
		return m, nil
	}

	proposal, err := db.ProposeRevert(m.session.DB, contact.ExternalRowID, entries[m.historyRow].Seq)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.proposal = proposal
	return m, nil
}

func (m Model) commitRevert() (tea.Model, tea.Cmd) {
	proposal := m.proposal
	m.proposal = nil

	entry, err := db.CommitRevert(m.session.DB, proposal, proposal.Token)
	if err != nil {
		m.err = err
		return m, nil
	}

	if entry == nil {
		m.status = "No change (value already current)"
	} else {
		m.status = fmt.Sprintf("Reverted %s to %q", entry.FieldName, entry.NewValue)
	}
	if err := m.session.Reload(); err != nil {
		m.err = err
	}
	return m, nil
}

// historyBound clamps the cursor after the list shrinks.
func historyBound(entries []models.HistoryEntry, row int) int {
	if row >= len(entries) {
		return len(entries) - 1
	}
	return row
}
