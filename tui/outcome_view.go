package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
	"github.com/harperreed/dialdeck/outcome"
)

type outcomeChoice struct {
	trigger string
	label   string
	// needsDate marks outcomes that collect a date/time before applying.
	needsDate bool
}

var outcomeChoices = []outcomeChoice{
	{models.OutcomeNoAnswer, "No answer", false},
	{models.OutcomeCallBack, "Call back (pick date)", true},
	{models.OutcomeMeetingBooked, "Meeting booked (pick time)", true},
	{models.OutcomeBadNumber, "Bad number", false},
	{models.OutcomeDoNotCall, "Do not call", false},
	{models.OutcomePromote, "Promote to client", false},
	{models.OutcomeDemote, "Demote to cemetery", false},
	{models.OutcomeDelete, "Delete", false},
}

func (m Model) renderOutcomeView() string {
	contact := m.session.Current()
	if contact == nil {
		return "No contact selected\n\n" + helpStyle.Render("Esc: Back")
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("OUTCOME: " + contact.Phone))
	s.WriteString("\n\n")

	if m.outcomeDate {
		choice := outcomeChoices[m.outcomeIdx]
		s.WriteString(choice.label + "\n\n")
		if choice.trigger == models.OutcomeCallBack {
			s.WriteString("  Date (YYYY-MM-DD, or +3d):\n")
		} else {
			s.WriteString("  Time (YYYY-MM-DD HH:MM):\n")
		}
		s.WriteString("  " + m.outcomeInput.View() + "\n\n")
		s.WriteString(helpStyle.Render("Enter: Apply • Esc: Cancel"))
		return s.String()
	}

	for i, choice := range outcomeChoices {
		marker := "  "
		if i == m.outcomeIdx {
			marker = "> "
		}
		s.WriteString(fmt.Sprintf("%s%d. %s\n", marker, i+1, choice.label))
	}

	s.WriteString("\n")
	if m.err != nil {
		s.WriteString(warnStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("↑/↓: Select • Enter: Apply • Esc: Cancel (records no answer on live call)"))
	return s.String()
}

func (m Model) handleOutcomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.outcomeDate {
		switch msg.String() {
		case "esc":
			m.outcomeDate = false
			return m, nil
		case "enter":
			return m.applyOutcomeWithDate()
		}
		var cmd tea.Cmd
		m.outcomeInput, cmd = m.outcomeInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc":
		m.viewMode = ModeList
	case "up", "k":
		if m.outcomeIdx > 0 {
			m.outcomeIdx--
		}
	case "down", "j":
		if m.outcomeIdx < len(outcomeChoices)-1 {
			m.outcomeIdx++
		}
	case "1", "2", "3", "4", "5", "6", "7", "8":
		m.outcomeIdx = int(msg.String()[0] - '1')
		return m.chooseOutcome()
	case "enter":
		return m.chooseOutcome()
	}

	return m, nil
}

func (m Model) chooseOutcome() (tea.Model, tea.Cmd) {
	choice := outcomeChoices[m.outcomeIdx]
	if choice.needsDate {
		m.outcomeInput = textinput.New()
		if choice.trigger == models.OutcomeCallBack {
			m.outcomeInput.Placeholder = "+3d"
		} else {
			m.outcomeInput.Placeholder = time.Now().Format("2006-01-02") + " 14:00"
		}
		m.outcomeInput.Focus()
		m.outcomeDate = true
		return m, nil
	}
	return m.applyOutcome(outcome.Outcome{Trigger: choice.trigger})
}

func (m Model) applyOutcomeWithDate() (tea.Model, tea.Cmd) {
	choice := outcomeChoices[m.outcomeIdx]
	raw := strings.TrimSpace(m.outcomeInput.Value())
	out := outcome.Outcome{Trigger: choice.trigger}

	switch choice.trigger {
	case models.OutcomeCallBack:
		when, err := parseDateInput(raw)
		if err != nil {
			m.err = err
			m.outcomeDate = false
			return m, nil
		}
		out.CallbackOn = when
	case models.OutcomeMeetingBooked:
		when, err := time.ParseInLocation("2006-01-02 15:04", raw, time.Local)
		if err != nil {
			m.err = fmt.Errorf("expected YYYY-MM-DD HH:MM")
			m.outcomeDate = false
			return m, nil
		}
		out.MeetingAt = when
	}

	m.outcomeDate = false
	return m.applyOutcome(out)
}

func (m Model) applyOutcome(out outcome.Outcome) (tea.Model, tea.Cmd) {
	result, err := m.session.Record(context.Background(), out)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.status = fmt.Sprintf("Recorded outcome → %s (%d change(s))", result.Contact.Status, len(result.Entries))
	if len(result.Warnings) > 0 {
		m.status += " (" + strings.Join(result.Warnings, "; ") + ")"
	}
	m.viewMode = ModeList
	return m, nil
}

// parseDateInput accepts YYYY-MM-DD or a +Nd offset from today.
func parseDateInput(raw string) (time.Time, error) {
	if strings.HasPrefix(raw, "+") && strings.HasSuffix(raw, "d") {
		var days int
		if _, err := fmt.Sscanf(raw, "+%dd", &days); err == nil {
			now := time.Now()
			return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, days), nil
		}
	}
	when, err := time.ParseInLocation(db.DateFormat, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or +Nd")
	}
	return when, nil
}
