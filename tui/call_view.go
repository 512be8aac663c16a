package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dialdeck/models"
	"github.com/harperreed/dialdeck/voip"
)

type pollMsg struct{}

func pollTick() tea.Cmd {
	return tea.Tick(voip.PollInterval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

func (m Model) startCall() (tea.Model, tea.Cmd) {
	contact := m.session.Current()
	if contact == nil {
		return m, nil
	}

	callID, err := m.session.Dial(context.Background())
	if err != nil {
		m.err = err
		return m, nil
	}

	m.poller = voip.NewPoller(callID, m.session.Dialer.GetCallStatus)
	m.callState = models.CallDialing
	m.viewMode = ModeCall
	return m, pollTick()
}

func (m Model) handlePoll() (tea.Model, tea.Cmd) {
	if m.viewMode != ModeCall || m.poller == nil {
		return m, nil
	}

	_, state := m.poller.Poll(context.Background())
	m.callState = state

	if state == models.CallEnded || m.poller.Exhausted() {
		// Call is over; jump straight to the outcome menu.
		m.poller = nil
		m.viewMode = ModeOutcome
		m.outcomeIdx = 0
		m.outcomeDate = false
		return m, nil
	}
	return m, pollTick()
}

func (m Model) renderCallView() string {
	contact := m.session.Current()
	if contact == nil {
		return "No contact selected\n\n" + helpStyle.Render("Esc: Back")
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("CALLING"))
	s.WriteString("\n\n")

	name := contact.Name
	if name == "" {
		name = contact.Phone
	}
	s.WriteString(fmt.Sprintf("  %s\n  %s\n\n", name, contact.Phone))
	s.WriteString(fmt.Sprintf("  State: %s\n\n", stateIndicator(m.callState)))

	if m.err != nil {
		s.WriteString(warnStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("e: End call • o: Outcome now • Esc: Abandon"))
	return s.String()
}

func (m Model) handleCallKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "e":
		if err := m.session.Hangup(context.Background()); err != nil {
			m.err = err
		}
		m.poller = nil
		m.viewMode = ModeOutcome
		m.outcomeIdx = 0
		m.outcomeDate = false
	case "o":
		m.viewMode = ModeOutcome
		m.outcomeIdx = 0
		m.outcomeDate = false
	case "esc":
		_ = m.session.Hangup(context.Background())
		m.poller = nil
		m.viewMode = ModeList
	}
	return m, nil
}

func stateIndicator(state string) string {
	switch state {
	case models.CallDialing:
		return "⚫ dialing"
	case models.CallRinging:
		return "🔔 ringing"
	case models.CallConnected:
		return "🟢 connected"
	case models.CallEnded:
		return "⭕ ended"
	default:
		return "❓ unknown"
	}
}
