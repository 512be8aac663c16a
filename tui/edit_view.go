package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dialdeck/db"
)

// editFields are the audited fields the form exposes, in display order.
var editFields = []string{"name", "company", "phone", "email", "title", "address", "city", "notes"}

func (m Model) renderEditView() string {
	contact := m.session.Current()
	if contact == nil {
		return "No contact selected\n\n" + helpStyle.Render("Esc: Back")
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("EDIT CONTACT"))
	s.WriteString("\n\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if m.err != nil {
		s.WriteString(warnStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("Tab: Next field • Enter: Save • Esc: Cancel"))

	return s.String()
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ModeDetail
		return m, nil
	case "tab":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab":
		m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		return m.saveEdits()
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m *Model) initEditForm() {
	contact := m.session.Current()
	if contact == nil {
		return
	}

	current := map[string]string{
		"name":    contact.Name,
		"company": contact.Company,
		"phone":   contact.Phone,
		"email":   contact.Email,
		"title":   contact.Title,
		"address": contact.Address,
		"city":    contact.City,
		"notes":   contact.Notes,
	}

	m.formInputs = make([]textinput.Model, len(editFields))
	for i, field := range editFields {
		input := textinput.New()
		input.Placeholder = field
		input.SetValue(current[field])
		input.CharLimit = 200
		m.formInputs[i] = input
	}

	m.focusIndex = 0
	m.updateFormFocus()
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

// saveEdits writes only the fields that actually changed, each as an
// audited mutation.
func (m Model) saveEdits() (tea.Model, tea.Cmd) {
	contact := m.session.Current()
	if contact == nil {
		m.viewMode = ModeList
		return m, nil
	}

	current := map[string]string{
		"name":    contact.Name,
		"company": contact.Company,
		"phone":   contact.Phone,
		"email":   contact.Email,
		"title":   contact.Title,
		"address": contact.Address,
		"city":    contact.City,
		"notes":   contact.Notes,
	}

	var changes []db.FieldChange
	for i, field := range editFields {
		value := strings.TrimSpace(m.formInputs[i].Value())
		if field == "phone" && value != "" {
			value = db.NormalizePhone(value)
		}
		if value != current[field] {
			changes = append(changes, db.FieldChange{Field: field, Value: value})
		}
	}

	if len(changes) > 0 {
		entries, err := db.ApplyChanges(m.session.DB, contact.ExternalRowID, changes, db.MutationOptions{Now: time.Now()})
		if err != nil {
			m.err = err
			return m, nil
		}
		m.status = fmt.Sprintf("Saved %d change(s)", len(entries))
	}

	if err := m.session.Reload(); err != nil {
		m.err = err
	}
	m.viewMode = ModeDetail
	return m, nil
}
