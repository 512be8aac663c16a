// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Full-screen dialing workflow: views, detail, outcomes, edits, history, live calls
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/session"
	"github.com/harperreed/dialdeck/voip"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ModeList ViewMode = iota
	ModeDetail
	ModeOutcome
	ModeEdit
	ModeHistory
	ModeCall
)

// Model is the main bubbletea model. Navigation state lives on the session;
// the model owns only presentation state.
type Model struct {
	session *session.Session

	viewMode ViewMode
	viewIdx  int // index into views.Names for the tab bar

	// Outcome menu state
	outcomeIdx   int
	outcomeInput textinput.Model
	outcomeDate  bool // collecting a date/time for the chosen outcome

	// Edit view state
	formInputs []textinput.Model
	focusIndex int

	// History view state
	historyRow int
	proposal   *db.RevertProposal

	// Call view state
	poller    *voip.Poller
	callState string

	// UI state
	width  int
	height int
	status string
	err    error
}

// NewModel creates the TUI model around a started session.
func NewModel(sess *session.Session) Model {
	return Model{
		session: sess,
		width:   80,
		height:  24,
	}
}

// Run starts the full-screen program.
func Run(sess *session.Session) error {
	p := tea.NewProgram(NewModel(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// idleDrainInterval is how often parked remote operations are retried
// while the operator sits on the list view.
const idleDrainInterval = time.Minute

type idleDrainMsg struct{}

func idleDrainTick() tea.Cmd {
	return tea.Tick(idleDrainInterval, func(time.Time) tea.Msg {
		return idleDrainMsg{}
	})
}

func (m Model) Init() tea.Cmd {
	return idleDrainTick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case pollMsg:
		return m.handlePoll()
	case idleDrainMsg:
		// Only drain while idle on the list; a live call owns the remote.
		if m.viewMode == ModeList {
			m.session.DrainPending(context.Background())
		}
		return m, idleDrainTick()
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ModeList:
		return m.renderListView()
	case ModeDetail:
		return m.renderDetailView()
	case ModeOutcome:
		return m.renderOutcomeView()
	case ModeEdit:
		return m.renderEditView()
	case ModeHistory:
		return m.renderHistoryView()
	case ModeCall:
		return m.renderCallView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Text-entry modes own the keyboard except for escape.
	entering := m.viewMode == ModeEdit || (m.viewMode == ModeOutcome && m.outcomeDate)
	if !entering {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}

	switch m.viewMode {
	case ModeList:
		return m.handleListKeys(msg)
	case ModeDetail:
		return m.handleDetailKeys(msg)
	case ModeOutcome:
		return m.handleOutcomeKeys(msg)
	case ModeEdit:
		return m.handleEditKeys(msg)
	case ModeHistory:
		return m.handleHistoryKeys(msg)
	case ModeCall:
		return m.handleCallKeys(msg)
	}

	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)
