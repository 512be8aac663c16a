// ABOUTME: Dialing session state: active view, explicit cursor, call lifecycle
// ABOUTME: Drains the operation queue at start and routes outcomes through the state machine
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
	"github.com/harperreed/dialdeck/outcome"
	"github.com/harperreed/dialdeck/queue"
	"github.com/harperreed/dialdeck/views"
)

// Dialer is the telephony surface a session drives.
type Dialer interface {
	PlaceCall(ctx context.Context, number string) (string, error)
	GetCallStatus(ctx context.Context, callID string) (string, error)
	EndCall(ctx context.Context, callID string) error
	SendSMS(ctx context.Context, number, message string) error
}

// Session walks one priority view with an explicit cursor. The cursor is
// session state, never ambient: every navigation and mutation goes through
// it so the active contact is always well defined.
type Session struct {
	DB      *sql.DB
	Machine *outcome.Machine
	Dialer  Dialer
	Queue   *queue.Queue
	Exec    queue.Executor

	view     string
	contacts []models.Contact
	cursor   int

	activeCallID string
}

func New(database *sql.DB, machine *outcome.Machine, dialer Dialer, q *queue.Queue, exec queue.Executor) *Session {
	return &Session{
		DB:      database,
		Machine: machine,
		Dialer:  dialer,
		Queue:   q,
		Exec:    exec,
		view:    views.ViewToday,
	}
}

// Start drains any parked remote operations, then loads the initial view.
// Drain failures are logged, not fatal: parked work waits for the next run.
func (s *Session) Start(ctx context.Context) error {
	if s.Queue != nil && s.Exec != nil {
		result, err := s.Queue.Drain(ctx, s.Exec)
		if err != nil {
			log.Printf("queue drain interrupted: %v", err)
		} else if result.Succeeded > 0 || result.Retained > 0 || len(result.Failed) > 0 {
			log.Printf("queue drain: %d succeeded, %d retained, %d failed permanently",
				result.Succeeded, result.Retained, len(result.Failed))
		}
	}
	return s.SelectView(s.view)
}

// DrainPending replays parked remote operations. Runs opportunistically
// while the operator is idle; anything that fails stays queued.
func (s *Session) DrainPending(ctx context.Context) {
	if s.Queue == nil || s.Exec == nil {
		return
	}
	if _, err := s.Queue.Drain(ctx, s.Exec); err != nil {
		log.Printf("queue drain interrupted: %v", err)
	}
}

// SelectView switches the active view and resets the cursor.
func (s *Session) SelectView(name string) error {
	contacts, err := s.loadView(name)
	if err != nil {
		return err
	}
	s.view = name
	s.contacts = contacts
	s.cursor = 0
	return nil
}

// Reload refreshes the current view, clamping the cursor to the new bounds.
func (s *Session) Reload() error {
	contacts, err := s.loadView(s.view)
	if err != nil {
		return err
	}
	s.contacts = contacts
	if s.cursor >= len(contacts) {
		s.cursor = len(contacts) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	return nil
}

func (s *Session) loadView(name string) ([]models.Contact, error) {
	all, err := db.ListContacts(s.DB, db.ListFilter{})
	if err != nil {
		return nil, err
	}
	return views.ByName(name, all, time.Now()), nil
}

func (s *Session) View() string                { return s.view }
func (s *Session) Contacts() []models.Contact { return s.contacts }
func (s *Session) Cursor() int                { return s.cursor }

// Current returns the contact under the cursor, or nil on an empty view.
func (s *Session) Current() *models.Contact {
	if len(s.contacts) == 0 {
		return nil
	}
	return &s.contacts[s.cursor]
}

// Next advances the cursor, stopping at the end of the view.
func (s *Session) Next() *models.Contact {
	if s.cursor < len(s.contacts)-1 {
		s.cursor++
	}
	return s.Current()
}

// Prev moves the cursor back, stopping at the start.
func (s *Session) Prev() *models.Contact {
	if s.cursor > 0 {
		s.cursor--
	}
	return s.Current()
}

// Seek moves the cursor to the contact with the given id if present.
func (s *Session) Seek(contactID string) bool {
	for i := range s.contacts {
		if s.contacts[i].ExternalRowID == contactID {
			s.cursor = i
			return true
		}
	}
	return false
}

// Dial places a call to the current contact and remembers the call id.
func (s *Session) Dial(ctx context.Context) (string, error) {
	contact := s.Current()
	if contact == nil {
		return "", fmt.Errorf("no contact selected")
	}
	if s.Dialer == nil {
		return "", fmt.Errorf("telephony not configured")
	}

	callID, err := s.Dialer.PlaceCall(ctx, contact.Phone)
	if err != nil {
		return "", err
	}
	s.activeCallID = callID
	return callID, nil
}

// ActiveCallID returns the in-flight call id, empty when idle.
func (s *Session) ActiveCallID() string {
	return s.activeCallID
}

// Hangup ends the in-flight call if any.
func (s *Session) Hangup(ctx context.Context) error {
	if s.activeCallID == "" {
		return nil
	}
	err := s.Dialer.EndCall(ctx, s.activeCallID)
	s.activeCallID = ""
	return err
}

// Record applies an outcome to the current contact and refreshes the view.
// The cursor stays in place so the operator lands on the next candidate.
func (s *Session) Record(ctx context.Context, out outcome.Outcome) (*outcome.Result, error) {
	contact := s.Current()
	if contact == nil {
		return nil, fmt.Errorf("no contact selected")
	}

	s.activeCallID = ""
	result, err := s.Machine.Apply(ctx, contact.ExternalRowID, out)
	if err != nil {
		return nil, err
	}
	if err := s.Reload(); err != nil {
		return result, err
	}
	return result, nil
}

// SendSMS sends message to the current contact and logs it on the record.
func (s *Session) SendSMS(ctx context.Context, message string) error {
	contact := s.Current()
	if contact == nil {
		return fmt.Errorf("no contact selected")
	}
	if s.Dialer == nil {
		return fmt.Errorf("telephony not configured")
	}

	if err := s.Dialer.SendSMS(ctx, contact.Phone, message); err != nil {
		return err
	}
	return db.RecordSMS(s.DB, contact.ExternalRowID, message, time.Now())
}
