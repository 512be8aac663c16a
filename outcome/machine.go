// ABOUTME: Outcome state machine mapping call/edit outcomes to status transitions
// ABOUTME: Commits status and field writes atomically with their history entries
package outcome

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
)

// Calendar is the reconciler surface the machine drives. Implementations
// must be idempotent on (contact, slot) and must degrade failures to a
// queued retry, returning the error only as a warning signal.
type Calendar interface {
	UpsertEvent(ctx context.Context, contact *models.Contact, slot string, when time.Time) (string, error)
	CancelEvent(ctx context.Context, contact *models.Contact, slot, eventID string) error
}

// Outcome is a recorded call or edit outcome.
type Outcome struct {
	Trigger    string // models.Outcome constant; empty means the no-input default
	CallbackOn time.Time
	MeetingAt  time.Time
	Note       string // optional operator note appended with the transition
}

// Result reports what a transition did.
type Result struct {
	Contact  *models.Contact
	Entries  []models.HistoryEntry
	Warnings []string
}

// Machine applies outcomes against the contact store. Cal may be nil when
// calendar integration is not configured.
type Machine struct {
	DB  *sql.DB
	Cal Calendar
	Now func() time.Time
}

func NewMachine(database *sql.DB, cal Calendar) *Machine {
	return &Machine{DB: database, Cal: cal, Now: time.Now}
}

// Apply records an outcome for a contact. The status write and every field
// write commit in one transaction with their history entries; calendar side
// effects never roll back the local transition.
func (m *Machine) Apply(ctx context.Context, contactID string, outcome Outcome) (*Result, error) {
	contact, err := db.GetContact(m.DB, contactID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(contact.Status) {
		return nil, &models.ConflictError{ContactID: contactID, Status: contact.Status}
	}

	now := m.Now()
	trigger := outcome.Trigger
	if trigger == "" {
		// No selection defaults to no_answer.
		trigger = models.OutcomeNoAnswer
	}

	var changes []db.FieldChange
	var warnings []string
	opts := db.MutationOptions{TouchLastCall: true, Now: now}

	switch trigger {
	case models.OutcomeNoAnswer:
		note := fmt.Sprintf("%s ~ no answer", now.Format(db.DateFormat))
		if outcome.Note != "" {
			note = outcome.Note
		}
		changes = append(changes,
			db.FieldChange{Field: "status", Value: models.StatusNoAnswer},
			db.FieldChange{Field: "notes", Value: contact.AppendNote(note, now)},
		)

	case models.OutcomeCallBack:
		if outcome.CallbackOn.IsZero() {
			return nil, &models.ValidationError{Field: "callback_on", Reason: "callback date is required"}
		}
		changes = append(changes,
			db.FieldChange{Field: "status", Value: models.StatusCallback},
			db.FieldChange{Field: "callback_on", Value: outcome.CallbackOn.Format(db.DateFormat)},
		)
		changes, warnings = m.upsertSlot(ctx, contact, models.SlotCallback, outcome.CallbackOn, changes, warnings)
		note := fmt.Sprintf("callback scheduled for %s", outcome.CallbackOn.Format(db.DateFormat))
		changes = append(changes, db.FieldChange{Field: "notes", Value: contact.AppendNote(note, now)})

	case models.OutcomeMeetingBooked:
		if outcome.MeetingAt.IsZero() {
			return nil, &models.ValidationError{Field: "meeting_at", Reason: "meeting time is required"}
		}
		changes = append(changes,
			db.FieldChange{Field: "status", Value: models.StatusMeetingBooked},
			db.FieldChange{Field: "meeting_at", Value: outcome.MeetingAt.Format(time.RFC3339)},
		)
		changes, warnings = m.upsertSlot(ctx, contact, models.SlotMeeting, outcome.MeetingAt, changes, warnings)
		note := fmt.Sprintf("meeting booked on %s", outcome.MeetingAt.Format("2006-01-02 15:04"))
		changes = append(changes, db.FieldChange{Field: "notes", Value: contact.AppendNote(note, now)})

	case models.OutcomeBadNumber:
		changes, warnings = m.terminalChanges(ctx, contact, models.StatusBadNumber, warnings)
		opts.SetArchived = true

	case models.OutcomeDoNotCall:
		changes, warnings = m.terminalChanges(ctx, contact, models.StatusDoNotCall, warnings)
		opts.SetArchived = true

	case models.OutcomeDelete:
		changes, warnings = m.terminalChanges(ctx, contact, models.StatusDeleted, warnings)
		opts.SetArchived = true

	case models.OutcomePromote:
		changes, warnings = m.terminalChanges(ctx, contact, models.StatusCloseWon, warnings)
		changes = append(changes, db.FieldChange{Field: "notes", Value: contact.AppendNote("promoted to client", now)})
		opts.SetArchived = true

	case models.OutcomeDemote:
		changes, warnings = m.terminalChanges(ctx, contact, models.StatusCloseLost, warnings)
		changes = append(changes, db.FieldChange{Field: "notes", Value: contact.AppendNote("moved to cemetery", now)})
		opts.SetArchived = true

	default:
		return nil, &models.ValidationError{Field: "outcome", Reason: "unknown outcome " + trigger}
	}

	entries, err := db.ApplyChanges(m.DB, contactID, changes, opts)
	if err != nil {
		return nil, err
	}

	updated, err := db.GetContact(m.DB, contactID)
	if err != nil {
		return nil, err
	}

	return &Result{Contact: updated, Entries: entries, Warnings: warnings}, nil
}

// upsertSlot attempts the remote calendar upsert before the local commit so
// a returned event id lands in the same mutation as the field that caused
// it. A failure enqueues a retry inside the reconciler and degrades to a
// warning here.
func (m *Machine) upsertSlot(ctx context.Context, contact *models.Contact, slot string, when time.Time, changes []db.FieldChange, warnings []string) ([]db.FieldChange, []string) {
	if m.Cal == nil {
		return changes, warnings
	}
	eventID, err := m.Cal.UpsertEvent(ctx, contact, slot, when)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("calendar %s event queued for retry: %v", slot, err))
		return changes, warnings
	}
	changes = append(changes, db.FieldChange{Field: slotEventField(slot), Value: eventID})
	return changes, warnings
}

// terminalChanges builds the field writes shared by all terminal
// transitions: the status change, cleared scheduling fields, and cancelled
// calendar linkage.
func (m *Machine) terminalChanges(ctx context.Context, contact *models.Contact, status string, warnings []string) ([]db.FieldChange, []string) {
	changes := []db.FieldChange{
		{Field: "status", Value: status},
		{Field: "callback_on", Value: ""},
		{Field: "meeting_at", Value: ""},
	}

	for slot, eventID := range map[string]string{
		models.SlotCallback: contact.GCalCallbackEventID,
		models.SlotMeeting:  contact.GCalMeetingEventID,
	} {
		if eventID == "" {
			continue
		}
		if m.Cal != nil {
			if err := m.Cal.CancelEvent(ctx, contact, slot, eventID); err != nil {
				warnings = append(warnings, fmt.Sprintf("calendar %s cancel queued for retry: %v", slot, err))
			}
		}
		changes = append(changes, db.FieldChange{Field: slotEventField(slot), Value: ""})
	}

	return changes, warnings
}

func slotEventField(slot string) string {
	if slot == models.SlotMeeting {
		return "gcal_meeting_event_id"
	}
	return "gcal_callback_event_id"
}
