// ABOUTME: Data models for dialer CRM entities
// ABOUTME: Defines Contact, HistoryEntry, QueuedOperation structs and status enums
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Contact statuses. A contact is always in exactly one of these.
const (
	StatusNew           = "new"
	StatusNoAnswer      = "no_answer"
	StatusCallback      = "callback"
	StatusMeetingBooked = "meeting_booked"
	StatusCloseWon      = "close_won"
	StatusCloseLost     = "close_lost"
	StatusDoNotCall     = "do_not_call"
	StatusBadNumber     = "bad_number"
	StatusDeleted       = "deleted"
)

// TerminalStatuses are statuses with no further active-pipeline action.
// Contacts in these statuses are excluded from active navigation views.
var TerminalStatuses = map[string]bool{
	StatusCloseWon:  true,
	StatusCloseLost: true,
	StatusDoNotCall: true,
	StatusBadNumber: true,
	StatusDeleted:   true,
}

// AllStatuses lists every valid contact status.
var AllStatuses = []string{
	StatusNew, StatusNoAnswer, StatusCallback, StatusMeetingBooked,
	StatusCloseWon, StatusCloseLost, StatusDoNotCall, StatusBadNumber,
	StatusDeleted,
}

// IsValidStatus reports whether s is a member of the status set.
func IsValidStatus(s string) bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether s is a terminal status.
func IsTerminalStatus(s string) bool {
	return TerminalStatuses[s]
}

type Contact struct {
	ExternalRowID       string     `json:"external_row_id"`
	Name                string     `json:"name,omitempty"`
	Company             string     `json:"company,omitempty"`
	Phone               string     `json:"phone"`
	Email               string     `json:"email,omitempty"`
	Title               string     `json:"title,omitempty"`
	Address             string     `json:"address,omitempty"`
	City                string     `json:"city,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	Status              string     `json:"status"`
	CallbackOn          *time.Time `json:"callback_on,omitempty"` // date precision
	MeetingAt           *time.Time `json:"meeting_at,omitempty"`
	GCalCallbackEventID string     `json:"gcal_callback_event_id,omitempty"`
	GCalMeetingEventID  string     `json:"gcal_meeting_event_id,omitempty"`
	GCalCalendarID      string     `json:"gcal_calendar_id,omitempty"`
	LastCallAt          *time.Time `json:"last_call_at,omitempty"`
	LastSMSAt           *time.Time `json:"last_sms_at,omitempty"`
	SMSHistory          string     `json:"sms_history,omitempty"`
	ArchivedAt          *time.Time `json:"archived_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Archived reports whether the contact has been moved to the archive partition.
func (c *Contact) Archived() bool {
	return c.ArchivedAt != nil
}

// Active reports whether the contact participates in active navigation views.
func (c *Contact) Active() bool {
	return !IsTerminalStatus(c.Status)
}

// AppendNote returns the notes field with a timestamped note appended in the
// "[YYYY-MM-DD HH:MM] text" format, separated from existing notes by "; ".
func (c *Contact) AppendNote(text string, at time.Time) string {
	entry := fmt.Sprintf("[%s] %s", at.Format("2006-01-02 15:04"), text)
	if c.Notes == "" {
		return entry
	}
	return c.Notes + "; " + entry
}

// ExternalRowID derives the stable contact identity from the source file
// path and the original row content. Immutable once assigned.
func ExternalRowID(sourcePath string, rowIndex int, rowContent string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", sourcePath, rowIndex, rowContent)))
	return hex.EncodeToString(h[:8])
}

type HistoryEntry struct {
	ContactID string    `json:"contact_id"`
	Seq       int64     `json:"seq"` // monotonically increasing per contact
	FieldName string    `json:"field_name"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSlot identifies which calendar linkage an operation targets.
const (
	SlotCallback = "callback"
	SlotMeeting  = "meeting"
)

// Queued operation kinds.
const (
	OpUpsertEvent = "upsert_event"
	OpCancelEvent = "cancel_event"
)

type QueuedOperation struct {
	ID           string    `json:"id"` // ulid, sortable by enqueue time
	Kind         string    `json:"kind"`
	ContactID    string    `json:"contact_id"`
	Slot         string    `json:"slot"`
	Payload      string    `json:"payload,omitempty"` // event id for cancels, RFC3339 time for upserts
	AttemptCount int       `json:"attempt_count"`
	Failed       bool      `json:"failed"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Call states reported by the telephony collaborator.
const (
	CallDialing   = "dialing"
	CallRinging   = "ringing"
	CallConnected = "connected"
	CallEnded     = "ended"
	CallUnknown   = "unknown"
)

// Outcome triggers accepted by the state machine.
const (
	OutcomeBadNumber     = "bad_number"
	OutcomeNoAnswer      = "no_answer"
	OutcomeCallBack      = "call_back"
	OutcomeMeetingBooked = "meeting_booked"
	OutcomeDoNotCall     = "do_not_call"
	OutcomePromote       = "promote"
	OutcomeDemote        = "demote"
	OutcomeDelete        = "delete"
)
