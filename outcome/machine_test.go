// ABOUTME: Tests for the outcome state machine
// ABOUTME: Covers transitions, calendar side effects, and degradation to warnings
package outcome

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
)

type calendarCall struct {
	op        string
	contactID string
	slot      string
	when      time.Time
	eventID   string
}

// fakeCalendar records calls and can be told to fail.
type fakeCalendar struct {
	calls      []calendarCall
	upsertErr  error
	cancelErr  error
	nextEvent  string
	upsertSeen int
}

func (f *fakeCalendar) UpsertEvent(_ context.Context, contact *models.Contact, slot string, when time.Time) (string, error) {
	f.upsertSeen++
	f.calls = append(f.calls, calendarCall{op: "upsert", contactID: contact.ExternalRowID, slot: slot, when: when})
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	if f.nextEvent == "" {
		f.nextEvent = "evt-1"
	}
	return f.nextEvent, nil
}

func (f *fakeCalendar) CancelEvent(_ context.Context, contact *models.Contact, slot, eventID string) error {
	f.calls = append(f.calls, calendarCall{op: "cancel", contactID: contact.ExternalRowID, slot: slot, eventID: eventID})
	return f.cancelErr
}

func setupMachine(t *testing.T, cal Calendar) (*Machine, *sql.DB) {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	m := NewMachine(database, cal)
	m.Now = func() time.Time { return time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC) }
	return m, database
}

func seedContact(t *testing.T, database *sql.DB, id string) {
	t.Helper()
	require.NoError(t, db.CreateContact(database, &models.Contact{
		ExternalRowID: id,
		Name:          "Jane Prospect",
		Company:       "Acme Corp",
		Phone:         "+13125551234",
		Email:         "jane@acme.example",
		Status:        models.StatusNew,
	}))
}

func TestApplyDefaultsToNoAnswer(t *testing.T) {
	m, database := setupMachine(t, nil)
	seedContact(t, database, "c-1")

	result, err := m.Apply(context.Background(), "c-1", Outcome{})
	require.NoError(t, err)

	assert.Equal(t, models.StatusNoAnswer, result.Contact.Status)
	assert.Contains(t, result.Contact.Notes, "no answer")
	assert.NotNil(t, result.Contact.LastCallAt)
	assert.Empty(t, result.Warnings)

	// Status and note land as separate ledger entries in one commit
	assert.Len(t, result.Entries, 2)
}

func TestApplyCallBack(t *testing.T) {
	cal := &fakeCalendar{nextEvent: "evt-cb-1"}
	m, database := setupMachine(t, cal)
	seedContact(t, database, "c-2")

	callbackOn := time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)
	result, err := m.Apply(context.Background(), "c-2", Outcome{
		Trigger:    models.OutcomeCallBack,
		CallbackOn: callbackOn,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusCallback, result.Contact.Status)
	require.NotNil(t, result.Contact.CallbackOn)
	assert.Equal(t, "2026-06-05", result.Contact.CallbackOn.Format(db.DateFormat))
	assert.Equal(t, "evt-cb-1", result.Contact.GCalCallbackEventID)
	assert.Contains(t, result.Contact.Notes, "callback scheduled for 2026-06-05")
	assert.Empty(t, result.Warnings)

	// Exactly one upsert against the callback slot
	require.Equal(t, 1, cal.upsertSeen)
	assert.Equal(t, "upsert", cal.calls[0].op)
	assert.Equal(t, models.SlotCallback, cal.calls[0].slot)
	assert.Equal(t, callbackOn, cal.calls[0].when)
}

func TestApplyCallBackRequiresDate(t *testing.T) {
	m, database := setupMachine(t, nil)
	seedContact(t, database, "c-3")

	_, err := m.Apply(context.Background(), "c-3", Outcome{Trigger: models.OutcomeCallBack})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "callback_on", verr.Field)
}

func TestApplyMeetingBooked(t *testing.T) {
	cal := &fakeCalendar{nextEvent: "evt-mtg-1"}
	m, database := setupMachine(t, cal)
	seedContact(t, database, "c-4")

	meetingAt := time.Date(2026, 6, 8, 14, 0, 0, 0, time.UTC)
	result, err := m.Apply(context.Background(), "c-4", Outcome{
		Trigger:   models.OutcomeMeetingBooked,
		MeetingAt: meetingAt,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusMeetingBooked, result.Contact.Status)
	require.NotNil(t, result.Contact.MeetingAt)
	assert.True(t, result.Contact.MeetingAt.Equal(meetingAt))
	assert.Equal(t, "evt-mtg-1", result.Contact.GCalMeetingEventID)
	assert.Contains(t, result.Contact.Notes, "meeting booked on 2026-06-08 14:00")

	require.Len(t, cal.calls, 1)
	assert.Equal(t, models.SlotMeeting, cal.calls[0].slot)
}

func TestApplyCalendarFailureDegradesToWarning(t *testing.T) {
	cal := &fakeCalendar{upsertErr: errors.New("google is down")}
	m, database := setupMachine(t, cal)
	seedContact(t, database, "c-5")

	result, err := m.Apply(context.Background(), "c-5", Outcome{
		Trigger:    models.OutcomeCallBack,
		CallbackOn: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err, "remote failure must not block the local transition")

	// Local state committed regardless
	assert.Equal(t, models.StatusCallback, result.Contact.Status)
	require.NotNil(t, result.Contact.CallbackOn)

	// No event id was recorded, and the caller is warned
	assert.Empty(t, result.Contact.GCalCallbackEventID)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "queued for retry")
}

func TestApplyNilCalendarSkipsRemote(t *testing.T) {
	m, database := setupMachine(t, nil)
	seedContact(t, database, "c-6")

	result, err := m.Apply(context.Background(), "c-6", Outcome{
		Trigger:    models.OutcomeCallBack,
		CallbackOn: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Contact.GCalCallbackEventID)
	assert.Empty(t, result.Warnings)
}

func TestApplyTerminalOutcomes(t *testing.T) {
	cases := []struct {
		trigger string
		status  string
	}{
		{models.OutcomeBadNumber, models.StatusBadNumber},
		{models.OutcomeDoNotCall, models.StatusDoNotCall},
		{models.OutcomeDelete, models.StatusDeleted},
		{models.OutcomePromote, models.StatusCloseWon},
		{models.OutcomeDemote, models.StatusCloseLost},
	}
	for _, tc := range cases {
		t.Run(tc.trigger, func(t *testing.T) {
			m, database := setupMachine(t, nil)
			seedContact(t, database, "c-t")

			result, err := m.Apply(context.Background(), "c-t", Outcome{Trigger: tc.trigger})
			require.NoError(t, err)
			assert.Equal(t, tc.status, result.Contact.Status)
			assert.True(t, result.Contact.Archived(), "terminal transition should archive")
			assert.Nil(t, result.Contact.CallbackOn)
			assert.Nil(t, result.Contact.MeetingAt)
		})
	}
}

func TestApplyPromoteDemoteNotes(t *testing.T) {
	m, database := setupMachine(t, nil)
	seedContact(t, database, "c-7")
	result, err := m.Apply(context.Background(), "c-7", Outcome{Trigger: models.OutcomePromote})
	require.NoError(t, err)
	assert.Contains(t, result.Contact.Notes, "promoted to client")

	seedContact(t, database, "c-8")
	result, err = m.Apply(context.Background(), "c-8", Outcome{Trigger: models.OutcomeDemote})
	require.NoError(t, err)
	assert.Contains(t, result.Contact.Notes, "moved to cemetery")
}

func TestApplyTerminalCancelsLinkedEvents(t *testing.T) {
	cal := &fakeCalendar{}
	m, database := setupMachine(t, cal)
	seedContact(t, database, "c-9")

	// Book a meeting and schedule a callback first
	_, err := m.Apply(context.Background(), "c-9", Outcome{
		Trigger:    models.OutcomeCallBack,
		CallbackOn: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	cal.nextEvent = "evt-mtg-9"
	_, err = m.Apply(context.Background(), "c-9", Outcome{
		Trigger:   models.OutcomeMeetingBooked,
		MeetingAt: time.Date(2026, 6, 8, 14, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	cal.calls = nil
	result, err := m.Apply(context.Background(), "c-9", Outcome{Trigger: models.OutcomeDoNotCall})
	require.NoError(t, err)

	// Both linked events cancelled and their ids cleared
	var cancelled []string
	for _, c := range cal.calls {
		require.Equal(t, "cancel", c.op)
		cancelled = append(cancelled, c.slot)
	}
	assert.ElementsMatch(t, []string{models.SlotCallback, models.SlotMeeting}, cancelled)
	assert.Empty(t, result.Contact.GCalCallbackEventID)
	assert.Empty(t, result.Contact.GCalMeetingEventID)
}

func TestApplyCancelFailureDegradesToWarning(t *testing.T) {
	cal := &fakeCalendar{}
	m, database := setupMachine(t, cal)
	seedContact(t, database, "c-10")

	_, err := m.Apply(context.Background(), "c-10", Outcome{
		Trigger:    models.OutcomeCallBack,
		CallbackOn: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	cal.cancelErr = errors.New("google is down")
	result, err := m.Apply(context.Background(), "c-10", Outcome{Trigger: models.OutcomeDelete})
	require.NoError(t, err)

	assert.Equal(t, models.StatusDeleted, result.Contact.Status)
	require.Len(t, result.Warnings, 1)
	assert.True(t, strings.Contains(result.Warnings[0], "cancel queued for retry"))
}

func TestApplyRejectsTerminalContact(t *testing.T) {
	m, database := setupMachine(t, nil)
	seedContact(t, database, "c-11")

	_, err := m.Apply(context.Background(), "c-11", Outcome{Trigger: models.OutcomePromote})
	require.NoError(t, err)

	_, err = m.Apply(context.Background(), "c-11", Outcome{Trigger: models.OutcomeNoAnswer})
	var cerr *models.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, models.StatusCloseWon, cerr.Status)
}

func TestApplyUnknownOutcome(t *testing.T) {
	m, database := setupMachine(t, nil)
	seedContact(t, database, "c-12")

	_, err := m.Apply(context.Background(), "c-12", Outcome{Trigger: "shrug"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestApplyMissingContact(t *testing.T) {
	m, _ := setupMachine(t, nil)
	_, err := m.Apply(context.Background(), "missing", Outcome{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
