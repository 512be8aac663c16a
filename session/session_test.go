// ABOUTME: Tests for dialing session state
// ABOUTME: Covers cursor navigation, queue drain at start, and outcome recording
package session

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
	"github.com/harperreed/dialdeck/outcome"
	"github.com/harperreed/dialdeck/queue"
	"github.com/harperreed/dialdeck/views"
)

type dialerCall struct {
	op     string
	number string
	callID string
}

type fakeDialer struct {
	calls   []dialerCall
	nextID  string
	callErr error
}

func (f *fakeDialer) PlaceCall(_ context.Context, number string) (string, error) {
	f.calls = append(f.calls, dialerCall{op: "place", number: number})
	if f.callErr != nil {
		return "", f.callErr
	}
	if f.nextID == "" {
		f.nextID = "call-1"
	}
	return f.nextID, nil
}

func (f *fakeDialer) GetCallStatus(_ context.Context, callID string) (string, error) {
	return models.CallConnected, nil
}

func (f *fakeDialer) EndCall(_ context.Context, callID string) error {
	f.calls = append(f.calls, dialerCall{op: "end", callID: callID})
	return nil
}

func (f *fakeDialer) SendSMS(_ context.Context, number, message string) error {
	f.calls = append(f.calls, dialerCall{op: "sms", number: number})
	return nil
}

func setupSession(t *testing.T, dialer Dialer) (*Session, *sql.DB) {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	sess := New(database, outcome.NewMachine(database, nil), dialer, nil, nil)
	return sess, database
}

func seedCallbacks(t *testing.T, database *sql.DB, n int) {
	t.Helper()
	today := time.Now().Format(db.DateFormat)
	for i := 0; i < n; i++ {
		id := "c-" + string(rune('a'+i))
		require.NoError(t, db.CreateContact(database, &models.Contact{
			ExternalRowID: id,
			Name:          "Contact " + id,
			Company:       "Company " + id,
			Phone:         "+1312555000" + string(rune('0'+i)),
			Status:        models.StatusCallback,
		}))
		_, err := db.UpsertField(database, id, "callback_on", today)
		require.NoError(t, err)
	}
}

func TestStartLoadsTodayView(t *testing.T) {
	sess, database := setupSession(t, nil)
	seedCallbacks(t, database, 3)

	require.NoError(t, sess.Start(context.Background()))
	assert.Equal(t, views.ViewToday, sess.View())
	assert.Len(t, sess.Contacts(), 3)
	require.NotNil(t, sess.Current())
	assert.Equal(t, "c-a", sess.Current().ExternalRowID)
}

func TestStartDrainsQueue(t *testing.T) {
	sess, database := setupSession(t, nil)
	seedCallbacks(t, database, 1)

	q, err := queue.Open(t.TempDir())
	require.NoError(t, err)
	defer q.Close()
	require.NoError(t, q.Enqueue(&models.QueuedOperation{
		Kind:      models.OpUpsertEvent,
		ContactID: "c-a",
		Slot:      models.SlotCallback,
	}))

	var drained []string
	sess.Queue = q
	sess.Exec = func(_ context.Context, op *models.QueuedOperation) error {
		drained = append(drained, op.ContactID)
		return nil
	}

	require.NoError(t, sess.Start(context.Background()))
	assert.Equal(t, []string{"c-a"}, drained)

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCursorNavigation(t *testing.T) {
	sess, database := setupSession(t, nil)
	seedCallbacks(t, database, 3)
	require.NoError(t, sess.Start(context.Background()))

	assert.Equal(t, "c-a", sess.Current().ExternalRowID)
	assert.Equal(t, "c-b", sess.Next().ExternalRowID)
	assert.Equal(t, "c-c", sess.Next().ExternalRowID)
	// Clamped at the end
	assert.Equal(t, "c-c", sess.Next().ExternalRowID)

	assert.Equal(t, "c-b", sess.Prev().ExternalRowID)
	assert.Equal(t, "c-a", sess.Prev().ExternalRowID)
	// Clamped at the start
	assert.Equal(t, "c-a", sess.Prev().ExternalRowID)
}

func TestSeek(t *testing.T) {
	sess, database := setupSession(t, nil)
	seedCallbacks(t, database, 3)
	require.NoError(t, sess.Start(context.Background()))

	assert.True(t, sess.Seek("c-c"))
	assert.Equal(t, "c-c", sess.Current().ExternalRowID)
	assert.False(t, sess.Seek("missing"))
	assert.Equal(t, "c-c", sess.Current().ExternalRowID, "failed seek leaves the cursor alone")
}

func TestEmptyView(t *testing.T) {
	sess, _ := setupSession(t, nil)
	require.NoError(t, sess.Start(context.Background()))

	assert.Nil(t, sess.Current())
	assert.Nil(t, sess.Next())
	assert.Nil(t, sess.Prev())

	_, err := sess.Dial(context.Background())
	assert.Error(t, err)
	_, err = sess.Record(context.Background(), outcome.Outcome{})
	assert.Error(t, err)
}

func TestSelectViewResetsCursor(t *testing.T) {
	sess, database := setupSession(t, nil)
	seedCallbacks(t, database, 3)
	require.NoError(t, sess.Start(context.Background()))

	sess.Next()
	require.NoError(t, sess.SelectView(views.ViewAll))
	assert.Equal(t, views.ViewAll, sess.View())
	assert.Equal(t, 0, sess.Cursor())
}

func TestDialAndHangup(t *testing.T) {
	dialer := &fakeDialer{nextID: "call-42"}
	sess, database := setupSession(t, dialer)
	seedCallbacks(t, database, 1)
	require.NoError(t, sess.Start(context.Background()))

	callID, err := sess.Dial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "call-42", callID)
	assert.Equal(t, "call-42", sess.ActiveCallID())
	assert.Equal(t, sess.Current().Phone, dialer.calls[0].number)

	require.NoError(t, sess.Hangup(context.Background()))
	assert.Empty(t, sess.ActiveCallID())
	assert.Equal(t, "end", dialer.calls[1].op)

	// Hangup with no call is a no-op
	require.NoError(t, sess.Hangup(context.Background()))
	assert.Len(t, dialer.calls, 2)
}

func TestRecordAppliesOutcomeAndReloads(t *testing.T) {
	sess, database := setupSession(t, nil)
	seedCallbacks(t, database, 2)
	require.NoError(t, sess.Start(context.Background()))
	// The new view only holds never-called contacts, so recording an
	// outcome visibly removes the contact from it.
	require.NoError(t, sess.SelectView(views.ViewNew))

	result, err := sess.Record(context.Background(), outcome.Outcome{Trigger: models.OutcomeNoAnswer})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoAnswer, result.Contact.Status)

	// c-a left the today view; the cursor now points at the next candidate
	assert.Len(t, sess.Contacts(), 1)
	assert.Equal(t, "c-b", sess.Current().ExternalRowID)
}

func TestRecordClampsCursorOnLastContact(t *testing.T) {
	sess, database := setupSession(t, nil)
	seedCallbacks(t, database, 2)
	require.NoError(t, sess.Start(context.Background()))
	require.NoError(t, sess.SelectView(views.ViewNew))

	sess.Next()
	_, err := sess.Record(context.Background(), outcome.Outcome{Trigger: models.OutcomeNoAnswer})
	require.NoError(t, err)

	assert.Len(t, sess.Contacts(), 1)
	assert.Equal(t, "c-a", sess.Current().ExternalRowID)
}

func TestRecordClearsActiveCall(t *testing.T) {
	dialer := &fakeDialer{}
	sess, database := setupSession(t, dialer)
	seedCallbacks(t, database, 1)
	require.NoError(t, sess.Start(context.Background()))

	_, err := sess.Dial(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sess.ActiveCallID())

	_, err = sess.Record(context.Background(), outcome.Outcome{Trigger: models.OutcomeNoAnswer})
	require.NoError(t, err)
	assert.Empty(t, sess.ActiveCallID())
}

func TestSendSMSLogsOnRecord(t *testing.T) {
	dialer := &fakeDialer{}
	sess, database := setupSession(t, dialer)
	seedCallbacks(t, database, 1)
	require.NoError(t, sess.Start(context.Background()))

	require.NoError(t, sess.SendSMS(context.Background(), "Running late"))
	require.Len(t, dialer.calls, 1)
	assert.Equal(t, "sms", dialer.calls[0].op)

	contact, err := db.GetContact(database, "c-a")
	require.NoError(t, err)
	assert.Contains(t, contact.SMSHistory, "SMS sent: Running late")
	assert.NotNil(t, contact.LastSMSAt)
}
