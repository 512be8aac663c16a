// ABOUTME: Contact store database operations
// ABOUTME: Handles contact CRUD, transactional field mutation, and archiving
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/dialdeck/models"
)

const contactColumns = `external_row_id, name, company, phone, email, title, address, city,
	notes, status, callback_on, meeting_at, gcal_callback_event_id,
	gcal_meeting_event_id, gcal_calendar_id, last_call_at, last_sms_at,
	sms_history, archived_at, created_at`

// DateFormat is the storage format for date-precision fields (callback_on).
const DateFormat = "2006-01-02"

// editableFields maps field names accepted by UpsertField to their columns.
// Identity and computed audit fields are deliberately absent.
var editableFields = map[string]bool{
	"name":                   true,
	"company":                true,
	"phone":                  true,
	"email":                  true,
	"title":                  true,
	"address":                true,
	"city":                   true,
	"notes":                  true,
	"status":                 true,
	"callback_on":            true,
	"meeting_at":             true,
	"gcal_callback_event_id": true,
	"gcal_meeting_event_id":  true,
	"gcal_calendar_id":       true,
	"sms_history":            true,
}

func CreateContact(db *sql.DB, contact *models.Contact) error {
	if contact.ExternalRowID == "" {
		return &models.ValidationError{Field: "external_row_id", Reason: "must not be empty"}
	}
	if contact.Phone == "" {
		return &models.ValidationError{Field: "phone", Reason: "must not be empty"}
	}
	if contact.Status == "" {
		contact.Status = models.StatusNew
	}
	if !models.IsValidStatus(contact.Status) {
		return &models.ValidationError{Field: "status", Reason: "unknown status " + contact.Status}
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now()
	}

	_, err := db.Exec(`
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, contact.ExternalRowID, contact.Name, contact.Company, contact.Phone,
		contact.Email, contact.Title, contact.Address, contact.City,
		contact.Notes, contact.Status,
		formatDate(contact.CallbackOn), formatTimestamp(contact.MeetingAt),
		contact.GCalCallbackEventID, contact.GCalMeetingEventID, contact.GCalCalendarID,
		contact.LastCallAt, contact.LastSMSAt, contact.SMSHistory,
		contact.ArchivedAt, contact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func GetContact(db *sql.DB, id string) (*models.Contact, error) {
	row := db.QueryRow(`SELECT `+contactColumns+` FROM contacts WHERE external_row_id = ?`, id)
	contact, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return contact, err
}

// ListFilter selects which contacts a List call returns.
type ListFilter struct {
	Status     string // exact status match when non-empty
	ActiveOnly bool   // exclude terminal statuses
	Archived   *bool  // nil = both partitions
}

// ListContacts returns a committed snapshot of contacts matching the filter,
// ordered by company then id for deterministic iteration.
func ListContacts(db *sql.DB, filter ListFilter) ([]models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.ActiveOnly {
		query += ` AND status NOT IN ('close_won', 'close_lost', 'do_not_call', 'bad_number', 'deleted')`
	}
	if filter.Archived != nil {
		if *filter.Archived {
			query += ` AND archived_at IS NOT NULL`
		} else {
			query += ` AND archived_at IS NULL`
		}
	}
	query += ` ORDER BY company, external_row_id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []models.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *contact)
	}
	return contacts, rows.Err()
}

// SearchContacts matches query case-insensitively against the searchable
// fields. Archived contacts are excluded.
func SearchContacts(db *sql.DB, query string) ([]models.Contact, error) {
	pattern := "%" + query + "%"
	rows, err := db.Query(`
		SELECT `+contactColumns+` FROM contacts
		WHERE archived_at IS NULL AND (
			name LIKE ? COLLATE NOCASE OR company LIKE ? COLLATE NOCASE
			OR phone LIKE ? OR email LIKE ? COLLATE NOCASE
			OR status LIKE ? OR notes LIKE ? COLLATE NOCASE
			OR title LIKE ? COLLATE NOCASE OR city LIKE ? COLLATE NOCASE)
		ORDER BY company, external_row_id
	`, pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []models.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *contact)
	}
	return contacts, rows.Err()
}

// FieldChange is one field mutation applied by ApplyChanges.
type FieldChange struct {
	Field string
	Value string
}

// MutationOptions control audit side effects committed with a mutation.
type MutationOptions struct {
	TouchLastCall bool // set last_call_at to now
	SetArchived   bool // move to archive partition
	Now           time.Time
}

// UpsertField applies a single validated field edit with its history entry.
// Writes to external_row_id or computed audit fields are rejected.
func UpsertField(db *sql.DB, id, field, value string) (*models.HistoryEntry, error) {
	if err := validateField(field, value); err != nil {
		return nil, err
	}
	entries, err := ApplyChanges(db, id, []FieldChange{{Field: field, Value: value}}, MutationOptions{})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		// No-op edit: value already current. No history entry is produced.
		return nil, nil
	}
	return &entries[0], nil
}

// ApplyChanges applies a set of field mutations as one atomic unit: the
// column updates and their history entries commit together or not at all.
func ApplyChanges(db *sql.DB, id string, changes []FieldChange, opts MutationOptions) ([]models.HistoryEntry, error) {
	for _, ch := range changes {
		if !editableFields[ch.Field] {
			return nil, &models.ValidationError{Field: ch.Field, Reason: "field is not editable"}
		}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", models.ErrIntegrity, err)
	}
	defer func() { _ = tx.Rollback() }()

	current, archived, err := currentFieldValues(tx, id)
	if err != nil {
		return nil, err
	}

	var seq int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM history WHERE contact_id = ?`, id).Scan(&seq); err != nil {
		return nil, fmt.Errorf("%w: read history seq: %v", models.ErrIntegrity, err)
	}

	var entries []models.HistoryEntry
	for _, ch := range changes {
		old := current[ch.Field]
		if old == ch.Value {
			continue
		}
		seq++
		entry := models.HistoryEntry{
			ContactID: id,
			Seq:       seq,
			FieldName: ch.Field,
			OldValue:  old,
			NewValue:  ch.Value,
			Timestamp: now,
		}
		if _, err := tx.Exec(`
			INSERT INTO history (contact_id, seq, field_name, old_value, new_value, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`, entry.ContactID, entry.Seq, entry.FieldName, entry.OldValue, entry.NewValue, entry.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: record history: %v", models.ErrIntegrity, err)
		}
		if _, err := tx.Exec(`UPDATE contacts SET `+ch.Field+` = ? WHERE external_row_id = ?`, ch.Value, id); err != nil {
			return nil, fmt.Errorf("%w: update %s: %v", models.ErrIntegrity, ch.Field, err)
		}
		entries = append(entries, entry)
	}

	if opts.TouchLastCall {
		if _, err := tx.Exec(`UPDATE contacts SET last_call_at = ? WHERE external_row_id = ?`, now, id); err != nil {
			return nil, fmt.Errorf("%w: touch last_call_at: %v", models.ErrIntegrity, err)
		}
	}
	if opts.SetArchived && !archived {
		if _, err := tx.Exec(`UPDATE contacts SET archived_at = ? WHERE external_row_id = ?`, now, id); err != nil {
			return nil, fmt.Errorf("%w: archive: %v", models.ErrIntegrity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", models.ErrIntegrity, err)
	}
	return entries, nil
}

// Archive moves a contact to the archive partition. Archiving an already
// archived contact is a no-op, not an error.
func Archive(db *sql.DB, id string) error {
	res, err := db.Exec(`UPDATE contacts SET archived_at = ? WHERE external_row_id = ? AND archived_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to archive contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish missing contact from already-archived.
		var exists int
		if err := db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE external_row_id = ?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return models.ErrNotFound
		}
	}
	return nil
}

// RecordSMS appends an entry to the SMS activity log and stamps last_sms_at.
// The history entry for sms_history commits atomically with the timestamp.
func RecordSMS(db *sql.DB, id, message string, at time.Time) error {
	contact, err := GetContact(db, id)
	if err != nil {
		return err
	}
	summary := message
	if len(summary) > 50 {
		summary = summary[:50] + "..."
	}
	entry := fmt.Sprintf("[%s] SMS sent: %s", at.Format("2006-01-02 15:04"), summary)
	history := contact.SMSHistory
	if history != "" {
		history += "; "
	}
	history += entry

	if _, err := ApplyChanges(db, id, []FieldChange{{Field: "sms_history", Value: history}}, MutationOptions{Now: at}); err != nil {
		return err
	}
	_, err = db.Exec(`UPDATE contacts SET last_sms_at = ? WHERE external_row_id = ?`, at, id)
	return err
}

// CountByStatus returns contact counts per status for the dashboard.
func CountByStatus(db *sql.DB) (map[string]int, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM contacts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func validateField(field, value string) error {
	if !editableFields[field] {
		return &models.ValidationError{Field: field, Reason: "field is not editable"}
	}
	switch field {
	case "status":
		if !models.IsValidStatus(value) {
			return &models.ValidationError{Field: field, Reason: "unknown status " + value}
		}
	case "callback_on":
		if value != "" {
			if _, err := time.Parse(DateFormat, value); err != nil {
				return &models.ValidationError{Field: field, Reason: "expected YYYY-MM-DD date"}
			}
		}
	case "meeting_at":
		if value != "" {
			if _, err := time.Parse(time.RFC3339, value); err != nil {
				return &models.ValidationError{Field: field, Reason: "expected RFC 3339 timestamp"}
			}
		}
	case "phone":
		if value == "" {
			return &models.ValidationError{Field: field, Reason: "must not be empty"}
		}
	}
	return nil
}

// currentFieldValues reads the editable columns of a contact inside tx.
func currentFieldValues(tx *sql.Tx, id string) (map[string]string, bool, error) {
	var name, company, phone, email, title, address, city, notes, status sql.NullString
	var callbackOn, meetingAt, gcalCallback, gcalMeeting, gcalCalendar, smsHistory sql.NullString
	var archivedAt sql.NullTime

	err := tx.QueryRow(`
		SELECT name, company, phone, email, title, address, city, notes, status,
		       callback_on, meeting_at, gcal_callback_event_id,
		       gcal_meeting_event_id, gcal_calendar_id, sms_history, archived_at
		FROM contacts WHERE external_row_id = ?
	`, id).Scan(&name, &company, &phone, &email, &title, &address, &city, &notes,
		&status, &callbackOn, &meetingAt, &gcalCallback, &gcalMeeting,
		&gcalCalendar, &smsHistory, &archivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, models.ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: read contact: %v", models.ErrIntegrity, err)
	}

	return map[string]string{
		"name":                   name.String,
		"company":                company.String,
		"phone":                  phone.String,
		"email":                  email.String,
		"title":                  title.String,
		"address":                address.String,
		"city":                   city.String,
		"notes":                  notes.String,
		"status":                 status.String,
		"callback_on":            callbackOn.String,
		"meeting_at":             meetingAt.String,
		"gcal_callback_event_id": gcalCallback.String,
		"gcal_meeting_event_id":  gcalMeeting.String,
		"gcal_calendar_id":       gcalCalendar.String,
		"sms_history":            smsHistory.String,
	}, archivedAt.Valid, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*models.Contact, error) {
	c := &models.Contact{}
	var name, company, email, title, address, city, notes sql.NullString
	var callbackOn, meetingAt, gcalCallback, gcalMeeting, gcalCalendar, smsHistory sql.NullString
	var lastCallAt, lastSMSAt, archivedAt sql.NullTime

	err := row.Scan(&c.ExternalRowID, &name, &company, &c.Phone, &email, &title,
		&address, &city, &notes, &c.Status, &callbackOn, &meetingAt,
		&gcalCallback, &gcalMeeting, &gcalCalendar, &lastCallAt, &lastSMSAt,
		&smsHistory, &archivedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.Name = name.String
	c.Company = company.String
	c.Email = email.String
	c.Title = title.String
	c.Address = address.String
	c.City = city.String
	c.Notes = notes.String
	c.GCalCallbackEventID = gcalCallback.String
	c.GCalMeetingEventID = gcalMeeting.String
	c.GCalCalendarID = gcalCalendar.String
	c.SMSHistory = smsHistory.String

	if callbackOn.String != "" {
		t, err := time.Parse(DateFormat, callbackOn.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse callback_on: %w", err)
		}
		c.CallbackOn = &t
	}
	if meetingAt.String != "" {
		t, err := time.Parse(time.RFC3339, meetingAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse meeting_at: %w", err)
		}
		c.MeetingAt = &t
	}
	if lastCallAt.Valid {
		c.LastCallAt = &lastCallAt.Time
	}
	if lastSMSAt.Valid {
		c.LastSMSAt = &lastSMSAt.Time
	}
	if archivedAt.Valid {
		c.ArchivedAt = &archivedAt.Time
	}
	return c, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateFormat)
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
