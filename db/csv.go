// ABOUTME: CSV import and export for contact lists
// ABOUTME: Handles managed columns, row id assignment, backups, and archive export
package db

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/dialdeck/models"
)

// csvHeaders is the column order used for exports.
var csvHeaders = []string{
	"external_row_id", "name", "company", "phone", "email", "title",
	"address", "city", "notes", "status", "callback_on", "meeting_at",
	"gcal_callback_event_id", "gcal_meeting_event_id", "gcal_calendar_id",
	"last_call_at", "last_sms_at", "sms_history", "archived_at", "created_at",
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Imported int
	Skipped  int
	Issues   []string
}

// ImportCSV loads a contact list into the store. Rows without an
// external_row_id get one derived from the source path, row index, and row
// content, so re-importing the same file is idempotent. A phone column is
// required; rows with unusable phone numbers are reported and skipped.
func ImportCSV(db *sql.DB, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty: %s", path)
	}

	header := records[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	phoneField := "phone"
	if _, ok := col[phoneField]; !ok {
		phoneField = "phone_number"
		if _, ok := col[phoneField]; !ok {
			return nil, fmt.Errorf("CSV must contain a phone column")
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	result := &ImportResult{}
	for i, row := range records[1:] {
		phone := NormalizePhone(field(row, phoneField))
		if phone == "" {
			result.Skipped++
			result.Issues = append(result.Issues, fmt.Sprintf("row %d: missing or invalid phone number", i+2))
			continue
		}

		id := field(row, "external_row_id")
		if id == "" {
			id = models.ExternalRowID(filepath.Base(path), i, strings.Join(row, ","))
		}

		// Re-importing a known row is a no-op.
		if _, err := GetContact(db, id); err == nil {
			result.Skipped++
			continue
		}

		status := field(row, "status")
		if status == "" {
			status = models.StatusNew
		}

		contact := &models.Contact{
			ExternalRowID: id,
			Name:          field(row, "name"),
			Company:       field(row, "company"),
			Phone:         phone,
			Email:         field(row, "email"),
			Title:         field(row, "title"),
			Address:       field(row, "address"),
			City:          field(row, "city"),
			Notes:         field(row, "notes"),
			Status:        status,
		}
		if v := field(row, "callback_on"); v != "" {
			if t, err := time.Parse(DateFormat, v); err == nil {
				contact.CallbackOn = &t
			}
		}
		if v := field(row, "meeting_at"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				contact.MeetingAt = &t
			}
		}

		if err := CreateContact(db, contact); err != nil {
			result.Skipped++
			result.Issues = append(result.Issues, fmt.Sprintf("row %d: %v", i+2, err))
			continue
		}
		result.Imported++
	}

	return result, nil
}

// ExportCSV writes contacts to path. When the file already exists a
// timestamped backup copy is made first, and the new content is written to a
// temp file and renamed into place so readers never see a partial write.
func ExportCSV(db *sql.DB, path string, archivedOnly bool) (int, error) {
	archived := archivedOnly
	var filter ListFilter
	if archivedOnly {
		filter.Archived = &archived
	}

	contacts, err := ListContacts(db, filter)
	if err != nil {
		return 0, err
	}

	if _, err := os.Stat(path); err == nil {
		if err := backupFile(path); err != nil {
			return 0, err
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeaders); err != nil {
		_ = f.Close()
		return 0, err
	}
	for i := range contacts {
		if err := w.Write(contactToRow(&contacts[i])); err != nil {
			_ = f.Close()
			return 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("failed to replace export file: %w", err)
	}
	return len(contacts), nil
}

// NormalizePhone strips formatting and keeps a leading plus. Returns "" for
// numbers too short to dial.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimPrefix(b.String(), "+")
	if len(digits) < 7 {
		return ""
	}
	return b.String()
}

// backupFile copies path into a backups directory next to it, stamped with
// the current time.
func backupFile(path string) error {
	dir := filepath.Join(filepath.Dir(path), "backups")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	input, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file for backup: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	backupPath := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", base, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(backupPath, input, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

func contactToRow(c *models.Contact) []string {
	format := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(time.RFC3339)
	}
	return []string{
		c.ExternalRowID, c.Name, c.Company, c.Phone, c.Email, c.Title,
		c.Address, c.City, c.Notes, c.Status,
		formatDate(c.CallbackOn), formatTimestamp(c.MeetingAt),
		c.GCalCallbackEventID, c.GCalMeetingEventID, c.GCalCalendarID,
		format(c.LastCallAt), format(c.LastSMSAt), c.SMSHistory,
		format(c.ArchivedAt), c.CreatedAt.Format(time.RFC3339),
	}
}
