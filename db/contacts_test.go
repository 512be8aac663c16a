package db

import (
	"errors"
	"testing"
	"time"

	"github.com/harperreed/dialdeck/models"
)

func TestCreateAndGetContact(t *testing.T) {
	database := setupTestDB(t)

	contact := testContact("row-001")
	if err := CreateContact(database, contact); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	got, err := GetContact(database, "row-001")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.Name != "Jane Prospect" {
		t.Errorf("Expected name 'Jane Prospect', got %q", got.Name)
	}
	if got.Status != models.StatusNew {
		t.Errorf("Expected status new, got %q", got.Status)
	}
	if got.Archived() {
		t.Error("New contact should not be archived")
	}
}

func TestCreateContactValidation(t *testing.T) {
	database := setupTestDB(t)

	var verr *models.ValidationError

	err := CreateContact(database, &models.Contact{Phone: "+13125551234"})
	if !errors.As(err, &verr) || verr.Field != "external_row_id" {
		t.Errorf("Expected validation error on external_row_id, got %v", err)
	}

	err = CreateContact(database, &models.Contact{ExternalRowID: "row-002"})
	if !errors.As(err, &verr) || verr.Field != "phone" {
		t.Errorf("Expected validation error on phone, got %v", err)
	}

	err = CreateContact(database, &models.Contact{ExternalRowID: "row-003", Phone: "+13125551234", Status: "bogus"})
	if !errors.As(err, &verr) || verr.Field != "status" {
		t.Errorf("Expected validation error on status, got %v", err)
	}
}

func TestCreateContactDefaultsStatus(t *testing.T) {
	database := setupTestDB(t)

	contact := &models.Contact{ExternalRowID: "row-004", Phone: "+13125551234"}
	if err := CreateContact(database, contact); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	got, err := GetContact(database, "row-004")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.Status != models.StatusNew {
		t.Errorf("Expected default status new, got %q", got.Status)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected created_at to be stamped")
	}
}

func TestGetContactNotFound(t *testing.T) {
	database := setupTestDB(t)

	_, err := GetContact(database, "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpsertFieldRecordsHistory(t *testing.T) {
	database := setupTestDB(t)
	if err := CreateContact(database, testContact("row-010")); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	entry, err := UpsertField(database, "row-010", "company", "Initech")
	if err != nil {
		t.Fatalf("UpsertField failed: %v", err)
	}
	if entry == nil {
		t.Fatal("Expected a history entry for a real change")
	}
	if entry.FieldName != "company" || entry.OldValue != "Acme Corp" || entry.NewValue != "Initech" {
		t.Errorf("Unexpected entry: %+v", entry)
	}
	if entry.Seq != 1 {
		t.Errorf("Expected first seq 1, got %d", entry.Seq)
	}

	got, err := GetContact(database, "row-010")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.Company != "Initech" {
		t.Errorf("Expected company Initech, got %q", got.Company)
	}
}

func TestUpsertFieldNoOp(t *testing.T) {
	database := setupTestDB(t)
	if err := CreateContact(database, testContact("row-011")); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	entry, err := UpsertField(database, "row-011", "company", "Acme Corp")
	if err != nil {
		t.Fatalf("UpsertField failed: %v", err)
	}
	if entry != nil {
		t.Errorf("No-op edit should not produce a history entry, got %+v", entry)
	}

	entries, err := ListHistory(database, "row-011", 0)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty ledger after no-op, got %d entries", len(entries))
	}
}

func TestUpsertFieldRejectsNonEditable(t *testing.T) {
	database := setupTestDB(t)
	if err := CreateContact(database, testContact("row-012")); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	for _, field := range []string{"external_row_id", "created_at", "last_call_at", "archived_at", "nonsense"} {
		var verr *models.ValidationError
		_, err := UpsertField(database, "row-012", field, "x")
		if !errors.As(err, &verr) {
			t.Errorf("Expected validation error for field %q, got %v", field, err)
		}
	}
}

func TestUpsertFieldValidatesFormats(t *testing.T) {
	database := setupTestDB(t)
	if err := CreateContact(database, testContact("row-013")); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	cases := []struct {
		field string
		value string
	}{
		{"status", "not_a_status"},
		{"callback_on", "tomorrow"},
		{"meeting_at", "2026-02-01"},
		{"phone", ""},
	}
	for _, tc := range cases {
		var verr *models.ValidationError
		_, err := UpsertField(database, "row-013", tc.field, tc.value)
		if !errors.As(err, &verr) {
			t.Errorf("Expected validation error for %s=%q, got %v", tc.field, tc.value, err)
		}
	}

	// Valid formats pass
	if _, err := UpsertField(database, "row-013", "callback_on", "2026-02-01"); err != nil {
		t.Errorf("Valid callback_on rejected: %v", err)
	}
	if _, err := UpsertField(database, "row-013", "meeting_at", "2026-02-01T14:00:00Z"); err != nil {
		t.Errorf("Valid meeting_at rejected: %v", err)
	}
}

func TestApplyChangesAtomic(t *testing.T) {
	database := setupTestDB(t)
	if err := CreateContact(database, testContact("row-020")); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries, err := ApplyChanges(database, "row-020", []FieldChange{
		{Field: "status", Value: models.StatusCallback},
		{Field: "callback_on", Value: "2026-03-05"},
		{Field: "notes", Value: "warm lead"},
	}, MutationOptions{TouchLastCall: true, Now: now})
	if err != nil {
		t.Fatalf("ApplyChanges failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 history entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			t.Errorf("Entry %d has seq %d, expected %d", i, e.Seq, i+1)
		}
	}

	got, err := GetContact(database, "row-020")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.Status != models.StatusCallback {
		t.Errorf("Expected status callback, got %q", got.Status)
	}
	if got.CallbackOn == nil || got.CallbackOn.Format(DateFormat) != "2026-03-05" {
		t.Errorf("Expected callback_on 2026-03-05, got %v", got.CallbackOn)
	}
	if got.LastCallAt == nil {
		t.Error("Expected last_call_at to be stamped")
	}
}

func TestApplyChangesSkipsUnchanged(t *testing.T) {
	database := setupTestDB(t)
	if err := CreateContact(database, testContact("row-021")); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	entries, err := ApplyChanges(database, "row-021", []FieldChange{
		{Field: "company", Value: "Acme Corp"}, // unchanged
		{Field: "city", Value: "Chicago"},
	}, MutationOptions{})
	if err != nil {
		t.Fatalf("ApplyChanges failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry for the real change, got %d", len(entries))
	}
	if entries[0].FieldName != "city" {
		t.Errorf("Expected city entry, got %q", entries[0].FieldName)
	}
}

func TestApplyChangesRejectsBadFieldBeforeWriting(t *testing.T) {
	database := setupTestDB(t)
	if err := CreateContact(database, testContact("row-022")); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	_, err := ApplyChanges(database, "row-022", []FieldChange{
		{Field: "city", Value: "Chicago"},
		{Field: "created_at", Value: "2026-01-01"},
	}, MutationOptions{})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected validation error, got %v", err)
	}

	// Nothing from the batch landed
	got, err := GetContact(database, "row-022")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.City != "" {
		t.Errorf("Rejected batch should not write any field, city = %q", got.City)
	}
	entries, _ := ListHistory(database, "row-022", 0)
	if len(entries) != 0 {
		t.Errorf("Rejected batch should not write history, got %d entries", len(entries))
	}
}

func TestApplyChangesMissingContact(t *testing.T) {
	database := setupTestDB(t)

	_, err := ApplyChanges(database, "missing", []FieldChange{{Field: "city", Value: "Chicago"}}, MutationOptions{})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestArchive(t *testing.T) {
	database := setupTestDB(t)
	if err := CreateContact(database, testContact("row-030")); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	if err := Archive(database, "row-030"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	got, err := GetContact(database, "row-030")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if !got.Archived() {
		t.Error("Expected contact to be archived")
	}
	first := *got.ArchivedAt

	// Idempotent: second archive keeps the original timestamp
	if err := Archive(database, "row-030"); err != nil {
		t.Fatalf("Second Archive failed: %v", err)
	}
	got, _ = GetContact(database, "row-030")
	if !got.ArchivedAt.Equal(first) {
		t.Errorf("Archive should be idempotent, timestamp moved from %v to %v", first, got.ArchivedAt)
	}

	if err := Archive(database, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing contact, got %v", err)
	}
}

func TestRecordSMS(t *testing.T) {
	database := setupTestDB(t)
	if err := CreateContact(database, testContact("row-040")); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	at := time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC)
	if err := RecordSMS(database, "row-040", "Following up on our call", at); err != nil {
		t.Fatalf("RecordSMS failed: %v", err)
	}

	got, err := GetContact(database, "row-040")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	want := "[2026-04-02 15:30] SMS sent: Following up on our call"
	if got.SMSHistory != want {
		t.Errorf("Expected sms_history %q, got %q", want, got.SMSHistory)
	}
	if got.LastSMSAt == nil {
		t.Error("Expected last_sms_at to be stamped")
	}

	// Second SMS appends with separator, long messages are truncated
	long := "This message is well over fifty characters long and should be truncated in the log"
	if err := RecordSMS(database, "row-040", long, at.Add(time.Hour)); err != nil {
		t.Fatalf("Second RecordSMS failed: %v", err)
	}
	got, _ = GetContact(database, "row-040")
	want += "; [2026-04-02 16:30] SMS sent: " + long[:50] + "..."
	if got.SMSHistory != want {
		t.Errorf("Expected sms_history %q, got %q", want, got.SMSHistory)
	}
}

func TestListContactsFilters(t *testing.T) {
	database := setupTestDB(t)

	seed := []struct {
		id      string
		company string
		status  string
		archive bool
	}{
		{"row-050", "Zeta", models.StatusNew, false},
		{"row-051", "Alpha", models.StatusCallback, false},
		{"row-052", "Mid", models.StatusCloseWon, false},
		{"row-053", "Gone", models.StatusDeleted, true},
	}
	for _, s := range seed {
		c := testContact(s.id)
		c.Company = s.company
		c.Status = s.status
		if err := CreateContact(database, c); err != nil {
			t.Fatalf("CreateContact %s failed: %v", s.id, err)
		}
		if s.archive {
			if err := Archive(database, s.id); err != nil {
				t.Fatalf("Archive %s failed: %v", s.id, err)
			}
		}
	}

	all, err := ListContacts(database, ListFilter{})
	if err != nil {
		t.Fatalf("ListContacts failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 contacts, got %d", len(all))
	}
	// Ordered by company
	if all[0].Company != "Alpha" || all[3].Company != "Zeta" {
		t.Errorf("Expected company ordering Alpha..Zeta, got %s..%s", all[0].Company, all[3].Company)
	}

	active, err := ListContacts(database, ListFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListContacts active failed: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("Expected 2 active contacts, got %d", len(active))
	}

	byStatus, err := ListContacts(database, ListFilter{Status: models.StatusCallback})
	if err != nil {
		t.Fatalf("ListContacts by status failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ExternalRowID != "row-051" {
		t.Errorf("Expected only row-051, got %+v", byStatus)
	}

	archived := true
	arch, err := ListContacts(database, ListFilter{Archived: &archived})
	if err != nil {
		t.Fatalf("ListContacts archived failed: %v", err)
	}
	if len(arch) != 1 || arch[0].ExternalRowID != "row-053" {
		t.Errorf("Expected only row-053 archived, got %+v", arch)
	}
}

func TestSearchContacts(t *testing.T) {
	database := setupTestDB(t)

	a := testContact("row-060")
	a.Name = "Maria Gonzalez"
	a.Company = "Widget Works"
	b := testContact("row-061")
	b.Name = "Tom Builder"
	b.Company = "Gonzalez Construction"
	for _, c := range []*models.Contact{a, b} {
		if err := CreateContact(database, c); err != nil {
			t.Fatalf("CreateContact failed: %v", err)
		}
	}

	results, err := SearchContacts(database, "gonzalez")
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 matches for 'gonzalez', got %d", len(results))
	}

	results, err = SearchContacts(database, "widget")
	if err != nil {
		t.Fatalf("SearchContacts failed: %v", err)
	}
	if len(results) != 1 || results[0].ExternalRowID != "row-060" {
		t.Errorf("Expected only row-060 for 'widget', got %+v", results)
	}
}

func TestCountByStatus(t *testing.T) {
	database := setupTestDB(t)

	for i, status := range []string{models.StatusNew, models.StatusNew, models.StatusCallback} {
		c := testContact("row-07" + string(rune('0'+i)))
		c.Status = status
		if err := CreateContact(database, c); err != nil {
			t.Fatalf("CreateContact failed: %v", err)
		}
	}

	counts, err := CountByStatus(database)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[models.StatusNew] != 2 {
		t.Errorf("Expected 2 new, got %d", counts[models.StatusNew])
	}
	if counts[models.StatusCallback] != 1 {
		t.Errorf("Expected 1 callback, got %d", counts[models.StatusCallback])
	}
}
