// ABOUTME: Edit history ledger operations
// ABOUTME: Append-only field mutation log with two-phase revert support
package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/dialdeck/models"
)

// ErrRevertStale is returned when the ledger advanced between propose and
// commit. The caller should re-propose.
var ErrRevertStale = errors.New("ledger advanced since revert was proposed")

// ListHistory returns history entries for a contact, most recent first.
func ListHistory(db *sql.DB, contactID string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT contact_id, seq, field_name, old_value, new_value, timestamp
		FROM history
		WHERE contact_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, contactID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ContactID, &e.Seq, &e.FieldName, &e.OldValue, &e.NewValue, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetHistoryEntry looks up a single ledger entry by contact and sequence.
func GetHistoryEntry(db *sql.DB, contactID string, seq int64) (*models.HistoryEntry, error) {
	var e models.HistoryEntry
	err := db.QueryRow(`
		SELECT contact_id, seq, field_name, old_value, new_value, timestamp
		FROM history
		WHERE contact_id = ? AND seq = ?
	`, contactID, seq).Scan(&e.ContactID, &e.Seq, &e.FieldName, &e.OldValue, &e.NewValue, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// RevertProposal is the first phase of a revert. The confirmation gate is a
// caller concern: the caller shows the proposal, collects confirmation, and
// passes the token back to CommitRevert.
type RevertProposal struct {
	Token     string
	ContactID string
	Seq       int64
	FieldName string
	// RestoreValue is the value the field will be set back to.
	RestoreValue string
	// CurrentValue is what the field holds now, shown for confirmation.
	CurrentValue string
	// ledgerHead pins the latest seq at propose time so a commit after an
	// intervening edit fails instead of silently clobbering it.
	ledgerHead int64
}

// ProposeRevert prepares a revert of the ledger entry at seq. Nothing is
// written; the returned proposal carries everything CommitRevert needs.
func ProposeRevert(db *sql.DB, contactID string, seq int64) (*RevertProposal, error) {
	entry, err := GetHistoryEntry(db, contactID, seq)
	if err != nil {
		return nil, err
	}

	contact, err := GetContact(db, contactID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(contact.Status) && entry.FieldName != "status" {
		return nil, &models.ConflictError{ContactID: contactID, Status: contact.Status}
	}

	var head int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM history WHERE contact_id = ?`, contactID).Scan(&head); err != nil {
		return nil, err
	}

	current, _, err := snapshotFieldValue(db, contactID, entry.FieldName)
	if err != nil {
		return nil, err
	}

	return &RevertProposal{
		Token:        uuid.New().String(),
		ContactID:    contactID,
		Seq:          seq,
		FieldName:    entry.FieldName,
		RestoreValue: entry.OldValue,
		CurrentValue: current,
		ledgerHead:   head,
	}, nil
}

// CommitRevert applies a confirmed revert. The restored value is written
// forward through the normal mutation path, producing a fresh history entry;
// no existing entry is mutated or deleted.
func CommitRevert(db *sql.DB, proposal *RevertProposal, token string) (*models.HistoryEntry, error) {
	if proposal == nil || token == "" || token != proposal.Token {
		return nil, &models.ValidationError{Field: "token", Reason: "revert not confirmed"}
	}

	var head int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM history WHERE contact_id = ?`, proposal.ContactID).Scan(&head); err != nil {
		return nil, err
	}
	if head != proposal.ledgerHead {
		return nil, fmt.Errorf("%w: head moved from %d to %d", ErrRevertStale, proposal.ledgerHead, head)
	}

	return UpsertField(db, proposal.ContactID, proposal.FieldName, proposal.RestoreValue)
}

// snapshotFieldValue reads one editable field's current stored value.
func snapshotFieldValue(db *sql.DB, contactID, field string) (string, bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return "", false, err
	}
	defer func() { _ = tx.Rollback() }()

	values, archived, err := currentFieldValues(tx, contactID)
	if err != nil {
		return "", false, err
	}
	return values[field], archived, nil
}
