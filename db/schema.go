// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	external_row_id TEXT PRIMARY KEY,
	name TEXT,
	company TEXT,
	phone TEXT NOT NULL,
	email TEXT,
	title TEXT,
	address TEXT,
	city TEXT,
	notes TEXT,
	status TEXT NOT NULL DEFAULT 'new' CHECK(status IN (
		'new', 'no_answer', 'callback', 'meeting_booked',
		'close_won', 'close_lost', 'do_not_call', 'bad_number', 'deleted')),
	callback_on TEXT,
	meeting_at TEXT,
	gcal_callback_event_id TEXT,
	gcal_meeting_event_id TEXT,
	gcal_calendar_id TEXT,
	last_call_at DATETIME,
	last_sms_at DATETIME,
	sms_history TEXT,
	archived_at DATETIME,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_status ON contacts(status);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
CREATE INDEX IF NOT EXISTS idx_contacts_callback_on ON contacts(callback_on);
CREATE INDEX IF NOT EXISTS idx_contacts_meeting_at ON contacts(meeting_at);
CREATE INDEX IF NOT EXISTS idx_contacts_archived ON contacts(archived_at);

CREATE TABLE IF NOT EXISTS history (
	contact_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	field_name TEXT NOT NULL,
	old_value TEXT NOT NULL DEFAULT '',
	new_value TEXT NOT NULL DEFAULT '',
	timestamp DATETIME NOT NULL,
	PRIMARY KEY (contact_id, seq),
	FOREIGN KEY (contact_id) REFERENCES contacts(external_row_id)
);

CREATE INDEX IF NOT EXISTS idx_history_contact ON history(contact_id, seq DESC);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
