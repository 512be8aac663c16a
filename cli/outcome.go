// ABOUTME: Outcome recording CLI command
// ABOUTME: Routes a call/edit outcome through the state machine with its side effects
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
	"github.com/harperreed/dialdeck/outcome"
)

// OutcomeCommand records an outcome for a contact. Calendar side effects are
// attempted immediately and queued on failure; the local transition always
// lands.
func OutcomeCommand(database *sql.DB, cal outcome.Calendar, args []string) error {
	fs := flag.NewFlagSet("outcome", flag.ExitOnError)
	trigger := fs.String("outcome", "", "Outcome: no_answer, call_back, meeting_booked, bad_number, do_not_call, delete, promote, demote")
	callback := fs.String("callback", "", "Callback date for call_back (YYYY-MM-DD, or +Nd)")
	meeting := fs.String("meeting", "", "Meeting time for meeting_booked (RFC3339)")
	note := fs.String("note", "", "Note to append with the transition")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}
	contactID := fs.Args()[0]

	out := outcome.Outcome{Trigger: *trigger, Note: *note}

	if *callback != "" {
		when, err := parseFlexibleDate(*callback)
		if err != nil {
			return err
		}
		out.CallbackOn = when
	}
	if *meeting != "" {
		when, err := time.Parse(time.RFC3339, *meeting)
		if err != nil {
			return &models.ValidationError{Field: "meeting_at", Reason: "expected RFC3339 timestamp"}
		}
		out.MeetingAt = when
	}

	machine := outcome.NewMachine(database, cal)
	result, err := machine.Apply(context.Background(), contactID, out)
	if err != nil {
		return err
	}

	fmt.Printf("✓ %s → %s\n", contactID, result.Contact.Status)
	for _, entry := range result.Entries {
		fmt.Printf("  %s: %q → %q\n", entry.FieldName, entry.OldValue, entry.NewValue)
	}
	for _, warning := range result.Warnings {
		fmt.Printf("  ⚠ %s\n", warning)
	}
	return nil
}

// parseFlexibleDate accepts YYYY-MM-DD or a +Nd offset from today.
func parseFlexibleDate(s string) (time.Time, error) {
	if len(s) > 2 && s[0] == '+' && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "+%dd", &days); err == nil {
			now := time.Now()
			return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, days), nil
		}
	}
	when, err := time.Parse(db.DateFormat, s)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: "callback_on", Reason: "expected YYYY-MM-DD or +Nd"}
	}
	return when, nil
}
