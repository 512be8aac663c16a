// ABOUTME: History ledger CLI commands
// ABOUTME: Lists field-edit history and drives the two-phase revert flow
package cli

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/harperreed/dialdeck/db"
)

// HistoryCommand lists the edit history for a contact, newest first.
func HistoryCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Maximum entries")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}

	entries, err := db.ListHistory(database, fs.Args()[0], *limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No history")
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("#%d  %s  %s: %q → %q\n",
			entry.Seq, entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FieldName, entry.OldValue, entry.NewValue)
	}
	return nil
}

// RevertCommand restores a field to its value before a history entry.
// Phase one proposes the revert and shows exactly what will change; the
// commit only happens after the operator confirms, and fails if the ledger
// moved in between.
func RevertCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("revert", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip confirmation prompt")
	_ = fs.Parse(args)

	if len(fs.Args()) < 2 {
		return fmt.Errorf("usage: revert <contact-id> <history-seq>")
	}
	contactID := fs.Args()[0]
	seq, err := strconv.ParseInt(fs.Args()[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid history sequence: %w", err)
	}

	proposal, err := db.ProposeRevert(database, contactID, seq)
	if err != nil {
		return fmt.Errorf("cannot revert: %w", err)
	}

	fmt.Printf("Revert %s on %s:\n", proposal.FieldName, contactID)
	fmt.Printf("  current: %q\n", proposal.CurrentValue)
	fmt.Printf("  restore: %q\n", proposal.RestoreValue)

	if !*yes {
		fmt.Print("Proceed? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Println("Aborted")
			return nil
		}
	}

	entry, err := db.CommitRevert(database, proposal, proposal.Token)
	if err != nil {
		return fmt.Errorf("revert failed: %w", err)
	}
	if entry == nil {
		fmt.Println("No change (value already current)")
		return nil
	}

	fmt.Printf("✓ Reverted %s to %q (history #%d)\n", entry.FieldName, entry.NewValue, entry.Seq)
	return nil
}
