// ABOUTME: Operation queue CLI commands
// ABOUTME: Shows pending/failed remote operations, drains retries, clears failures
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/harperreed/dialdeck/models"
	"github.com/harperreed/dialdeck/queue"
)

// QueueStatusCommand lists pending and permanently failed operations.
func QueueStatusCommand(q *queue.Queue, args []string) error {
	fs := flag.NewFlagSet("queue status", flag.ExitOnError)
	_ = fs.Parse(args)

	pending, err := q.Pending()
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	failed, err := q.Failed()
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}

	if len(pending) == 0 && len(failed) == 0 {
		fmt.Println("Queue empty")
		return nil
	}

	if len(pending) > 0 {
		fmt.Printf("Pending (%d):\n", len(pending))
		printOpsTable(pending)
	}
	if len(failed) > 0 {
		fmt.Printf("\nFailed after %d attempts (%d):\n", queue.MaxAttempts, len(failed))
		printOpsTable(failed)
	}
	return nil
}

// QueueDrainCommand retries every pending operation now.
func QueueDrainCommand(database *sql.DB, q *queue.Queue, exec queue.Executor, args []string) error {
	fs := flag.NewFlagSet("queue drain", flag.ExitOnError)
	_ = fs.Parse(args)

	if exec == nil {
		return fmt.Errorf("calendar not configured; run 'dialdeck calendar auth' first")
	}

	result, err := q.Drain(context.Background(), exec)
	if err != nil {
		return fmt.Errorf("drain failed: %w", err)
	}

	fmt.Printf("✓ Drain complete: %d succeeded, %d retained for retry, %d failed permanently\n",
		result.Succeeded, result.Retained, len(result.Failed))
	for _, op := range result.Failed {
		fmt.Printf("  ✗ %s %s/%s\n", op.Kind, op.ContactID, op.Slot)
	}
	return nil
}

// QueueClearFailedCommand discards the failed set.
func QueueClearFailedCommand(q *queue.Queue, args []string) error {
	fs := flag.NewFlagSet("queue clear-failed", flag.ExitOnError)
	_ = fs.Parse(args)

	failed, err := q.Failed()
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	if len(failed) == 0 {
		fmt.Println("No failed operations")
		return nil
	}

	if err := q.ClearFailed(); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	fmt.Printf("✓ Cleared %d failed operation(s)\n", len(failed))
	return nil
}

func printOpsTable(ops []models.QueuedOperation) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tCONTACT\tSLOT\tATTEMPTS\tENQUEUED")
	for _, op := range ops {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			op.Kind, op.ContactID, op.Slot, op.AttemptCount,
			op.EnqueuedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}
