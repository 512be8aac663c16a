// ABOUTME: CSV import/export CLI commands
// ABOUTME: Loads contact lists into the store and exports with atomic backup
package cli

import (
	"database/sql"
	"flag"
	"fmt"

	"github.com/harperreed/dialdeck/db"
)

// ImportCommand loads contacts from a CSV file. Rows already imported keep
// their stable id and are skipped, so re-import is a no-op.
func ImportCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("CSV path is required")
	}
	path := fs.Args()[0]

	result, err := db.ImportCSV(database, path)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("✓ Imported %d contact(s), skipped %d\n", result.Imported, result.Skipped)
	for _, issue := range result.Issues {
		fmt.Printf("  ⚠ %s\n", issue)
	}
	return nil
}

// ExportCommand writes contacts to a CSV file, backing up any existing file
// first and replacing it atomically.
func ExportCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	archived := fs.Bool("archived", false, "Export archived contacts only")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("CSV path is required")
	}
	path := fs.Args()[0]

	count, err := db.ExportCSV(database, path, *archived)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("✓ Exported %d contact(s) to %s\n", count, path)
	return nil
}
