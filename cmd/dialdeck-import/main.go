// ABOUTME: Bulk import utility for loading CSV contact lists into the database.
// ABOUTME: Provides dry-run and backup capabilities for safe repeated imports.

package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harperreed/dialdeck/db"
)

func main() {
	dbPath := flag.String("db", "", "Path to database file (default: XDG data dir)")
	csvPath := flag.String("csv", "", "Path to CSV file (required)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create database backup before import")
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("Error: -csv flag is required")
	}

	path := *dbPath
	if path == "" {
		path = db.DefaultPath()
	}

	if err := run(path, *csvPath, *dryRun, *backup); err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("Import completed successfully")
}

func run(dbPath, csvPath string, dryRun, createBackup bool) error {
	if _, err := os.Stat(csvPath); os.IsNotExist(err) {
		return fmt.Errorf("CSV file does not exist: %s", csvPath)
	}

	if dryRun {
		return preview(csvPath)
	}

	if createBackup {
		if _, err := os.Stat(dbPath); err == nil {
			backupPath := fmt.Sprintf("%s.backup.%s", dbPath, time.Now().Format("20060102-150405"))
			log.Printf("Creating backup: %s", backupPath)

			input, err := os.ReadFile(dbPath)
			if err != nil {
				return fmt.Errorf("failed to read database: %w", err)
			}
			if err := os.WriteFile(backupPath, input, 0644); err != nil {
				return fmt.Errorf("failed to create backup: %w", err)
			}
			log.Printf("Backup created successfully")
		}
	}

	database, err := db.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	result, err := db.ImportCSV(database, csvPath)
	if err != nil {
		return err
	}

	log.Printf("Imported %d contact(s), skipped %d", result.Imported, result.Skipped)
	for _, issue := range result.Issues {
		log.Printf("  warning: %s", issue)
	}
	return nil
}

// preview reads the CSV and reports row counts without touching the database.
func preview(csvPath string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("CSV is empty")
	}

	log.Printf("[dry-run] Header: %v", rows[0])
	log.Printf("[dry-run] Would import up to %d row(s)", len(rows)-1)
	return nil
}
