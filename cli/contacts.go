// ABOUTME: Contact CLI commands
// ABOUTME: Human-friendly commands for adding, listing, editing, and showing contacts
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
)

// AddContactCommand adds a new contact with status new.
func AddContactCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "Contact name")
	phone := fs.String("phone", "", "Phone number (required)")
	email := fs.String("email", "", "Email address")
	company := fs.String("company", "", "Company name")
	title := fs.String("title", "", "Job title")
	address := fs.String("address", "", "Street address")
	city := fs.String("city", "", "City")
	notes := fs.String("notes", "", "Notes about the contact")
	_ = fs.Parse(args)

	if *phone == "" {
		return fmt.Errorf("--phone is required")
	}

	normalized := db.NormalizePhone(*phone)
	if normalized == "" {
		return &models.ValidationError{Field: "phone", Reason: "no usable digits"}
	}

	now := time.Now()
	contact := &models.Contact{
		ExternalRowID: models.ExternalRowID("manual", 0, normalized+now.Format(time.RFC3339Nano)),
		Name:          *name,
		Company:       *company,
		Phone:         normalized,
		Email:         *email,
		Title:         *title,
		Address:       *address,
		City:          *city,
		Notes:         *notes,
		Status:        models.StatusNew,
		CreatedAt:     now,
	}

	if err := db.CreateContact(database, contact); err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	fmt.Printf("✓ Contact created: %s (ID: %s)\n", displayName(contact), contact.ExternalRowID)
	return nil
}

// ListContactsCommand lists contacts, optionally filtered.
func ListContactsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	query := fs.String("query", "", "Search across name, company, phone, email")
	status := fs.String("status", "", "Filter by status")
	archived := fs.Bool("archived", false, "Show archived contacts only")
	_ = fs.Parse(args)

	var contacts []models.Contact
	var err error

	if *query != "" {
		contacts, err = db.SearchContacts(database, *query)
	} else {
		filter := db.ListFilter{Status: *status}
		if *archived {
			t := true
			filter.Archived = &t
		} else {
			f := false
			filter.Archived = &f
		}
		contacts, err = db.ListContacts(database, filter)
	}
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	if len(contacts) == 0 {
		fmt.Println("No contacts found")
		return nil
	}

	printContactTable(contacts)
	fmt.Printf("\nTotal: %d contact(s)\n", len(contacts))
	return nil
}

// EditContactCommand applies audited field edits to a contact. Every changed
// field lands in the history ledger.
func EditContactCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	fields := map[string]*string{
		"name":        fs.String("name", "", "Contact name"),
		"company":     fs.String("company", "", "Company name"),
		"phone":       fs.String("phone", "", "Phone number"),
		"email":       fs.String("email", "", "Email address"),
		"title":       fs.String("title", "", "Job title"),
		"address":     fs.String("address", "", "Street address"),
		"city":        fs.String("city", "", "City"),
		"notes":       fs.String("notes", "", "Notes"),
		"callback_on": fs.String("callback", "", "Callback date (YYYY-MM-DD)"),
		"meeting_at":  fs.String("meeting", "", "Meeting time (RFC3339)"),
	}
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}
	contactID := fs.Args()[0]

	// Only flags the user actually set are applied; an empty string set
	// explicitly clears the field.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "callback":
			set["callback_on"] = true
		case "meeting":
			set["meeting_at"] = true
		default:
			set[f.Name] = true
		}
	})

	if len(set) == 0 {
		return fmt.Errorf("no fields to edit; pass at least one flag")
	}

	var changes []db.FieldChange
	for field, value := range fields {
		if !set[field] {
			continue
		}
		v := *value
		if field == "phone" && v != "" {
			v = db.NormalizePhone(v)
		}
		changes = append(changes, db.FieldChange{Field: field, Value: v})
	}

	entries, err := db.ApplyChanges(database, contactID, changes, db.MutationOptions{Now: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to edit contact: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No changes (values already current)")
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("✓ %s: %q → %q (history #%d)\n", entry.FieldName, entry.OldValue, entry.NewValue, entry.Seq)
	}
	return nil
}

// ShowContactCommand prints one contact with its recent history.
func ShowContactCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	historyLimit := fs.Int("history", 10, "History entries to show")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}

	contact, err := db.GetContact(database, fs.Args()[0])
	if err != nil {
		return fmt.Errorf("contact not found: %w", err)
	}

	fmt.Printf("%s  [%s]\n", displayName(contact), contact.Status)
	fmt.Printf("  ID:      %s\n", contact.ExternalRowID)
	fmt.Printf("  Phone:   %s\n", dash(contact.Phone))
	fmt.Printf("  Email:   %s\n", dash(contact.Email))
	fmt.Printf("  Title:   %s\n", dash(contact.Title))
	fmt.Printf("  City:    %s\n", dash(contact.City))
	if contact.CallbackOn != nil {
		fmt.Printf("  Callback: %s\n", contact.CallbackOn.Format(db.DateFormat))
	}
	if contact.MeetingAt != nil {
		fmt.Printf("  Meeting:  %s\n", contact.MeetingAt.Format("2006-01-02 15:04"))
	}
	if contact.LastCallAt != nil {
		fmt.Printf("  Last call: %s\n", contact.LastCallAt.Format("2006-01-02 15:04"))
	}
	if contact.ArchivedAt != nil {
		fmt.Printf("  Archived:  %s\n", contact.ArchivedAt.Format("2006-01-02 15:04"))
	}
	if contact.Notes != "" {
		fmt.Printf("  Notes:   %s\n", contact.Notes)
	}

	entries, err := db.ListHistory(database, contact.ExternalRowID, *historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(entries) > 0 {
		fmt.Println("\nRecent history:")
		for _, entry := range entries {
			fmt.Printf("  #%d  %s  %s: %q → %q\n",
				entry.Seq, entry.Timestamp.Format("2006-01-02 15:04"),
				entry.FieldName, entry.OldValue, entry.NewValue)
		}
	}
	return nil
}

func printContactTable(contacts []models.Contact) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCOMPANY\tPHONE\tSTATUS\tCALLBACK\tID")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----\t------\t--------\t--")

	for i := range contacts {
		c := &contacts[i]
		callback := "-"
		if c.CallbackOn != nil {
			callback = c.CallbackOn.Format(db.DateFormat)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			dash(c.Name), dash(c.Company), dash(c.Phone), c.Status, callback, c.ExternalRowID)
	}
	_ = w.Flush()
}

func displayName(contact *models.Contact) string {
	name := strings.TrimSpace(contact.Name)
	if name == "" {
		return contact.Phone
	}
	return name
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
