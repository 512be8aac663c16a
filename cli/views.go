// ABOUTME: Priority view CLI command
// ABOUTME: Prints the derived today/overdue/new/all/clients/cemetery views
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/views"
)

// ViewCommand prints one priority view of the contact store.
func ViewCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	_ = fs.Parse(args)

	name := views.ViewToday
	if len(fs.Args()) > 0 {
		name = fs.Args()[0]
	}

	known := false
	for _, n := range views.Names {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown view %q (views: %s)", name, strings.Join(views.Names, ", "))
	}

	all, err := db.ListContacts(database, db.ListFilter{})
	if err != nil {
		return fmt.Errorf("failed to load contacts: %w", err)
	}

	contacts := views.ByName(name, all, time.Now())
	if len(contacts) == 0 {
		fmt.Printf("Nothing in %s\n", name)
		return nil
	}

	fmt.Printf("%s (%d)\n\n", strings.ToUpper(name), len(contacts))
	printContactTable(contacts)
	return nil
}
