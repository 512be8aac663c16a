// ABOUTME: Entry point for the dialdeck CLI, TUI, and MCP server
// ABOUTME: Routes commands and wires the store, queue, calendar, and telephony together
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/harperreed/dialdeck/calsync"
	"github.com/harperreed/dialdeck/cli"
	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/outcome"
	"github.com/harperreed/dialdeck/queue"
	"github.com/harperreed/dialdeck/session"
	"github.com/harperreed/dialdeck/tui"
	"github.com/harperreed/dialdeck/voip"
)

const version = "0.1.0"

func main() {
	// .env is optional; the environment always wins.
	_ = godotenv.Load()

	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/dialdeck/dialdeck.db)")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("dialdeck version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	finalDBPath := *dbPath
	if finalDBPath == "" {
		finalDBPath = db.DefaultPath()
	}
	database, err := db.OpenDatabase(finalDBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if *initOnly {
		log.Printf("Database initialized: %s", finalDBPath)
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "add":
		run(cli.AddContactCommand(database, commandArgs))
	case "list":
		run(cli.ListContactsCommand(database, commandArgs))
	case "edit":
		run(cli.EditContactCommand(database, commandArgs))
	case "show":
		run(cli.ShowContactCommand(database, commandArgs))
	case "history":
		run(cli.HistoryCommand(database, commandArgs))
	case "revert":
		run(cli.RevertCommand(database, commandArgs))
	case "view":
		run(cli.ViewCommand(database, commandArgs))
	case "import":
		run(cli.ImportCommand(database, commandArgs))
	case "export":
		run(cli.ExportCommand(database, commandArgs))

	case "outcome":
		withQueue(func(q *queue.Queue) {
			cal, _ := buildCalendar(q)
			run(cli.OutcomeCommand(database, cal, commandArgs))
		})

	case "call":
		run(cli.CallCommand(database, voip.NewClientFromEnv(), commandArgs))
	case "sms":
		run(cli.SMSCommand(database, voip.NewClientFromEnv(), commandArgs))
	case "voip":
		runVoIP(commandArgs)

	case "calendar":
		runCalendar(commandArgs)

	case "queue":
		withQueue(func(q *queue.Queue) {
			runQueue(database, q, commandArgs)
		})

	case "dial":
		withQueue(func(q *queue.Queue) {
			runDial(database, q)
		})

	case "mcp":
		withQueue(func(q *queue.Queue) {
			cal, _ := buildCalendar(q)
			run(cli.MCPCommand(database, cal))
		})

	case "dashboard":
		run(cli.VizDashboardCommand(database, commandArgs))
	case "viz":
		runViz(database, commandArgs)

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func run(err error) {
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func withQueue(fn func(q *queue.Queue)) {
	q, err := queue.Open(queue.DefaultPath())
	if err != nil {
		log.Fatalf("Failed to open operation queue: %v", err)
	}
	defer func() { _ = q.Close() }()
	fn(q)
}

// buildCalendar wires the calendar reconciler when a stored OAuth token
// exists. Without one the dialer runs calendar-free; transitions still land
// locally and nothing is queued.
func buildCalendar(q *queue.Queue) (outcome.Calendar, *calsync.Reconciler) {
	token, err := calsync.LoadToken()
	if err != nil {
		return nil, nil
	}
	service, err := calsync.NewCalendarClient(token)
	if err != nil {
		log.Printf("warning: calendar client unavailable: %v", err)
		return nil, nil
	}

	invite := os.Getenv("DIALDECK_INVITE_ATTENDEES") != "false"
	rec := calsync.NewReconciler(calsync.NewEventAPI(service), q, os.Getenv("DIALDECK_CALENDAR_ID"), invite)
	return rec, rec
}

func runVoIP(args []string) {
	if len(args) == 0 || args[0] != "login" {
		fmt.Println("Usage: dialdeck voip login")
		os.Exit(1)
	}
	run(cli.VoIPLoginCommand(args[1:]))
}

func runCalendar(args []string) {
	if len(args) == 0 || args[0] != "auth" {
		fmt.Println("Usage: dialdeck calendar auth")
		os.Exit(1)
	}
	run(cli.CalendarAuthCommand(args[1:]))
}

func runQueue(database *sql.DB, q *queue.Queue, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: dialdeck queue <status|drain|clear-failed>")
		os.Exit(1)
	}
	switch args[0] {
	case "status":
		run(cli.QueueStatusCommand(q, args[1:]))
	case "drain":
		_, rec := buildCalendar(q)
		var exec queue.Executor
		if rec != nil {
			exec = rec.Executor(database)
		}
		run(cli.QueueDrainCommand(database, q, exec, args[1:]))
	case "clear-failed":
		run(cli.QueueClearFailedCommand(q, args[1:]))
	default:
		fmt.Printf("Unknown queue command: %s\n", args[0])
		os.Exit(1)
	}
}

func runDial(database *sql.DB, q *queue.Queue) {
	cal, rec := buildCalendar(q)
	machine := outcome.NewMachine(database, cal)

	var exec queue.Executor
	if rec != nil {
		exec = rec.Executor(database)
	}

	sess := session.New(database, machine, voip.NewClientFromEnv(), q, exec)
	if err := sess.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	run(tui.Run(sess))
}

func runViz(database *sql.DB, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: dialdeck viz <funnel|dashboard>")
		os.Exit(1)
	}
	switch args[0] {
	case "funnel":
		run(cli.VizFunnelCommand(database, args[1:]))
	case "dashboard":
		run(cli.VizDashboardCommand(database, args[1:]))
	default:
		fmt.Printf("Unknown viz command: %s\n", args[0])
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`dialdeck v%s - terminal CRM and dialer

USAGE:
  dialdeck [global flags] <command> [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/dialdeck/dialdeck.db)
  --init                 Initialize database and exit

CONTACTS:
  dialdeck add --phone <number> [--name ... --company ... --email ...]
  dialdeck list [--query <text>] [--status <status>] [--archived]
  dialdeck edit [--name ... --phone ... --callback ... --meeting ...] <id>
  dialdeck show [--history <n>] <id>
  dialdeck import <file.csv>
  dialdeck export [--archived] <file.csv>

WORKFLOW:
  dialdeck view [today|overdue|new|all|clients|cemetery]
  dialdeck dial                      Full-screen dialing session
  dialdeck outcome --outcome <result> [--callback <date>] [--meeting <time>] <id>
  dialdeck call <id>                 Place a call and watch its status
  dialdeck sms --message <text> <id>

HISTORY:
  dialdeck history [--limit <n>] <id>
  dialdeck revert [--yes] <id> <seq>

INTEGRATIONS:
  dialdeck voip login                Authenticate with the VoIP provider
  dialdeck calendar auth             Authenticate with Google Calendar
  dialdeck queue status              Show pending/failed calendar operations
  dialdeck queue drain               Retry pending operations now
  dialdeck queue clear-failed        Discard permanently failed operations
  dialdeck mcp                       Start MCP server (stdio)

REPORTS:
  dialdeck dashboard                 Terminal dashboard
  dialdeck viz funnel [--output <file>]

EXAMPLES:
  # Import a call list and start dialing
  dialdeck import leads.csv
  dialdeck dial

  # Record a callback for Thursday
  dialdeck outcome --outcome call_back --callback +3d 1a2b3c4d5e6f7a8b

  # Undo a bad edit
  dialdeck history 1a2b3c4d5e6f7a8b
  dialdeck revert 1a2b3c4d5e6f7a8b 12

`, version)
}
