// ABOUTME: Telephony CLI commands
// ABOUTME: Provider login, one-off calls with status polling, and SMS sending
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
	"github.com/harperreed/dialdeck/voip"
)

// VoIPLoginCommand exchanges provider credentials for an API token and
// prints it for the user to store in the environment.
func VoIPLoginCommand(args []string) error {
	fs := flag.NewFlagSet("voip login", flag.ExitOnError)
	email := fs.String("email", "", "Provider account email")
	_ = fs.Parse(args)

	if *email == "" {
		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		*email = strings.TrimSpace(line)
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	client := voip.NewClientFromEnv()
	if err := client.Login(context.Background(), *email, string(password)); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println("✓ Authenticated with VoIP provider")
	fmt.Println("Set VOIP_API_TOKEN in your environment to skip login next time.")
	return nil
}

// CallCommand places a call to a contact and polls until it ends. The call
// timestamp is recorded; use the outcome command afterwards to log the
// result.
func CallCommand(database *sql.DB, dialer *voip.Client, args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}

	contact, err := db.GetContact(database, fs.Args()[0])
	if err != nil {
		return fmt.Errorf("contact not found: %w", err)
	}
	if contact.Phone == "" {
		return &models.ValidationError{Field: "phone", Reason: "contact has no phone number"}
	}

	ctx := context.Background()
	callID, err := dialer.PlaceCall(ctx, contact.Phone)
	if err != nil {
		return fmt.Errorf("call failed: %w", err)
	}

	fmt.Printf("Calling %s (%s)...\n", displayName(contact), contact.Phone)

	poller := voip.NewPoller(callID, dialer.GetCallStatus)
	ticker := time.NewTicker(voip.PollInterval)
	defer ticker.Stop()

	for !poller.Exhausted() {
		result, state := poller.Poll(ctx)
		if result == voip.PollChanged {
			fmt.Printf("  → %s\n", state)
		}
		if state == models.CallEnded {
			break
		}
		<-ticker.C
	}

	fmt.Printf("Call over (final state: %s)\n", poller.State())
	fmt.Printf("Record the result with: dialdeck outcome --outcome <result> %s\n", contact.ExternalRowID)
	return nil
}

// SMSCommand sends an SMS to a contact and logs it on the record.
func SMSCommand(database *sql.DB, dialer *voip.Client, args []string) error {
	fs := flag.NewFlagSet("sms", flag.ExitOnError)
	message := fs.String("message", "", "Message text (required)")
	_ = fs.Parse(args)

	if *message == "" {
		return fmt.Errorf("--message is required")
	}
	if len(fs.Args()) < 1 {
		return fmt.Errorf("contact ID is required")
	}

	contact, err := db.GetContact(database, fs.Args()[0])
	if err != nil {
		return fmt.Errorf("contact not found: %w", err)
	}

	if err := dialer.SendSMS(context.Background(), contact.Phone, *message); err != nil {
		return fmt.Errorf("SMS failed: %w", err)
	}
	if err := db.RecordSMS(database, contact.ExternalRowID, *message, time.Now()); err != nil {
		return fmt.Errorf("SMS sent but logging failed: %w", err)
	}

	fmt.Printf("✓ SMS sent to %s\n", displayName(contact))
	return nil
}
