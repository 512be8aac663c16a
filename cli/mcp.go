// ABOUTME: MCP server subcommand
// ABOUTME: Exposes contacts, outcomes, views, and revert tools over stdio
package cli

import (
	"context"
	"database/sql"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/dialdeck/handlers"
	"github.com/harperreed/dialdeck/outcome"
)

// MCPCommand starts the MCP server on stdio.
func MCPCommand(db *sql.DB, cal outcome.Calendar) error {
	log.Println("Starting dialdeck MCP server...")

	contactHandlers := handlers.NewContactHandlers(db)
	outcomeHandlers := handlers.NewOutcomeHandlers(db, cal)
	historyHandlers := handlers.NewHistoryHandlers(db)
	viewHandlers := handlers.NewViewHandlers(db)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "dialdeck",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contact",
		Description: "Add a new contact to the dialer pipeline",
	}, contactHandlers.AddContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contacts",
		Description: "Search contacts by name, company, phone, email, or status",
	}, contactHandlers.FindContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "edit_contact",
		Description: "Edit one contact field; the change is recorded in the edit history",
	}, contactHandlers.EditContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_outcome",
		Description: "Record a call outcome (no_answer, call_back, meeting_booked, bad_number, do_not_call, delete, promote, demote) with its status transition and calendar side effects",
	}, outcomeHandlers.RecordOutcome)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "priority_view",
		Description: "Get a priority view of contacts: today, overdue, new, all, clients, or cemetery",
	}, viewHandlers.PriorityView)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "contact_history",
		Description: "List the field-edit history for a contact",
	}, historyHandlers.ContactHistory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "propose_revert",
		Description: "Propose reverting a history entry; returns a confirmation token and what would change",
	}, historyHandlers.ProposeRevert)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "commit_revert",
		Description: "Commit a previously proposed revert using its confirmation token",
	}, historyHandlers.CommitRevert)

	ctx := context.Background()
	return server.Run(ctx, &mcp.StdioTransport{})
}
