// ABOUTME: Outcome MCP tool handler
// ABOUTME: Implements record_outcome, routing transitions through the state machine
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/outcome"
)

type OutcomeHandlers struct {
	db  *sql.DB
	cal outcome.Calendar
}

func NewOutcomeHandlers(database *sql.DB, cal outcome.Calendar) *OutcomeHandlers {
	return &OutcomeHandlers{db: database, cal: cal}
}

type RecordOutcomeInput struct {
	ContactID  string `json:"contact_id" jsonschema:"Contact ID (required)"`
	Outcome    string `json:"outcome" jsonschema:"Outcome: no_answer, call_back, meeting_booked, bad_number, do_not_call, delete, promote, demote"`
	CallbackOn string `json:"callback_on,omitempty" jsonschema:"Callback date for call_back (YYYY-MM-DD)"`
	MeetingAt  string `json:"meeting_at,omitempty" jsonschema:"Meeting time for meeting_booked (RFC3339)"`
	Note       string `json:"note,omitempty" jsonschema:"Optional note appended with the transition"`
}

type RecordOutcomeOutput struct {
	Contact  ContactOutput  `json:"contact"`
	History  []HistoryEntry `json:"history"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (h *OutcomeHandlers) RecordOutcome(ctx context.Context, request *mcp.CallToolRequest, input RecordOutcomeInput) (*mcp.CallToolResult, RecordOutcomeOutput, error) {
	if input.ContactID == "" {
		return nil, RecordOutcomeOutput{}, fmt.Errorf("contact_id is required")
	}

	out := outcome.Outcome{Trigger: input.Outcome, Note: input.Note}

	if input.CallbackOn != "" {
		when, err := time.Parse(db.DateFormat, input.CallbackOn)
		if err != nil {
			return nil, RecordOutcomeOutput{}, fmt.Errorf("invalid callback_on: %w", err)
		}
		out.CallbackOn = when
	}
	if input.MeetingAt != "" {
		when, err := time.Parse(time.RFC3339, input.MeetingAt)
		if err != nil {
			return nil, RecordOutcomeOutput{}, fmt.Errorf("invalid meeting_at: %w", err)
		}
		out.MeetingAt = when
	}

	machine := outcome.NewMachine(h.db, h.cal)
	result, err := machine.Apply(ctx, input.ContactID, out)
	if err != nil {
		return nil, RecordOutcomeOutput{}, fmt.Errorf("failed to record outcome: %w", err)
	}

	response := RecordOutcomeOutput{
		Contact:  contactToOutput(result.Contact),
		Warnings: result.Warnings,
	}
	for _, entry := range result.Entries {
		response.History = append(response.History, historyToOutput(entry))
	}
	return nil, response, nil
}
