// ABOUTME: History ledger MCP tool handlers
// ABOUTME: Implements contact_history plus the two-phase propose/commit revert tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
)

type HistoryHandlers struct {
	db *sql.DB

	mu        sync.Mutex
	proposals map[string]*db.RevertProposal
}

func NewHistoryHandlers(database *sql.DB) *HistoryHandlers {
	return &HistoryHandlers{db: database, proposals: make(map[string]*db.RevertProposal)}
}

type HistoryEntry struct {
	Seq       int64  `json:"seq"`
	Field     string `json:"field"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	Timestamp string `json:"timestamp"`
}

type ContactHistoryInput struct {
	ContactID string `json:"contact_id" jsonschema:"Contact ID (required)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum entries (default 20)"`
}

type ContactHistoryOutput struct {
	Entries []HistoryEntry `json:"entries"`
}

func (h *HistoryHandlers) ContactHistory(_ context.Context, request *mcp.CallToolRequest, input ContactHistoryInput) (*mcp.CallToolResult, ContactHistoryOutput, error) {
	if input.ContactID == "" {
		return nil, ContactHistoryOutput{}, fmt.Errorf("contact_id is required")
	}
	limit := input.Limit
	if limit == 0 {
		limit = 20
	}

	entries, err := db.ListHistory(h.db, input.ContactID, limit)
	if err != nil {
		return nil, ContactHistoryOutput{}, fmt.Errorf("failed to load history: %w", err)
	}

	out := ContactHistoryOutput{}
	for _, entry := range entries {
		out.Entries = append(out.Entries, historyToOutput(entry))
	}
	return nil, out, nil
}

type ProposeRevertInput struct {
	ContactID string `json:"contact_id" jsonschema:"Contact ID (required)"`
	Seq       int64  `json:"seq" jsonschema:"History sequence number to revert (required)"`
}

type ProposeRevertOutput struct {
	Token        string `json:"token"`
	Field        string `json:"field"`
	CurrentValue string `json:"current_value"`
	RestoreValue string `json:"restore_value"`
}

// ProposeRevert is phase one: it reports what a revert would change and
// returns a token. Nothing is written until CommitRevert is called with
// that token.
func (h *HistoryHandlers) ProposeRevert(_ context.Context, request *mcp.CallToolRequest, input ProposeRevertInput) (*mcp.CallToolResult, ProposeRevertOutput, error) {
	if input.ContactID == "" {
		return nil, ProposeRevertOutput{}, fmt.Errorf("contact_id is required")
	}

	proposal, err := db.ProposeRevert(h.db, input.ContactID, input.Seq)
	if err != nil {
		return nil, ProposeRevertOutput{}, fmt.Errorf("cannot revert: %w", err)
	}

	h.mu.Lock()
	h.proposals[proposal.Token] = proposal
	h.mu.Unlock()

	return nil, ProposeRevertOutput{
		Token:        proposal.Token,
		Field:        proposal.FieldName,
		CurrentValue: proposal.CurrentValue,
		RestoreValue: proposal.RestoreValue,
	}, nil
}

type CommitRevertInput struct {
	Token string `json:"token" jsonschema:"Token from propose_revert (required)"`
}

type CommitRevertOutput struct {
	Changed bool          `json:"changed"`
	Entry   *HistoryEntry `json:"entry,omitempty"`
}

// CommitRevert is phase two. It fails if the ledger moved since the
// proposal was made.
func (h *HistoryHandlers) CommitRevert(_ context.Context, request *mcp.CallToolRequest, input CommitRevertInput) (*mcp.CallToolResult, CommitRevertOutput, error) {
	if input.Token == "" {
		return nil, CommitRevertOutput{}, fmt.Errorf("token is required")
	}

	h.mu.Lock()
	proposal, ok := h.proposals[input.Token]
	delete(h.proposals, input.Token)
	h.mu.Unlock()

	if !ok {
		return nil, CommitRevertOutput{}, fmt.Errorf("unknown or expired revert token")
	}

	entry, err := db.CommitRevert(h.db, proposal, input.Token)
	if err != nil {
		return nil, CommitRevertOutput{}, fmt.Errorf("revert failed: %w", err)
	}
	if entry == nil {
		return nil, CommitRevertOutput{Changed: false}, nil
	}

	out := historyToOutput(*entry)
	return nil, CommitRevertOutput{Changed: true, Entry: &out}, nil
}

func historyToOutput(entry models.HistoryEntry) HistoryEntry {
	return HistoryEntry{
		Seq:       entry.Seq,
		Field:     entry.FieldName,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		Timestamp: entry.Timestamp.Format(time.RFC3339),
	}
}
