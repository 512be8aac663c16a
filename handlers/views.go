// ABOUTME: Priority view MCP tool handler
// ABOUTME: Implements priority_view over the derived today/overdue/new/all/clients/cemetery sets
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/views"
)

type ViewHandlers struct {
	db *sql.DB
}

func NewViewHandlers(database *sql.DB) *ViewHandlers {
	return &ViewHandlers{db: database}
}

type PriorityViewInput struct {
	View string `json:"view" jsonschema:"View name: today, overdue, new, all, clients, cemetery"`
}

type PriorityViewOutput struct {
	View     string          `json:"view"`
	Contacts []ContactOutput `json:"contacts"`
}

func (h *ViewHandlers) PriorityView(_ context.Context, request *mcp.CallToolRequest, input PriorityViewInput) (*mcp.CallToolResult, PriorityViewOutput, error) {
	name := input.View
	if name == "" {
		name = views.ViewToday
	}

	known := false
	for _, n := range views.Names {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return nil, PriorityViewOutput{}, fmt.Errorf("unknown view %q (views: %s)", name, strings.Join(views.Names, ", "))
	}

	all, err := db.ListContacts(h.db, db.ListFilter{})
	if err != nil {
		return nil, PriorityViewOutput{}, fmt.Errorf("failed to load contacts: %w", err)
	}

	contacts := views.ByName(name, all, time.Now())
	out := PriorityViewOutput{View: name}
	for i := range contacts {
		out.Contacts = append(out.Contacts, contactToOutput(&contacts[i]))
	}
	return nil, out, nil
}
