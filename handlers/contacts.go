// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements add_contact, find_contacts, and edit_contact tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
)

type ContactHandlers struct {
	db *sql.DB
}

func NewContactHandlers(database *sql.DB) *ContactHandlers {
	return &ContactHandlers{db: database}
}

type AddContactInput struct {
	Name    string `json:"name,omitempty" jsonschema:"Contact name"`
	Phone   string `json:"phone" jsonschema:"Phone number (required)"`
	Email   string `json:"email,omitempty" jsonschema:"Email address"`
	Company string `json:"company,omitempty" jsonschema:"Company name"`
	Title   string `json:"title,omitempty" jsonschema:"Job title"`
	City    string `json:"city,omitempty" jsonschema:"City"`
	Notes   string `json:"notes,omitempty" jsonschema:"Notes about the contact"`
}

type ContactOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Company    string `json:"company,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Title      string `json:"title,omitempty"`
	City       string `json:"city,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Status     string `json:"status"`
	CallbackOn string `json:"callback_on,omitempty"`
	MeetingAt  string `json:"meeting_at,omitempty"`
	LastCallAt string `json:"last_call_at,omitempty"`
	Archived   bool   `json:"archived"`
	CreatedAt  string `json:"created_at"`
}

func (h *ContactHandlers) AddContact(_ context.Context, request *mcp.CallToolRequest, input AddContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	if input.Phone == "" {
		return nil, ContactOutput{}, fmt.Errorf("phone is required")
	}
	phone := db.NormalizePhone(input.Phone)
	if phone == "" {
		return nil, ContactOutput{}, fmt.Errorf("phone has no usable digits")
	}

	now := time.Now()
	contact := &models.Contact{
		ExternalRowID: models.ExternalRowID("mcp", 0, phone+now.Format(time.RFC3339Nano)),
		Name:          input.Name,
		Company:       input.Company,
		Phone:         phone,
		Email:         input.Email,
		Title:         input.Title,
		City:          input.City,
		Notes:         input.Notes,
		Status:        models.StatusNew,
		CreatedAt:     now,
	}

	if err := db.CreateContact(h.db, contact); err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to create contact: %w", err)
	}

	return nil, contactToOutput(contact), nil
}

type FindContactsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Search across name, company, phone, email, city"`
	Status string `json:"status,omitempty" jsonschema:"Filter by exact status"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
}

func (h *ContactHandlers) FindContacts(_ context.Context, request *mcp.CallToolRequest, input FindContactsInput) (*mcp.CallToolResult, FindContactsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	var contacts []models.Contact
	var err error
	if input.Query != "" {
		contacts, err = db.SearchContacts(h.db, input.Query)
	} else {
		contacts, err = db.ListContacts(h.db, db.ListFilter{Status: input.Status})
	}
	if err != nil {
		return nil, FindContactsOutput{}, fmt.Errorf("failed to find contacts: %w", err)
	}

	if len(contacts) > limit {
		contacts = contacts[:limit]
	}
	result := make([]ContactOutput, len(contacts))
	for i := range contacts {
		result[i] = contactToOutput(&contacts[i])
	}

	return nil, FindContactsOutput{Contacts: result}, nil
}

type EditContactInput struct {
	ID    string `json:"id" jsonschema:"Contact ID (required)"`
	Field string `json:"field" jsonschema:"Field to edit: name, company, phone, email, title, address, city, notes, callback_on, meeting_at"`
	Value string `json:"value" jsonschema:"New value; empty clears the field"`
}

type EditContactOutput struct {
	Contact ContactOutput `json:"contact"`
	Changed bool          `json:"changed"`
	Seq     int64         `json:"history_seq,omitempty"`
}

// EditContact applies one audited field edit; every change produces a
// history entry the revert tools can target.
func (h *ContactHandlers) EditContact(_ context.Context, request *mcp.CallToolRequest, input EditContactInput) (*mcp.CallToolResult, EditContactOutput, error) {
	if input.ID == "" || input.Field == "" {
		return nil, EditContactOutput{}, fmt.Errorf("id and field are required")
	}

	value := input.Value
	if input.Field == "phone" && value != "" {
		value = db.NormalizePhone(value)
		if value == "" {
			return nil, EditContactOutput{}, fmt.Errorf("phone has no usable digits")
		}
	}

	entry, err := db.UpsertField(h.db, input.ID, input.Field, value)
	if err != nil {
		return nil, EditContactOutput{}, fmt.Errorf("failed to edit contact: %w", err)
	}

	contact, err := db.GetContact(h.db, input.ID)
	if err != nil {
		return nil, EditContactOutput{}, fmt.Errorf("failed to reload contact: %w", err)
	}

	out := EditContactOutput{Contact: contactToOutput(contact)}
	if entry != nil {
		out.Changed = true
		out.Seq = entry.Seq
	}
	return nil, out, nil
}

func contactToOutput(contact *models.Contact) ContactOutput {
	out := ContactOutput{
		ID:        contact.ExternalRowID,
		Name:      contact.Name,
		Company:   contact.Company,
		Phone:     contact.Phone,
		Email:     contact.Email,
		Title:     contact.Title,
		City:      contact.City,
		Notes:     contact.Notes,
		Status:    contact.Status,
		Archived:  contact.Archived(),
		CreatedAt: contact.CreatedAt.Format(time.RFC3339),
	}
	if contact.CallbackOn != nil {
		out.CallbackOn = contact.CallbackOn.Format(db.DateFormat)
	}
	if contact.MeetingAt != nil {
		out.MeetingAt = contact.MeetingAt.Format(time.RFC3339)
	}
	if contact.LastCallAt != nil {
		out.LastCallAt = contact.LastCallAt.Format(time.RFC3339)
	}
	return out
}
