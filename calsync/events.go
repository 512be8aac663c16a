// ABOUTME: Builds Google Calendar event bodies for callback and meeting slots
// ABOUTME: Encodes the scheduling conventions: callback at 10:00 for 30m, meeting for 1h
package calsync

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harperreed/dialdeck/models"
)

const (
	callbackHour     = 10
	callbackDuration = 30 * time.Minute
	meetingDuration  = time.Hour
)

// BuildEvent constructs the calendar event body for a scheduling slot.
// Callback events land at 10:00 local on the callback date; meeting events
// start at the booked time. The attendee invite is added only when the
// contact has an email and invites are enabled.
func BuildEvent(contact *models.Contact, slot string, when time.Time, invite bool) *calendar.Event {
	var (
		summary   string
		start     time.Time
		duration  time.Duration
		reminders []*calendar.EventReminder
	)

	switch slot {
	case models.SlotMeeting:
		summary = fmt.Sprintf("Meeting with %s", displayName(contact))
		start = when
		duration = meetingDuration
		reminders = []*calendar.EventReminder{
			{Method: "popup", Minutes: 30},
			{Method: "popup", Minutes: 10},
		}
	default:
		summary = fmt.Sprintf("Call back %s", displayName(contact))
		start = time.Date(when.Year(), when.Month(), when.Day(), callbackHour, 0, 0, 0, when.Location())
		duration = callbackDuration
		reminders = []*calendar.EventReminder{
			{Method: "popup", Minutes: 15},
			{Method: "popup", Minutes: 5},
		}
	}

	event := &calendar.Event{
		Summary:     summary,
		Description: eventDescription(contact),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: start.Add(duration).Format(time.RFC3339)},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       reminders,
			ForceSendFields: []string{"UseDefault"},
		},
	}

	if invite && contact.Email != "" {
		event.Attendees = []*calendar.EventAttendee{{Email: contact.Email}}
	}

	return event
}

func displayName(contact *models.Contact) string {
	name := strings.TrimSpace(contact.Name)
	if name == "" {
		name = contact.Phone
	}
	if contact.Company != "" {
		return fmt.Sprintf("%s (%s)", name, contact.Company)
	}
	return name
}

func eventDescription(contact *models.Contact) string {
	var lines []string
	if contact.Phone != "" {
		lines = append(lines, "Phone: "+contact.Phone)
	}
	if contact.Company != "" {
		lines = append(lines, "Company: "+contact.Company)
	}
	if contact.Title != "" {
		lines = append(lines, "Title: "+contact.Title)
	}
	if contact.Notes != "" {
		lines = append(lines, "", contact.Notes)
	}
	return strings.Join(lines, "\n")
}
