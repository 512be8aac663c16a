// ABOUTME: Calendar API client setup for Google Calendar integration
// ABOUTME: Wraps the Events endpoints behind an interface the reconciler can fake
package calsync

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// EventAPI is the slice of the Calendar API the reconciler needs.
type EventAPI interface {
	Insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	Update(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error)
	Delete(ctx context.Context, calendarID, eventID string) error
}

// NewCalendarClient creates a Google Calendar API service from an OAuth token.
func NewCalendarClient(token *oauth2.Token) (*calendar.Service, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	ctx := context.Background()
	config := NewOAuthConfig()

	client := config.Client(ctx, token)

	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return service, nil
}

// googleEventAPI adapts *calendar.Service to EventAPI.
type googleEventAPI struct {
	service *calendar.Service
}

// NewEventAPI wraps a Calendar service for use by the reconciler.
func NewEventAPI(service *calendar.Service) EventAPI {
	return &googleEventAPI{service: service}
}

func (g *googleEventAPI) Insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	return g.service.Events.Insert(calendarID, event).Context(ctx).Do()
}

func (g *googleEventAPI) Update(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error) {
	return g.service.Events.Update(calendarID, eventID, event).Context(ctx).Do()
}

func (g *googleEventAPI) Delete(ctx context.Context, calendarID, eventID string) error {
	return g.service.Events.Delete(calendarID, eventID).Context(ctx).Do()
}

// isGone reports whether err means the event no longer exists remotely.
// Deleting an already-deleted event is treated as success.
func isGone(err error) bool {
	apiErr, ok := err.(*googleapi.Error)
	if !ok {
		return false
	}
	return apiErr.Code == 404 || apiErr.Code == 410
}
