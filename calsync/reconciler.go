// ABOUTME: Reconciles contact scheduling slots with Google Calendar events
// ABOUTME: Idempotent upsert/cancel per (contact, slot) with queue fallback on failure
package calsync

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
	"github.com/harperreed/dialdeck/queue"
)

// Reconciler keeps one calendar event per (contact, slot). It satisfies the
// outcome machine's Calendar interface: a stored event id means update, no
// id means insert, and cancels tolerate an already-deleted remote event.
// Failures are parked on the operation queue and reported as transient.
type Reconciler struct {
	API            EventAPI
	Queue          *queue.Queue
	CalendarID     string
	InviteAttendee bool
}

func NewReconciler(api EventAPI, q *queue.Queue, calendarID string, invite bool) *Reconciler {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Reconciler{API: api, Queue: q, CalendarID: calendarID, InviteAttendee: invite}
}

// UpsertEvent creates or updates the event for slot and returns its id.
// On remote failure the operation is queued for retry and a transient error
// is returned; the caller records it as a warning, never a rollback.
func (r *Reconciler) UpsertEvent(ctx context.Context, contact *models.Contact, slot string, when time.Time) (string, error) {
	event := BuildEvent(contact, slot, when, r.InviteAttendee)
	eventID := storedEventID(contact, slot)

	if eventID != "" {
		updated, err := r.API.Update(ctx, r.calendarID(contact), eventID, event)
		if err == nil {
			return updated.Id, nil
		}
		if !isGone(err) {
			return "", r.park(&models.QueuedOperation{
				Kind:      models.OpUpsertEvent,
				ContactID: contact.ExternalRowID,
				Slot:      slot,
				Payload:   when.Format(time.RFC3339),
			}, "upsert", err)
		}
		// Stored id points at a deleted event; fall through and recreate.
	}

	created, err := r.API.Insert(ctx, r.calendarID(contact), event)
	if err != nil {
		return "", r.park(&models.QueuedOperation{
			Kind:      models.OpUpsertEvent,
			ContactID: contact.ExternalRowID,
			Slot:      slot,
			Payload:   when.Format(time.RFC3339),
		}, "upsert", err)
	}
	return created.Id, nil
}

// CancelEvent deletes the event backing slot. A remote 404/410 counts as
// success so cancels stay idempotent.
func (r *Reconciler) CancelEvent(ctx context.Context, contact *models.Contact, slot, eventID string) error {
	if eventID == "" {
		return nil
	}
	err := r.API.Delete(ctx, r.calendarID(contact), eventID)
	if err == nil || isGone(err) {
		return nil
	}
	return r.park(&models.QueuedOperation{
		Kind:      models.OpCancelEvent,
		ContactID: contact.ExternalRowID,
		Slot:      slot,
		Payload:   eventID,
	}, "cancel", err)
}

// Executor returns a queue executor that replays parked operations against
// the live contact row. A contact that vanished, or a slot no longer
// scheduled, makes the operation a successful no-op.
func (r *Reconciler) Executor(database *sql.DB) queue.Executor {
	return func(ctx context.Context, op *models.QueuedOperation) error {
		switch op.Kind {
		case models.OpCancelEvent:
			err := r.API.Delete(ctx, r.CalendarID, op.Payload)
			if err == nil || isGone(err) {
				return nil
			}
			return err

		case models.OpUpsertEvent:
			contact, err := db.GetContact(database, op.ContactID)
			if errors.Is(err, models.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			when, ok := slotTime(contact, op.Slot)
			if !ok {
				return nil
			}

			eventID, err := r.upsertDirect(ctx, contact, op.Slot, when)
			if err != nil {
				return err
			}
			if eventID != storedEventID(contact, op.Slot) {
				if _, err := db.UpsertField(database, contact.ExternalRowID, eventIDField(op.Slot), eventID); err != nil {
					return err
				}
			}
			return nil

		default:
			log.Printf("queue: dropping operation with unknown kind %q", op.Kind)
			return nil
		}
	}
}

// upsertDirect is UpsertEvent without the queue fallback, used during drain
// where failure accounting belongs to the queue itself.
func (r *Reconciler) upsertDirect(ctx context.Context, contact *models.Contact, slot string, when time.Time) (string, error) {
	event := BuildEvent(contact, slot, when, r.InviteAttendee)
	eventID := storedEventID(contact, slot)

	if eventID != "" {
		updated, err := r.API.Update(ctx, r.calendarID(contact), eventID, event)
		if err == nil {
			return updated.Id, nil
		}
		if !isGone(err) {
			return "", err
		}
	}

	created, err := r.API.Insert(ctx, r.calendarID(contact), event)
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (r *Reconciler) park(op *models.QueuedOperation, verb string, cause error) error {
	if r.Queue != nil {
		if qerr := r.Queue.Enqueue(op); qerr != nil {
			log.Printf("calendar: failed to queue %s for %s/%s: %v", verb, op.ContactID, op.Slot, qerr)
		}
	}
	return &models.TransientRemoteError{Op: verb, Err: cause}
}

func (r *Reconciler) calendarID(contact *models.Contact) string {
	if contact.GCalCalendarID != "" {
		return contact.GCalCalendarID
	}
	return r.CalendarID
}

func storedEventID(contact *models.Contact, slot string) string {
	if slot == models.SlotMeeting {
		return contact.GCalMeetingEventID
	}
	return contact.GCalCallbackEventID
}

func eventIDField(slot string) string {
	if slot == models.SlotMeeting {
		return "gcal_meeting_event_id"
	}
	return "gcal_callback_event_id"
}

func slotTime(contact *models.Contact, slot string) (time.Time, bool) {
	if slot == models.SlotMeeting {
		if contact.MeetingAt == nil {
			return time.Time{}, false
		}
		return *contact.MeetingAt, true
	}
	if contact.CallbackOn == nil {
		return time.Time{}, false
	}
	return *contact.CallbackOn, true
}
