// ABOUTME: Priority view engine deriving filtered, ordered contact subsets
// ABOUTME: Pure functions over a contact snapshot; nothing here mutates state
package views

import (
	"sort"
	"strings"
	"time"

	"github.com/harperreed/dialdeck/models"
)

// View names accepted by ByName.
const (
	ViewToday    = "today"
	ViewOverdue  = "overdue"
	ViewNew      = "new"
	ViewAll      = "all"
	ViewClients  = "clients"
	ViewCemetery = "cemetery"
)

// Names lists the available views in display order.
var Names = []string{ViewToday, ViewOverdue, ViewNew, ViewAll, ViewClients, ViewCemetery}

// ByName dispatches to the named view. Unknown names fall back to all.
func ByName(name string, contacts []models.Contact, now time.Time) []models.Contact {
	switch name {
	case ViewToday:
		return Today(contacts, now)
	case ViewOverdue:
		return Overdue(contacts, now)
	case ViewNew:
		return New(contacts)
	case ViewClients:
		return Clients(contacts)
	case ViewCemetery:
		return Cemetery(contacts)
	default:
		return All(contacts)
	}
}

// Today returns active contacts with a callback or meeting falling on the
// current day, ordered by time ascending.
func Today(contacts []models.Contact, now time.Time) []models.Contact {
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var out []models.Contact
	for _, c := range contacts {
		if !c.Active() {
			continue
		}
		if _, ok := scheduledToday(&c, dayStart, dayEnd); ok {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := scheduledToday(&out[i], dayStart, dayEnd)
		tj, _ := scheduledToday(&out[j], dayStart, dayEnd)
		if ti.Equal(tj) {
			return out[i].ExternalRowID < out[j].ExternalRowID
		}
		return ti.Before(tj)
	})
	return out
}

// Overdue returns active contacts whose callback date has passed or whose
// meeting time is in the past, ordered most overdue first. Ties break on
// contact id for determinism.
func Overdue(contacts []models.Contact, now time.Time) []models.Contact {
	var out []models.Contact
	for _, c := range contacts {
		if !c.Active() {
			continue
		}
		if overdueBy(&c, now) > 0 {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di := overdueBy(&out[i], now)
		dj := overdueBy(&out[j], now)
		if di == dj {
			return out[i].ExternalRowID < out[j].ExternalRowID
		}
		return di > dj
	})
	return out
}

// New returns active contacts that have never been called, alphabetical by
// company.
func New(contacts []models.Contact) []models.Contact {
	var out []models.Contact
	for _, c := range contacts {
		if c.Active() && c.LastCallAt == nil {
			out = append(out, c)
		}
	}
	sortByCompany(out)
	return out
}

// All returns every active (non-terminal) contact, ordered by company.
func All(contacts []models.Contact) []models.Contact {
	var out []models.Contact
	for _, c := range contacts {
		if c.Active() {
			out = append(out, c)
		}
	}
	sortByCompany(out)
	return out
}

// Clients returns contacts closed as won.
func Clients(contacts []models.Contact) []models.Contact {
	return byStatus(contacts, models.StatusCloseWon)
}

// Cemetery returns contacts closed as lost.
func Cemetery(contacts []models.Contact) []models.Contact {
	return byStatus(contacts, models.StatusCloseLost)
}

func byStatus(contacts []models.Contact, status string) []models.Contact {
	var out []models.Contact
	for _, c := range contacts {
		if c.Status == status {
			out = append(out, c)
		}
	}
	sortByCompany(out)
	return out
}

func sortByCompany(contacts []models.Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		ci := strings.ToLower(contacts[i].Company)
		cj := strings.ToLower(contacts[j].Company)
		if ci == cj {
			return contacts[i].ExternalRowID < contacts[j].ExternalRowID
		}
		return ci < cj
	})
}

// scheduledToday returns the contact's scheduled time within [dayStart,
// dayEnd), preferring the earlier of callback and meeting when both fall
// today. Callbacks carry date precision and sort at the start of the day.
func scheduledToday(c *models.Contact, dayStart, dayEnd time.Time) (time.Time, bool) {
	var best time.Time
	found := false

	if c.CallbackOn != nil {
		cb := time.Date(c.CallbackOn.Year(), c.CallbackOn.Month(), c.CallbackOn.Day(), 0, 0, 0, 0, dayStart.Location())
		if !cb.Before(dayStart) && cb.Before(dayEnd) {
			best = cb
			found = true
		}
	}
	if c.MeetingAt != nil && !c.MeetingAt.Before(dayStart) && c.MeetingAt.Before(dayEnd) {
		if !found || c.MeetingAt.Before(best) {
			best = *c.MeetingAt
			found = true
		}
	}
	return best, found
}

// overdueBy returns how many whole days past due the contact is. Meetings
// in the past count from their scheduled time; callbacks from the end of
// their scheduled day.
func overdueBy(c *models.Contact, now time.Time) int {
	days := 0

	if c.CallbackOn != nil {
		y, m, d := now.Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		cb := time.Date(c.CallbackOn.Year(), c.CallbackOn.Month(), c.CallbackOn.Day(), 0, 0, 0, 0, now.Location())
		if cb.Before(today) {
			days = int(today.Sub(cb).Hours() / 24)
		}
	}
	if c.MeetingAt != nil && c.MeetingAt.Before(now) {
		meetingDays := int(now.Sub(*c.MeetingAt).Hours()/24) + 1
		if meetingDays > days {
			days = meetingDays
		}
	}
	return days
}
