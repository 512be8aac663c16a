package views

import (
	"testing"
	"time"

	"github.com/harperreed/dialdeck/models"
)

var testNow = time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

func dayPtr(t time.Time) *time.Time { return &t }

func contact(id, company, status string) models.Contact {
	return models.Contact{
		ExternalRowID: id,
		Name:          "Contact " + id,
		Company:       company,
		Phone:         "3125551234",
		Status:        status,
	}
}

func ids(contacts []models.Contact) []string {
	out := make([]string, len(contacts))
	for i, c := range contacts {
		out[i] = c.ExternalRowID
	}
	return out
}

func assertOrder(t *testing.T, got []models.Contact, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("Expected %v, got %v", want, gotIDs)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, gotIDs)
		}
	}
}

func TestToday(t *testing.T) {
	cbToday := contact("a", "Acme", models.StatusCallback)
	cbToday.CallbackOn = dayPtr(time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC))

	mtgMorning := contact("b", "Initech", models.StatusMeetingBooked)
	mtgMorning.MeetingAt = dayPtr(time.Date(2026, 7, 15, 9, 0, 0, 0, time.UTC))

	mtgAfternoon := contact("c", "Globex", models.StatusMeetingBooked)
	mtgAfternoon.MeetingAt = dayPtr(time.Date(2026, 7, 15, 15, 0, 0, 0, time.UTC))

	cbTomorrow := contact("d", "Umbrella", models.StatusCallback)
	cbTomorrow.CallbackOn = dayPtr(time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC))

	terminal := contact("e", "Wayne", models.StatusCloseWon)
	terminal.MeetingAt = dayPtr(time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC))

	all := []models.Contact{mtgAfternoon, cbTomorrow, terminal, mtgMorning, cbToday}
	// Date-precision callbacks sort at start of day, then meetings by time
	assertOrder(t, Today(all, testNow), "a", "b", "c")
}

func TestOverdueOrdering(t *testing.T) {
	oneDay := contact("x", "Acme", models.StatusCallback)
	oneDay.CallbackOn = dayPtr(testNow.AddDate(0, 0, -1))

	threeDays := contact("y", "Initech", models.StatusCallback)
	threeDays.CallbackOn = dayPtr(testNow.AddDate(0, 0, -3))

	fiveDays := contact("z", "Globex", models.StatusCallback)
	fiveDays.CallbackOn = dayPtr(testNow.AddDate(0, 0, -5))

	dueToday := contact("w", "Umbrella", models.StatusCallback)
	dueToday.CallbackOn = dayPtr(testNow)

	all := []models.Contact{oneDay, dueToday, fiveDays, threeDays}
	// Most overdue first; today's callbacks are not overdue yet
	assertOrder(t, Overdue(all, testNow), "z", "y", "x")
}

func TestOverdueMeetingCounts(t *testing.T) {
	pastMeeting := contact("m", "Acme", models.StatusMeetingBooked)
	pastMeeting.MeetingAt = dayPtr(testNow.Add(-2 * time.Hour))

	futureMeeting := contact("n", "Initech", models.StatusMeetingBooked)
	futureMeeting.MeetingAt = dayPtr(testNow.Add(2 * time.Hour))

	got := Overdue([]models.Contact{futureMeeting, pastMeeting}, testNow)
	assertOrder(t, got, "m")
}

func TestOverdueExcludesTerminal(t *testing.T) {
	gone := contact("g", "Acme", models.StatusDoNotCall)
	gone.CallbackOn = dayPtr(testNow.AddDate(0, 0, -10))

	if got := Overdue([]models.Contact{gone}, testNow); len(got) != 0 {
		t.Errorf("Terminal contacts should never be overdue, got %v", ids(got))
	}
}

func TestNew(t *testing.T) {
	fresh := contact("a", "Beta", models.StatusNew)

	called := contact("b", "Alpha", models.StatusNew)
	called.LastCallAt = dayPtr(testNow.Add(-24 * time.Hour))

	freshNoAnswer := contact("c", "Alpha", models.StatusNoAnswer)

	terminal := contact("d", "Gamma", models.StatusDeleted)

	all := []models.Contact{fresh, called, freshNoAnswer, terminal}
	// Never-called actives, alphabetical by company
	assertOrder(t, New(all), "c", "a")
}

func TestAll(t *testing.T) {
	a := contact("a", "Zeta", models.StatusNew)
	b := contact("b", "alpha", models.StatusCallback) // case-insensitive ordering
	c := contact("c", "Mid", models.StatusCloseLost)

	assertOrder(t, All([]models.Contact{a, b, c}), "b", "a")
}

func TestClientsAndCemetery(t *testing.T) {
	won := contact("a", "Acme", models.StatusCloseWon)
	lost := contact("b", "Initech", models.StatusCloseLost)
	active := contact("c", "Globex", models.StatusNew)

	all := []models.Contact{won, lost, active}
	assertOrder(t, Clients(all), "a")
	assertOrder(t, Cemetery(all), "b")
}

func TestByName(t *testing.T) {
	a := contact("a", "Acme", models.StatusNew)
	all := []models.Contact{a}

	for _, name := range Names {
		// Every published name dispatches without panicking
		ByName(name, all, testNow)
	}

	// Unknown names fall back to the all view
	got := ByName("bogus", all, testNow)
	assertOrder(t, got, "a")
}

func TestTieBreaksDeterministic(t *testing.T) {
	a := contact("a", "Same Co", models.StatusNew)
	b := contact("b", "Same Co", models.StatusNew)

	first := All([]models.Contact{b, a})
	second := All([]models.Contact{a, b})
	assertOrder(t, first, "a", "b")
	assertOrder(t, second, "a", "b")
}
