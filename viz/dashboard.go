// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides ASCII overview of the pipeline, today's work, and stale contacts
package viz

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
	"github.com/harperreed/dialdeck/views"
)

type DashboardStats struct {
	CountsByStatus map[string]int
	TotalContacts  int

	DueToday int
	Overdue  int
	Fresh    int

	// StaleContacts have sat without a call for 30+ days.
	StaleContacts []StaleContact
}

type StaleContact struct {
	Name      string
	DaysSince int
}

func GenerateDashboardStats(database *sql.DB) (*DashboardStats, error) {
	stats := &DashboardStats{}

	counts, err := db.CountByStatus(database)
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}
	stats.CountsByStatus = counts
	for _, n := range counts {
		stats.TotalContacts += n
	}

	contacts, err := db.ListContacts(database, db.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}

	now := time.Now()
	stats.DueToday = len(views.Today(contacts, now))
	stats.Overdue = len(views.Overdue(contacts, now))
	stats.Fresh = len(views.New(contacts))

	for i := range contacts {
		c := &contacts[i]
		if !c.Active() || c.LastCallAt == nil {
			continue
		}
		daysSince := int(now.Sub(*c.LastCallAt).Hours() / 24)
		if daysSince > 30 {
			stats.StaleContacts = append(stats.StaleContacts, StaleContact{
				Name:      c.Name,
				DaysSince: daysSince,
			})
		}
	}

	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  DIALDECK DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE\n")
	renderFunnel(&out, stats.CountsByStatus)
	out.WriteString("\n")

	out.WriteString("TODAY\n")
	out.WriteString(fmt.Sprintf("  📞 %d due today  ⏰ %d overdue  ✨ %d never called\n\n",
		stats.DueToday, stats.Overdue, stats.Fresh))

	if len(stats.StaleContacts) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		out.WriteString(fmt.Sprintf("  ⚠️  %d contacts - no call in 30+ days\n", len(stats.StaleContacts)))
	}

	return out.String()
}

func renderFunnel(out *strings.Builder, counts map[string]int) {
	maxCount := 0
	for _, status := range models.AllStatuses {
		if counts[status] > maxCount {
			maxCount = counts[status]
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, status := range models.AllStatuses {
		count, exists := counts[status]
		if !exists || count == 0 {
			continue
		}

		barLength := (count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-15s %s  %3d\n", status, bar, count))
	}
}
