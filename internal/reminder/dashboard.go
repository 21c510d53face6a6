package reminder

import (
	"time"

	"github.com/haircarepro/haircarepro/internal/model"
)

// DashboardAlert returns the routine alert shown on the dashboard, or ""
// when the next wash is not yet due. A wash is due once today reaches the
// calendar date of the last reminder (or plan creation) plus the interval.
// A reminder stamped today keeps the alert up for the rest of that day, so
// the dashboard agrees with the email the user just received.
func DashboardAlert(record *model.CarePlanRecord, username string, now time.Time) string {
	if record == nil || record.CarePlan.IsError() {
		return ""
	}

	today := startOfDay(now)
	if last := record.LastReminderSent; last != nil && startOfDay(last.In(now.Location())).Equal(today) {
		return alertText(username)
	}

	days := dashboardIntervalDays(record.CarePlan.WashFrequency)
	next := startOfDay(record.ReminderAnchor().In(now.Location())).AddDate(0, 0, days)

	if today.Before(next) {
		return ""
	}
	return alertText(username)
}

func alertText(username string) string {
	return "Hey " + username + ", it's time to follow your hair care routine!"
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
