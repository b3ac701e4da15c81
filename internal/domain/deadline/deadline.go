// Package deadline computes the weekly order cutoff.
//
// Orders for the coming week close every Monday at 12:00 local time. The
// functions here are pure: callers pass the current time, so the cutoff is
// re-evaluated on every request.
package deadline

import "time"

// CutoffHour is the hour of day (local time) at which the weekly cutoff falls.
const CutoffHour = 12

// Next returns the first upcoming Monday 12:00 in now's location. On a Monday
// before 12:00 that is today; on a Monday after 12:00 it is a week away.
func Next(now time.Time) time.Time {
	if now.Weekday() == time.Monday && now.Hour() < CutoffHour {
		return time.Date(now.Year(), now.Month(), now.Day(), CutoffHour, 0, 0, 0, now.Location())
	}

	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	next := now.AddDate(0, 0, days)

	return time.Date(next.Year(), next.Month(), next.Day(), CutoffHour, 0, 0, 0, now.Location())
}

// Remaining describes the time left until the next cutoff.
type Remaining struct {
	Deadline   time.Time `json:"deadline"`
	Days       int       `json:"days"`
	Hours      int       `json:"hours"`
	Minutes    int       `json:"minutes"`
	TotalHours int       `json:"total_hours"`
	Urgent     bool      `json:"is_urgent"`
}

// Until breaks down the time between now and the next cutoff. Urgent is set
// when less than 24 hours remain.
func Until(now time.Time) Remaining {
	dl := Next(now)
	diff := dl.Sub(now)

	totalMinutes := int(diff.Minutes())
	totalHours := totalMinutes / 60

	return Remaining{
		Deadline:   dl,
		Days:       totalHours / 24,
		Hours:      totalHours % 24,
		Minutes:    totalMinutes % 60,
		TotalHours: totalHours,
		Urgent:     diff < 24*time.Hour,
	}
}
