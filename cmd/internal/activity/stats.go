package activity

import "time"

// caloriesPerMinute is the flat estimate applied to every activity type.
const caloriesPerMinute = 6

// Stats summarizes the last seven days of activity. The JSON keys are the
// mobile client's contract; do not rename them.
type Stats struct {
	TotalMinutes    int `json:"totalMinutes"`
	TotalActivities int `json:"totalActivities"`
	CaloriesBurned  int `json:"caloriesBurned"`
	Streak          int `json:"streak"`
}

// ComputeStats derives totals from activity entries. Entries older than seven
// days before now only feed the streak, not the weekly totals.
func ComputeStats(entries []Activity, now time.Time) Stats {
	weekStart := now.AddDate(0, 0, -7)

	var s Stats
	allDays := map[string]bool{}

	for _, a := range entries {
		allDays[a.CreatedAt.UTC().Format(time.DateOnly)] = true

		if a.CreatedAt.Before(weekStart) {
			continue
		}
		s.TotalActivities++
		s.TotalMinutes += a.DurationMinutes
	}

	s.CaloriesBurned = s.TotalMinutes * caloriesPerMinute
	s.Streak = streak(allDays, now)
	return s
}

// streak counts consecutive active days ending today. A streak that is still
// alive but has no entry yet today starts counting from yesterday.
func streak(days map[string]bool, now time.Time) int {
	day := now.UTC().Truncate(24 * time.Hour)
	if !days[day.Format(time.DateOnly)] {
		day = day.AddDate(0, 0, -1)
	}

	n := 0
	for days[day.Format(time.DateOnly)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}
