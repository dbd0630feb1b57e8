package plan

import "techheal/cmd/identity"

// WellnessScore summarizes profile completeness and recent activity.
type WellnessScore struct {
	WellnessScore         int  `json:"wellness_score"`
	ProfileComplete       bool `json:"profile_complete"`
	RecentActivitiesCount int  `json:"recent_activities_count"`
}

// ComputeWellnessScore scores profile completeness (up to 30), recent
// activity volume (up to 40), and a consistency bonus (up to 30), capped
// at 100.
func ComputeWellnessScore(u identity.User, recentActivities int) WellnessScore {
	score := 0

	if u.Age != nil {
		score += 5
	}
	if u.WeightKg != nil {
		score += 5
	}
	if u.HeightCm != nil {
		score += 5
	}
	if u.Goal != nil {
		score += 5
	}
	if u.Diet != nil {
		score += 5
	}
	if u.ActivityLevel != nil {
		score += 5
	}

	activityPoints := recentActivities * 5
	if activityPoints > 40 {
		activityPoints = 40
	}
	score += activityPoints

	switch {
	case recentActivities >= 5:
		score += 30
	case recentActivities >= 3:
		score += 20
	case recentActivities >= 1:
		score += 10
	}

	if score > 100 {
		score = 100
	}

	return WellnessScore{
		WellnessScore:         score,
		ProfileComplete:       score >= 30,
		RecentActivitiesCount: recentActivities,
	}
}
