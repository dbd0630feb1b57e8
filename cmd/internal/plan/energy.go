// Package plan derives calorie targets and builds 7-day nutrition and
// workout plans, with an AI path and a static fallback.
package plan

// BMR is the Mifflin-St Jeor basal metabolic rate.
func BMR(weightKg, heightCm, age int, gender string) float64 {
	base := 10*float64(weightKg) + 6.25*float64(heightCm) - 5*float64(age)
	if gender == "female" {
		return base - 161
	}
	return base + 5
}

var tdeeMultipliers = map[string]float64{
	"sedentary":    1.2,
	"light":        1.375,
	"moderate":     1.55,
	"very_active":  1.725,
	"extra_active": 1.9,
}

// TDEE is total daily energy expenditure; unknown activity levels fall back
// to the moderate multiplier.
func TDEE(bmr float64, activityLevel string) int {
	m, ok := tdeeMultipliers[activityLevel]
	if !ok {
		m = 1.55
	}
	return int(bmr * m)
}

// AdjustForGoal shifts the calorie target: a 500 kcal deficit to lose,
// a 300 kcal surplus to gain.
func AdjustForGoal(tdee int, goal string) int {
	switch goal {
	case "lose":
		return tdee - 500
	case "gain":
		return tdee + 300
	default:
		return tdee
	}
}
