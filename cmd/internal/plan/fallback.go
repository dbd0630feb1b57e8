package plan

// MealDay is one day of the 7-day meal plan.
type MealDay struct {
	Day       int    `json:"day"`
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Dinner    string `json:"dinner"`
}

// WorkoutDay is one day of the 7-day workout routine.
type WorkoutDay struct {
	Day      int    `json:"day"`
	Workout  string `json:"workout"`
	Duration int    `json:"duration"`
}

var fallbackMealPlans = map[string][]MealDay{
	"vegan": {
		{1, "Harissa Shakshuka with chickpeas", "Couscous with roasted vegetables", "Tunisian lentil soup (Chorba)"},
		{2, "Olive oil flatbread with zaatar", "Stuffed peppers with quinoa", "Mechouia salad with chickpeas"},
		{3, "Tunisian chickpea stew", "Grilled eggplant with tahini", "Couscous with seven vegetables"},
		{4, "Whole grain msemen with honey", "Tunisian vegetable tajine", "Lentil salad with harissa dressing"},
		{5, "Fresh figs with almonds", "Brik with vegetables (no egg)", "White bean stew with harissa"},
		{6, "Tunisian chickpea soup", "Grilled vegetables with couscous", "Mechouia with olive oil"},
		{7, "Dates with nuts and mint tea", "Mediterranean veggie wrap", "Tunisian vegetable stew"},
	},
	"keto": {
		{1, "Tunisian brik with egg and tuna", "Grilled sea bass with harissa", "Lamb kebabs with mechouia"},
		{2, "Shakshuka with merguez", "Grilled sardines with olive oil", "Lamb tajine with vegetables"},
		{3, "Cheese omelette with harissa", "Grilled octopus salad", "Tunisian grilled chicken"},
		{4, "Brik with egg and harissa", "Sea bream with lemon", "Merguez with mechouia salad"},
		{5, "Poached eggs with olive oil", "Grilled prawns with garlic", "Lamb chops with herbs"},
		{6, "Tunisian egg tajine", "Grilled tuna steak", "Chicken with preserved lemon"},
		{7, "Shakshuka with merguez", "Mixed seafood grill", "Lamb kofta with salad"},
	},
	"balanced": {
		{1, "Tunisian breakfast with olive oil and eggs", "Couscous with chicken and vegetables", "Grilled fish with mechouia salad"},
		{2, "Brik with egg and tuna", "Lamb tajine with prunes", "Tunisian chickpea soup"},
		{3, "Msemen with honey and almonds", "Grilled sea bass with couscous", "Vegetable tajine"},
		{4, "Shakshuka with bread", "Chicken with preserved lemon", "Tunisian salad with tuna"},
		{5, "Tunisian pastry with dates", "Couscous royal (mixed meats)", "Grilled sardines with salad"},
		{6, "Olive oil flatbread with harissa", "Fish tagine with vegetables", "Lentil soup with bread"},
		{7, "Fresh figs with yogurt", "Lamb couscous", "Grilled prawns with salad"},
	},
}

// FallbackMealPlan returns the static Mediterranean/Tunisian meal plan for
// the diet; unknown diets get the balanced plan.
func FallbackMealPlan(diet string) []MealDay {
	if p, ok := fallbackMealPlans[diet]; ok {
		return p
	}
	return fallbackMealPlans["balanced"]
}

// FallbackWorkoutRoutine returns the static 7-day routine for the goal.
func FallbackWorkoutRoutine(goal string) []WorkoutDay {
	switch goal {
	case "lose":
		return []WorkoutDay{
			{1, "Cardio - 30 min Running", 30},
			{2, "Strength Training - Full Body", 45},
			{3, "Cardio - 30 min Cycling", 30},
			{4, "Strength Training - Upper Body", 45},
			{5, "Cardio - 30 min Swimming", 30},
			{6, "Strength Training - Lower Body", 45},
			{7, "Active Rest - Yoga or Walking", 20},
		}
	case "gain":
		return []WorkoutDay{
			{1, "Strength Training - Chest & Triceps", 60},
			{2, "Strength Training - Back & Biceps", 60},
			{3, "Light Cardio - 20 min", 20},
			{4, "Strength Training - Legs", 60},
			{5, "Strength Training - Shoulders", 60},
			{6, "Light Cardio - 20 min", 20},
			{7, "Rest", 0},
		}
	default:
		return []WorkoutDay{
			{1, "Full Body Strength Training", 45},
			{2, "Cardio - 25 min Running", 25},
			{3, "Full Body Strength Training", 45},
			{4, "Cardio - 25 min Cycling", 25},
			{5, "Full Body Strength Training", 45},
			{6, "Active Rest - Yoga", 30},
			{7, "Rest", 0},
		}
	}
}
