package domain

// MealPlanRequest holds the user-supplied generation parameters.
type MealPlanRequest struct {
	DietType  string `json:"dietType" validate:"required"`
	Calories  int    `json:"calories" validate:"required,gt=0"`
	Allergies string `json:"allergies"`
	Cuisine   string `json:"cuisine"`
	Snacks    bool   `json:"snacks"`
}

// MealPlan maps a day name to its meals, keyed by slot (Breakfast, Lunch, ...).
type MealPlan map[string]map[string]string
