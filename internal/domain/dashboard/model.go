package dashboard

type PantryMetrics struct {
	MealsToday          int     `json:"mealsToday"`
	OnTimeDeliveryRate  float64 `json:"onTimeDeliveryRate"`
	WastageRate         float64 `json:"wastageRate"`
	TotalMealsDelivered int     `json:"totalMealsDelivered"`
}

type DeliveryMetrics struct {
	MealsDeliveredToday int `json:"mealsDeliveredToday"`
	TotalMealsDelivered int `json:"totalMealsDelivered"`
	PendingDeliveries   int `json:"pendingDeliveries"`
}

// DietPlan is a group of patients whose diet charts prescribe identical
// meals.
type DietPlan struct {
	Name         string    `json:"name"`
	PatientCount int       `json:"patientCount"`
	Meals        PlanMeals `json:"meals"`
}

type PlanMeals struct {
	Breakfast []string `json:"breakfast"`
	Lunch     []string `json:"lunch"`
	Dinner    []string `json:"dinner"`
}
