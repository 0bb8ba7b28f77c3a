package patient

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID               uuid.UUID    `db:"id" json:"id"`
	Name             string       `db:"name" json:"name"`
	Room             int          `db:"room" json:"room"`
	Bed              int          `db:"bed" json:"bed"`
	Floor            int          `db:"floor" json:"floor"`
	Age              int          `db:"age" json:"age"`
	Gender           string       `db:"gender" json:"gender"`
	Diseases         []string     `db:"diseases" json:"diseases"`
	Allergies        []string     `db:"allergies" json:"allergies"`
	Contact          string       `db:"contact" json:"contact"`
	EmergencyContact string       `db:"emergency_contact" json:"emergency_contact"`
	DietCharts       []*DietChart `json:"diet_charts"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// DietChart is the per-meal plan attached to a patient. A patient gets one
// at admission; reads return every chart the patient owns.
type DietChart struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Breakfast MealPlan  `db:"breakfast" json:"breakfast"`
	Lunch     MealPlan  `db:"lunch" json:"lunch"`
	Dinner    MealPlan  `db:"dinner" json:"dinner"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MealPlan is one slot of a diet chart. Stored as JSONB.
type MealPlan struct {
	Items        []string  `json:"items"`
	Calories     int       `json:"calories"`
	Restrictions string    `json:"restrictions"`
	Nutrients    Nutrients `json:"nutrients"`
}

type Nutrients struct {
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatsG    float64 `json:"fats_g"`
}

// String renders the display form "protein: 20g, carbs: 30g, fats: 10g".
func (n Nutrients) String() string {
	return "protein: " + grams(n.ProteinG) + ", carbs: " + grams(n.CarbsG) + ", fats: " + grams(n.FatsG)
}

func grams(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "g"
}

// Clean drops blank item names, keeping the order of the rest.
func (m MealPlan) Clean() MealPlan {
	items := make([]string, 0, len(m.Items))
	for _, it := range m.Items {
		if it = strings.TrimSpace(it); it != "" {
			items = append(items, it)
		}
	}
	m.Items = items
	m.Restrictions = strings.TrimSpace(m.Restrictions)
	return m
}

// Equal reports structural equality of two meal plans.
func (m MealPlan) Equal(o MealPlan) bool {
	if m.Calories != o.Calories || m.Restrictions != o.Restrictions || m.Nutrients != o.Nutrients {
		return false
	}
	if len(m.Items) != len(o.Items) {
		return false
	}
	for i := range m.Items {
		if m.Items[i] != o.Items[i] {
			return false
		}
	}
	return true
}

// SameMeals reports whether two charts prescribe identical meals.
func (d *DietChart) SameMeals(o *DietChart) bool {
	return d.Breakfast.Equal(o.Breakfast) && d.Lunch.Equal(o.Lunch) && d.Dinner.Equal(o.Dinner)
}

type DietChartInput struct {
	Breakfast MealPlan `json:"breakfast"`
	Lunch     MealPlan `json:"lunch"`
	Dinner    MealPlan `json:"dinner"`
}

// CreateInput is the body of POST /patients.
type CreateInput struct {
	Name             string         `json:"name"`
	Room             int            `json:"room"`
	Bed              int            `json:"bed"`
	Floor            int            `json:"floor"`
	Age              int            `json:"age"`
	Gender           string         `json:"gender"`
	Diseases         []string       `json:"diseases"`
	Allergies        []string       `json:"allergies"`
	Contact          string         `json:"contact"`
	EmergencyContact string         `json:"emergency_contact"`
	DietChart        DietChartInput `json:"diet_chart"`
}

// UpdateInput changes patient demographics. Nil fields are left as is.
type UpdateInput struct {
	Name             *string   `json:"name"`
	Room             *int      `json:"room"`
	Bed              *int      `json:"bed"`
	Floor            *int      `json:"floor"`
	Age              *int      `json:"age"`
	Gender           *string   `json:"gender"`
	Diseases         *[]string `json:"diseases"`
	Allergies        *[]string `json:"allergies"`
	Contact          *string   `json:"contact"`
	EmergencyContact *string   `json:"emergency_contact"`
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
