package mealtask

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
)

type MealType string

const (
	Breakfast MealType = "BREAKFAST"
	Lunch     MealType = "LUNCH"
	Dinner    MealType = "DINNER"
)

// ParseMealType accepts the meal type in any letter case.
func ParseMealType(s string) (MealType, error) {
	switch mt := MealType(strings.ToUpper(strings.TrimSpace(s))); mt {
	case Breakfast, Lunch, Dinner:
		return mt, nil
	}
	return "", apperr.Validation("invalid meal type %q: must be BREAKFAST, LUNCH or DINNER", s)
}

// Task is one scheduled meal for one patient.
type Task struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Name            *string    `db:"name" json:"name"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	DeliveryStaffID uuid.UUID  `db:"delivery_staff_id" json:"delivery_staff_id"`
	PantryStaffID   *uuid.UUID `db:"pantry_staff_id" json:"pantry_staff_id"`
	MealType        MealType   `db:"meal_type" json:"meal_type"`
	Status          Status     `db:"status" json:"status"`
	ScheduledAt     time.Time  `db:"scheduled_at" json:"scheduled_at"`
	DeliveredAt     *time.Time `db:"delivered_at" json:"delivered_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	Patient       *PatientSummary `json:"patient,omitempty"`
	DeliveryStaff *StaffSummary   `json:"delivery_staff,omitempty"`
	PantryStaff   *StaffSummary   `json:"pantry_staff,omitempty"`
}

type PatientSummary struct {
	Name  string `json:"name"`
	Room  int    `json:"room"`
	Bed   int    `json:"bed"`
	Floor int    `json:"floor"`
}

type StaffSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// CreateInput is the body of POST /pantry/tasks. ScheduledAt defaults to
// the creation instant.
type CreateInput struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	MealType    string     `json:"meal_type"`
	Name        string     `json:"name"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type StatusInput struct {
	Status string `json:"status"`
}

type AssignInput struct {
	StaffID uuid.UUID `json:"staff_id"`
}

// StaffPending is a delivery staff member with the tasks not yet delivered.
type StaffPending struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PendingTasks []*Task   `json:"pending_tasks"`
}

const (
	WorkloadAvailable  = "available"
	WorkloadDelivering = "delivering"
)

// StaffWorkload is one row of the delivery workload board.
type StaffWorkload struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	AssignedMeals int       `json:"assignedMeals"`
	Status        string    `json:"status"`
}

// Update is a human readable line describing a task's latest change.
type Update struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}
