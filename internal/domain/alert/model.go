package alert

import (
	"time"

	"github.com/google/uuid"
)

// Alert is a patient notice raised outside this service and listed on the
// dashboards.
type Alert struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	Type      string        `db:"type" json:"type"`
	Message   string        `db:"message" json:"message"`
	PatientID uuid.UUID     `db:"patient_id" json:"patient_id"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	Patient   *PatientBrief `json:"patient,omitempty"`
}

type PatientBrief struct {
	Name  string `json:"name"`
	Room  int    `json:"room"`
	Bed   int    `json:"bed"`
	Floor int    `json:"floor"`
}
