package alert

import (
	"context"

	"github.com/google/uuid"
)

type AlertRepository interface {
	// List returns alerts newest first with the patient joined.
	List(ctx context.Context, limit, offset int) ([]*Alert, int, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) (int64, error)
}
