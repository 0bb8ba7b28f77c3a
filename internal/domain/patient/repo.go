package patient

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List orders by room, bed, then id.
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type DietChartRepository interface {
	Create(ctx context.Context, d *DietChart) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*DietChart, error)
	// ListByPatients returns the charts of the given patients keyed by
	// patient id.
	ListByPatients(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID][]*DietChart, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) (int64, error)
	// ListAll returns every chart ordered by created_at, id.
	ListAll(ctx context.Context) ([]*DietChart, error)
}

// Dependents removes rows owned by a patient in other packages: meal tasks
// and alerts. Patient deletion calls it inside the same transaction.
type Dependents interface {
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) (int64, error)
}
