package mealtask

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Order int

const (
	// NewestCreated orders by created_at descending.
	NewestCreated Order = iota
	// NewestScheduled orders by scheduled_at descending.
	NewestScheduled
)

type ListFilter struct {
	DeliveryStaffID *uuid.UUID
	PantryStaffID   *uuid.UUID
	Order           Order
}

// TaskRepository reads return tasks with patient and staff summaries
// joined, except ListAll.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, deliveredAt *time.Time) error
	UpdateAssignment(ctx context.Context, id, staffID uuid.UUID, status Status) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Task, int, error)
	// ListPending returns every task not yet delivered.
	ListPending(ctx context.Context) ([]*Task, error)
	// ListRecent returns the most recently updated tasks.
	ListRecent(ctx context.Context, limit int) ([]*Task, error)
	// ListAll returns every task without joins, for metrics.
	ListAll(ctx context.Context) ([]*Task, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) (int64, error)
}
