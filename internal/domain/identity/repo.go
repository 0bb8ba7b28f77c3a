package identity

import (
	"context"

	"github.com/google/uuid"
)

type PrincipalRepository interface {
	Create(ctx context.Context, p *Principal) error
	GetByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, p *Principal) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*Principal, int, error)
	// FirstByRole returns the oldest principal with role, ties broken by id.
	FirstByRole(ctx context.Context, role string) (*Principal, error)
}
