package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
	"github.com/hospitalfood/foodsvc/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type principalRepoPG struct{ pool *pgxpool.Pool }

func NewPrincipalRepoPG(pool *pgxpool.Pool) PrincipalRepository {
	return &principalRepoPG{pool: pool}
}

func (r *principalRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const principalCols = `id, role, email, password_hash, name, contact, location, staff_role, created_at, updated_at`

func scanPrincipal(row pgx.Row) (*Principal, error) {
	var p Principal
	var contact, location, staffRole *string
	if err := row.Scan(&p.ID, &p.Role, &p.Email, &p.PasswordHash, &p.Name,
		&contact, &location, &staffRole, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, db.ClassifyError(err, "user")
	}
	if p.Role == RolePantry {
		p.PantryProfile = &PantryProfile{
			Contact:   deref(contact),
			Location:  deref(location),
			StaffRole: deref(staffRole),
		}
	}
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// profileArgs returns the nullable pantry columns for p.
func profileArgs(p *Principal) (contact, location, staffRole *string) {
	if p.PantryProfile == nil {
		return nil, nil, nil
	}
	return &p.Contact, &p.Location, &p.StaffRole
}

func (r *principalRepoPG) Create(ctx context.Context, p *Principal) error {
	p.ID = uuid.New()
	contact, location, staffRole := profileArgs(p)
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO principal (id, role, email, password_hash, name, contact, location, staff_role)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		p.ID, p.Role, p.Email, p.PasswordHash, p.Name, contact, location, staffRole,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Wrap(apperr.KindConflict, "user with this email already exists", err)
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (r *principalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	return scanPrincipal(r.conn(ctx).QueryRow(ctx,
		`SELECT `+principalCols+` FROM principal WHERE id = $1`, id))
}

// GetByEmail keeps the historical lookup order (pantry, then admin, then
// delivery) should more than one row ever match.
func (r *principalRepoPG) GetByEmail(ctx context.Context, email string) (*Principal, error) {
	return scanPrincipal(r.conn(ctx).QueryRow(ctx, `
		SELECT `+principalCols+` FROM principal
		WHERE lower(email) = lower($1)
		ORDER BY CASE role WHEN 'pantry' THEN 0 WHEN 'admin' THEN 1 ELSE 2 END
		LIMIT 1`, email))
}

func (r *principalRepoPG) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM principal WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

func (r *principalRepoPG) Update(ctx context.Context, p *Principal) error {
	contact, location, staffRole := profileArgs(p)
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE principal SET name=$2, contact=$3, location=$4, staff_role=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, contact, location, staffRole,
	).Scan(&p.UpdatedAt)
	return db.ClassifyError(err, "user")
}

func (r *principalRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM principal WHERE id = $1`, id)
	if err != nil {
		return db.ClassifyError(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *principalRepoPG) ListByRole(ctx context.Context, role string, limit, offset int) ([]*Principal, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM principal WHERE role = $1`, role).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+principalCols+` FROM principal WHERE role = $1
		ORDER BY name, id LIMIT $2 OFFSET $3`, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *principalRepoPG) FirstByRole(ctx context.Context, role string) (*Principal, error) {
	return scanPrincipal(r.conn(ctx).QueryRow(ctx, `
		SELECT `+principalCols+` FROM principal WHERE role = $1
		ORDER BY created_at, id LIMIT 1`, role))
}
