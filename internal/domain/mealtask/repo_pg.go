package mealtask

import (
	"context"
	"fmt"
	"time"

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

type taskRepoPG struct{ pool *pgxpool.Pool }

func NewTaskRepoPG(pool *pgxpool.Pool) TaskRepository {
	return &taskRepoPG{pool: pool}
}

func (r *taskRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const taskCols = `t.id, t.name, t.patient_id, t.delivery_staff_id, t.pantry_staff_id, t.meal_type, t.status,
	t.scheduled_at, t.delivered_at, t.created_at, t.updated_at`

const joinedCols = taskCols + `,
	p.name, p.room, p.bed, p.floor, d.name, d.email, ps.name`

const joinedFrom = ` FROM meal_task t
	JOIN patient p ON p.id = t.patient_id
	JOIN principal d ON d.id = t.delivery_staff_id
	LEFT JOIN principal ps ON ps.id = t.pantry_staff_id`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	if err := row.Scan(&t.ID, &t.Name, &t.PatientID, &t.DeliveryStaffID, &t.PantryStaffID,
		&t.MealType, &t.Status, &t.ScheduledAt, &t.DeliveredAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, db.ClassifyError(err, "task")
	}
	return &t, nil
}

func scanJoined(row pgx.Row) (*Task, error) {
	var t Task
	var p PatientSummary
	var d StaffSummary
	var pantryName *string
	if err := row.Scan(&t.ID, &t.Name, &t.PatientID, &t.DeliveryStaffID, &t.PantryStaffID,
		&t.MealType, &t.Status, &t.ScheduledAt, &t.DeliveredAt, &t.CreatedAt, &t.UpdatedAt,
		&p.Name, &p.Room, &p.Bed, &p.Floor, &d.Name, &d.Email, &pantryName); err != nil {
		return nil, db.ClassifyError(err, "task")
	}
	d.ID = t.DeliveryStaffID
	t.Patient = &p
	t.DeliveryStaff = &d
	if t.PantryStaffID != nil && pantryName != nil {
		t.PantryStaff = &StaffSummary{ID: *t.PantryStaffID, Name: *pantryName}
	}
	return &t, nil
}

func collect(rows pgx.Rows, scan func(pgx.Row) (*Task, error)) ([]*Task, error) {
	defer rows.Close()
	var items []*Task
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *taskRepoPG) Create(ctx context.Context, t *Task) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO meal_task (id, name, patient_id, delivery_staff_id, pantry_staff_id, meal_type, status, scheduled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		t.ID, t.Name, t.PatientID, t.DeliveryStaffID, t.PantryStaffID, t.MealType, t.Status, t.ScheduledAt,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return db.ClassifyError(err, "task")
}

func (r *taskRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	return scanJoined(r.conn(ctx).QueryRow(ctx, `SELECT `+joinedCols+joinedFrom+` WHERE t.id = $1`, id))
}

func (r *taskRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, deliveredAt *time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE meal_task SET status = $2, delivered_at = COALESCE($3, delivered_at), updated_at = NOW()
		WHERE id = $1`, id, status, deliveredAt)
	if err != nil {
		return db.ClassifyError(err, "task")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("task not found")
	}
	return nil
}

func (r *taskRepoPG) UpdateAssignment(ctx context.Context, id, staffID uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE meal_task SET delivery_staff_id = $2, status = $3, updated_at = NOW()
		WHERE id = $1`, id, staffID, status)
	if err != nil {
		return db.ClassifyError(err, "task")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("task not found")
	}
	return nil
}

func (r *taskRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Task, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.DeliveryStaffID != nil {
		where += fmt.Sprintf(` AND t.delivery_staff_id = $%d`, idx)
		args = append(args, *f.DeliveryStaffID)
		idx++
	}
	if f.PantryStaffID != nil {
		where += fmt.Sprintf(` AND t.pantry_staff_id = $%d`, idx)
		args = append(args, *f.PantryStaffID)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM meal_task t`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	order := ` ORDER BY t.created_at DESC, t.id`
	if f.Order == NewestScheduled {
		order = ` ORDER BY t.scheduled_at DESC, t.id`
	}
	query := `SELECT ` + joinedCols + joinedFrom + where + order + fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	items, err := collect(rows, scanJoined)
	return items, total, err
}

func (r *taskRepoPG) ListPending(ctx context.Context) ([]*Task, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+joinedCols+joinedFrom+`
		WHERE t.status <> 'DELIVERED' ORDER BY t.scheduled_at, t.id`)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return collect(rows, scanJoined)
}

func (r *taskRepoPG) ListRecent(ctx context.Context, limit int) ([]*Task, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+joinedCols+joinedFrom+`
		ORDER BY t.updated_at DESC, t.id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent tasks: %w", err)
	}
	return collect(rows, scanJoined)
}

func (r *taskRepoPG) ListAll(ctx context.Context) ([]*Task, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+taskCols+` FROM meal_task t ORDER BY t.created_at, t.id`)
	if err != nil {
		return nil, fmt.Errorf("list all tasks: %w", err)
	}
	return collect(rows, scanTask)
}

func (r *taskRepoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM meal_task WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}
