package alert

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospitalfood/foodsvc/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewAlertRepoPG(pool *pgxpool.Pool) AlertRepository {
	return &alertRepoPG{pool: pool}
}

func (r *alertRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *alertRepoPG) List(ctx context.Context, limit, offset int) ([]*Alert, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM alert`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.type, a.message, a.patient_id, a.created_at, p.name, p.room, p.bed, p.floor
		FROM alert a JOIN patient p ON p.id = a.patient_id
		ORDER BY a.created_at DESC, a.id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	var items []*Alert
	for rows.Next() {
		var a Alert
		var p PatientBrief
		if err := rows.Scan(&a.ID, &a.Type, &a.Message, &a.PatientID, &a.CreatedAt,
			&p.Name, &p.Room, &p.Bed, &p.Floor); err != nil {
			return nil, 0, db.ClassifyError(err, "alert")
		}
		a.Patient = &p
		items = append(items, &a)
	}
	return items, total, rows.Err()
}

func (r *alertRepoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM alert WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("delete alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}
