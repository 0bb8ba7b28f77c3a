package patient

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

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const patientCols = `id, name, room, bed, floor, age, gender, diseases, allergies, contact, emergency_contact, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.Name, &p.Room, &p.Bed, &p.Floor, &p.Age, &p.Gender,
		&p.Diseases, &p.Allergies, &p.Contact, &p.EmergencyContact, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, db.ClassifyError(err, "patient")
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, name, room, bed, floor, age, gender, diseases, allergies, contact, emergency_contact)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Room, p.Bed, p.Floor, p.Age, p.Gender,
		p.Diseases, p.Allergies, p.Contact, p.EmergencyContact,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.ClassifyError(err, "patient")
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET name=$2, room=$3, bed=$4, floor=$5, age=$6, gender=$7,
			diseases=$8, allergies=$9, contact=$10, emergency_contact=$11, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Room, p.Bed, p.Floor, p.Age, p.Gender,
		p.Diseases, p.Allergies, p.Contact, p.EmergencyContact,
	).Scan(&p.UpdatedAt)
	return db.ClassifyError(err, "patient")
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return db.ClassifyError(err, "patient")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient not found")
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY room, bed, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Diet Chart Repository ===========

type dietChartRepoPG struct{ pool *pgxpool.Pool }

func NewDietChartRepoPG(pool *pgxpool.Pool) DietChartRepository {
	return &dietChartRepoPG{pool: pool}
}

func (r *dietChartRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const dietChartCols = `id, patient_id, breakfast, lunch, dinner, created_at, updated_at`

func (r *dietChartRepoPG) scanChart(row pgx.Row) (*DietChart, error) {
	var d DietChart
	if err := row.Scan(&d.ID, &d.PatientID, &d.Breakfast, &d.Lunch, &d.Dinner, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, db.ClassifyError(err, "diet chart")
	}
	return &d, nil
}

func (r *dietChartRepoPG) queryCharts(ctx context.Context, sql string, args ...interface{}) ([]*DietChart, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query diet charts: %w", err)
	}
	defer rows.Close()
	var items []*DietChart
	for rows.Next() {
		d, err := r.scanChart(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *dietChartRepoPG) Create(ctx context.Context, d *DietChart) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO diet_chart (id, patient_id, breakfast, lunch, dinner)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		d.ID, d.PatientID, d.Breakfast, d.Lunch, d.Dinner,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return db.ClassifyError(err, "diet chart")
}

func (r *dietChartRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*DietChart, error) {
	return r.queryCharts(ctx, `SELECT `+dietChartCols+` FROM diet_chart WHERE patient_id = $1 ORDER BY created_at, id`, patientID)
}

func (r *dietChartRepoPG) ListByPatients(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID][]*DietChart, error) {
	out := make(map[uuid.UUID][]*DietChart, len(patientIDs))
	if len(patientIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(patientIDs))
	for i, id := range patientIDs {
		ids[i] = id.String()
	}
	charts, err := r.queryCharts(ctx, `SELECT `+dietChartCols+` FROM diet_chart WHERE patient_id = ANY($1::uuid[]) ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range charts {
		out[d.PatientID] = append(out[d.PatientID], d)
	}
	return out, nil
}

func (r *dietChartRepoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM diet_chart WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("delete diet charts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *dietChartRepoPG) ListAll(ctx context.Context) ([]*DietChart, error) {
	return r.queryCharts(ctx, `SELECT `+dietChartCols+` FROM diet_chart ORDER BY created_at, id`)
}
