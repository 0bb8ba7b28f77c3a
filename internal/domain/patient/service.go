package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
	"github.com/hospitalfood/foodsvc/internal/platform/db"
)

type Service struct {
	patients   PatientRepository
	charts     DietChartRepository
	dependents []Dependents
	tx         db.Transactor
	logger     zerolog.Logger
}

// NewService wires the patient store. dependents are cleared, in order,
// before a patient's charts and row are deleted.
func NewService(patients PatientRepository, charts DietChartRepository, tx db.Transactor, logger zerolog.Logger, dependents ...Dependents) *Service {
	return &Service{patients: patients, charts: charts, tx: tx, logger: logger, dependents: dependents}
}

func validateDemographics(p *Patient) error {
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	if p.Room <= 0 || p.Bed <= 0 {
		return apperr.Validation("room and bed must be positive")
	}
	if p.Floor < 0 {
		return apperr.Validation("floor cannot be negative")
	}
	if p.Age < 0 {
		return apperr.Validation("age cannot be negative")
	}
	return nil
}

// Create admits a patient together with the initial diet chart. Both rows
// are written in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Patient, error) {
	p := &Patient{
		Name:             strings.TrimSpace(in.Name),
		Room:             in.Room,
		Bed:              in.Bed,
		Floor:            in.Floor,
		Age:              in.Age,
		Gender:           strings.TrimSpace(in.Gender),
		Diseases:         cleanList(in.Diseases),
		Allergies:        cleanList(in.Allergies),
		Contact:          strings.TrimSpace(in.Contact),
		EmergencyContact: strings.TrimSpace(in.EmergencyContact),
	}
	if err := validateDemographics(p); err != nil {
		return nil, err
	}
	chart := &DietChart{
		Breakfast: in.DietChart.Breakfast.Clean(),
		Lunch:     in.DietChart.Lunch.Clean(),
		Dinner:    in.DietChart.Dinner.Clean(),
	}
	for _, m := range []MealPlan{chart.Breakfast, chart.Lunch, chart.Dinner} {
		if m.Calories < 0 {
			return nil, apperr.Validation("calories cannot be negative")
		}
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		chart.PatientID = p.ID
		return s.charts.Create(ctx, chart)
	})
	if err != nil {
		return nil, err
	}
	p.DietCharts = []*DietChart{chart}
	s.logger.Info().Str("patient_id", p.ID.String()).Int("room", p.Room).Msg("patient admitted")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	charts, err := s.charts.ListByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	p.DietCharts = nonNilCharts(charts)
	return p, nil
}

func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.patients.Exists(ctx, id)
}

// List returns a page of patients ordered by room, each with its charts.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.patients.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uuid.UUID, len(items))
	for i, p := range items {
		ids[i] = p.ID
	}
	byPatient, err := s.charts.ListByPatients(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		p.DietCharts = nonNilCharts(byPatient[p.ID])
	}
	return items, total, nil
}

func nonNilCharts(c []*DietChart) []*DietChart {
	if c == nil {
		return []*DietChart{}
	}
	return c
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Room != nil {
		p.Room = *in.Room
	}
	if in.Bed != nil {
		p.Bed = *in.Bed
	}
	if in.Floor != nil {
		p.Floor = *in.Floor
	}
	if in.Age != nil {
		p.Age = *in.Age
	}
	if in.Gender != nil {
		p.Gender = strings.TrimSpace(*in.Gender)
	}
	if in.Diseases != nil {
		p.Diseases = cleanList(*in.Diseases)
	}
	if in.Allergies != nil {
		p.Allergies = cleanList(*in.Allergies)
	}
	if in.Contact != nil {
		p.Contact = strings.TrimSpace(*in.Contact)
	}
	if in.EmergencyContact != nil {
		p.EmergencyContact = strings.TrimSpace(*in.EmergencyContact)
	}
	if err := validateDemographics(p); err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	charts, err := s.charts.ListByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	p.DietCharts = nonNilCharts(charts)
	return p, nil
}

// Delete discharges a patient. Meal tasks, alerts and diet charts go with
// it; any failure rolls the whole deletion back.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	var charts int64
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, d := range s.dependents {
			if _, err := d.DeleteByPatient(ctx, id); err != nil {
				return err
			}
		}
		n, err := s.charts.DeleteByPatient(ctx, id)
		if err != nil {
			return err
		}
		charts = n
		return s.patients.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", id.String()).Int64("diet_charts", charts).Msg("patient discharged")
	return nil
}

// DietCharts returns every diet chart ordered by creation.
func (s *Service) DietCharts(ctx context.Context) ([]*DietChart, error) {
	return s.charts.ListAll(ctx)
}
