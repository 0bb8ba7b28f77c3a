package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hospitalfood/foodsvc/internal/domain/mealtask"
	"github.com/hospitalfood/foodsvc/internal/domain/patient"
)

// OnTimeWindow is how late after its scheduled time a delivery still counts
// as on time.
const OnTimeWindow = 15 * time.Minute

type TaskSource interface {
	ListAll(ctx context.Context) ([]*mealtask.Task, error)
}

type ChartSource interface {
	DietCharts(ctx context.Context) ([]*patient.DietChart, error)
}

// Service computes dashboard figures from a full scan on every call.
type Service struct {
	tasks  TaskSource
	charts ChartSource
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(tasks TaskSource, charts ChartSource, logger zerolog.Logger) *Service {
	return &Service{tasks: tasks, charts: charts, logger: logger, now: time.Now}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

func (s *Service) PantryMetrics(ctx context.Context) (*PantryMetrics, error) {
	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	midnight := startOfDay(s.now())

	var delivered, onTime, today, cancelled int
	for _, t := range tasks {
		switch t.Status {
		case mealtask.StatusCancelled:
			cancelled++
		case mealtask.StatusDelivered:
			delivered++
			if !t.ScheduledAt.Before(midnight) {
				today++
			}
			if t.DeliveredAt != nil && !t.DeliveredAt.After(t.ScheduledAt.Add(OnTimeWindow)) {
				onTime++
			}
		}
	}
	return &PantryMetrics{
		MealsToday:          today,
		OnTimeDeliveryRate:  percent(onTime, delivered),
		WastageRate:         percent(cancelled, len(tasks)),
		TotalMealsDelivered: delivered,
	}, nil
}

// DeliveryMetrics reports the figures for one delivery staff member.
func (s *Service) DeliveryMetrics(ctx context.Context, staffID uuid.UUID) (*DeliveryMetrics, error) {
	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	midnight := startOfDay(s.now())

	var m DeliveryMetrics
	for _, t := range tasks {
		if t.DeliveryStaffID != staffID {
			continue
		}
		if t.Status != mealtask.StatusDelivered {
			m.PendingDeliveries++
			continue
		}
		m.TotalMealsDelivered++
		if !t.ScheduledAt.Before(midnight) {
			m.MealsDeliveredToday++
		}
	}
	return &m, nil
}

// DietPlans groups diet charts prescribing identical meals. Plans are named
// and emitted in the order their first chart was created.
func (s *Service) DietPlans(ctx context.Context) ([]*DietPlan, error) {
	charts, err := s.charts.DietCharts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load diet charts: %w", err)
	}

	var firsts []*patient.DietChart
	plans := make([]*DietPlan, 0)
	for _, c := range charts {
		matched := false
		for i, first := range firsts {
			if first.SameMeals(c) {
				plans[i].PatientCount++
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		firsts = append(firsts, c)
		plans = append(plans, &DietPlan{
			Name:         fmt.Sprintf("Diet Plan %d", len(plans)+1),
			PatientCount: 1,
			Meals: PlanMeals{
				Breakfast: items(c.Breakfast),
				Lunch:     items(c.Lunch),
				Dinner:    items(c.Dinner),
			},
		})
	}
	s.logger.Debug().Int("charts", len(charts)).Int("plans", len(plans)).Msg("diet plans grouped")
	return plans, nil
}

func items(m patient.MealPlan) []string {
	if m.Items == nil {
		return []string{}
	}
	return m.Items
}
