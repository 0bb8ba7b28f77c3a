package mealtask

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hospitalfood/foodsvc/internal/domain/identity"
	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
	"github.com/hospitalfood/foodsvc/internal/platform/auth"
)

// StaffDirectory looks up principals. identity.PrincipalRepository
// satisfies it.
type StaffDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Principal, error)
	FirstByRole(ctx context.Context, role string) (*identity.Principal, error)
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*identity.Principal, int, error)
}

type PatientChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// RecentUpdatesLimit is the number of entries on the delivery updates feed.
const RecentUpdatesLimit = 10

// maxStaffScan bounds the delivery staff read for the workload boards.
const maxStaffScan = 1000

type Service struct {
	tasks    TaskRepository
	staff    StaffDirectory
	patients PatientChecker
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(tasks TaskRepository, staff StaffDirectory, patients PatientChecker, logger zerolog.Logger) *Service {
	return &Service{tasks: tasks, staff: staff, patients: patients, logger: logger, now: time.Now}
}

func requireKitchen(actor *auth.Identity) error {
	if actor == nil {
		return apperr.Unauthorized("authentication required")
	}
	if !auth.HasRole(actor.Role, auth.RolePantry) {
		return apperr.Forbidden("only pantry staff or admins can manage meal tasks")
	}
	return nil
}

// Create schedules a meal and hands it to the first delivery staff member
// on record.
func (s *Service) Create(ctx context.Context, actor *auth.Identity, in CreateInput) (*Task, error) {
	if err := requireKitchen(actor); err != nil {
		return nil, err
	}
	mealType, err := ParseMealType(in.MealType)
	if err != nil {
		return nil, err
	}
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	exists, err := s.patients.Exists(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("check patient: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound("patient not found")
	}

	courier, err := s.staff.FirstByRole(ctx, auth.RoleDelivery)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unavailable("no delivery staff available")
		}
		return nil, fmt.Errorf("pick delivery staff: %w", err)
	}

	t := &Task{
		PatientID:       in.PatientID,
		DeliveryStaffID: courier.ID,
		MealType:        mealType,
		Status:          StatusPreparation,
		ScheduledAt:     s.now(),
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		t.Name = &name
	}
	if in.ScheduledAt != nil && !in.ScheduledAt.IsZero() {
		t.ScheduledAt = *in.ScheduledAt
	}
	if actor.Role == auth.RolePantry {
		id := actor.ID
		t.PantryStaffID = &id
	}

	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("task_id", t.ID.String()).
		Str("patient_id", t.PatientID.String()).
		Str("delivery_staff_id", courier.ID.String()).
		Str("meal_type", string(mealType)).
		Msg("meal task created")
	return s.tasks.GetByID(ctx, t.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// SetStatus moves a task along its lifecycle. Delivery staff may only mark
// their own tasks delivered.
func (s *Service) SetStatus(ctx context.Context, actor *auth.Identity, id uuid.UUID, raw string) (*Task, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	status, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	courier := actor.Role == auth.RoleDelivery
	if courier && status != StatusDelivered {
		return nil, apperr.Forbidden("delivery staff can only mark meals as delivered")
	}

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if courier && t.DeliveryStaffID != actor.ID {
		return nil, apperr.Forbidden("task is not assigned to you")
	}
	if t.Status == status {
		return t, nil
	}
	if err := CheckTransition(t.Status, status); err != nil {
		return nil, err
	}

	var deliveredAt *time.Time
	if status == StatusDelivered {
		now := s.now()
		deliveredAt = &now
	}
	if err := s.tasks.UpdateStatus(ctx, id, status, deliveredAt); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("task_id", id.String()).
		Str("from", string(t.Status)).
		Str("to", string(status)).
		Str("principal_id", actor.ID.String()).
		Msg("meal task status changed")
	return s.tasks.GetByID(ctx, id)
}

// Assign hands a task to another delivery staff member and restarts it at
// PREPARATION. Delivered and cancelled tasks cannot be reassigned.
func (s *Service) Assign(ctx context.Context, actor *auth.Identity, id, staffID uuid.UUID) (*Task, error) {
	if err := requireKitchen(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("delivery staff not found")
		}
		return nil, err
	}
	if staff.Role != auth.RoleDelivery {
		return nil, apperr.NotFound("delivery staff not found")
	}

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, apperr.Conflict("cannot reassign a %s task", strings.ToLower(string(t.Status)))
	}
	if err := s.tasks.UpdateAssignment(ctx, id, staffID, StatusPreparation); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("task_id", id.String()).
		Str("from_staff_id", t.DeliveryStaffID.String()).
		Str("to_staff_id", staffID.String()).
		Msg("meal task reassigned")
	return s.tasks.GetByID(ctx, id)
}

// List returns tasks newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Task, int, error) {
	return s.tasks.List(ctx, ListFilter{Order: NewestCreated}, limit, offset)
}

// ListDeliveries returns tasks by scheduled time, newest first. Delivery
// staff see only the tasks assigned to them.
func (s *Service) ListDeliveries(ctx context.Context, actor *auth.Identity, limit, offset int) ([]*Task, int, error) {
	f := ListFilter{Order: NewestScheduled}
	if actor != nil && actor.Role == auth.RoleDelivery {
		id := actor.ID
		f.DeliveryStaffID = &id
	}
	return s.tasks.List(ctx, f, limit, offset)
}

// ListByPantryStaff returns the tasks a pantry staff member originated.
func (s *Service) ListByPantryStaff(ctx context.Context, staffID uuid.UUID, limit, offset int) ([]*Task, int, error) {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, 0, err
	}
	if staff.Role != auth.RolePantry {
		return nil, 0, apperr.NotFound("pantry staff not found")
	}
	return s.tasks.List(ctx, ListFilter{PantryStaffID: &staffID, Order: NewestCreated}, limit, offset)
}

func (s *Service) pendingByStaff(ctx context.Context) ([]*identity.Principal, map[uuid.UUID][]*Task, error) {
	staff, _, err := s.staff.ListByRole(ctx, auth.RoleDelivery, maxStaffScan, 0)
	if err != nil {
		return nil, nil, err
	}
	pending, err := s.tasks.ListPending(ctx)
	if err != nil {
		return nil, nil, err
	}
	byStaff := make(map[uuid.UUID][]*Task)
	for _, t := range pending {
		byStaff[t.DeliveryStaffID] = append(byStaff[t.DeliveryStaffID], t)
	}
	return staff, byStaff, nil
}

// DeliveryStaffPending lists every delivery staff member with the tasks
// they have not delivered yet.
func (s *Service) DeliveryStaffPending(ctx context.Context) ([]*StaffPending, error) {
	staff, byStaff, err := s.pendingByStaff(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*StaffPending, 0, len(staff))
	for _, p := range staff {
		tasks := byStaff[p.ID]
		if tasks == nil {
			tasks = []*Task{}
		}
		out = append(out, &StaffPending{ID: p.ID, Name: p.Name, Email: p.Email, PendingTasks: tasks})
	}
	return out, nil
}

// DeliveryStaffWorkload summarizes each delivery staff member's open tasks.
func (s *Service) DeliveryStaffWorkload(ctx context.Context) ([]*StaffWorkload, error) {
	staff, byStaff, err := s.pendingByStaff(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*StaffWorkload, 0, len(staff))
	for _, p := range staff {
		n := len(byStaff[p.ID])
		status := WorkloadAvailable
		if n > 0 {
			status = WorkloadDelivering
		}
		out = append(out, &StaffWorkload{ID: p.ID, Name: p.Name, AssignedMeals: n, Status: status})
	}
	return out, nil
}

// RecentUpdates renders the latest task changes as feed entries.
func (s *Service) RecentUpdates(ctx context.Context, limit int) ([]*Update, error) {
	if limit <= 0 {
		limit = RecentUpdatesLimit
	}
	tasks, err := s.tasks.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Update, 0, len(tasks))
	for _, t := range tasks {
		msg, kind := describe(t)
		out = append(out, &Update{ID: t.ID, Message: msg, Timestamp: t.UpdatedAt, Type: kind})
	}
	return out, nil
}

// describe returns the feed message and its severity for a task.
func describe(t *Task) (string, string) {
	staff := "Unassigned"
	if t.DeliveryStaff != nil && t.DeliveryStaff.Name != "" {
		staff = t.DeliveryStaff.Name
	}
	where := "Room ? (unknown patient)"
	if t.Patient != nil {
		where = fmt.Sprintf("Room %d (%s)", t.Patient.Room, t.Patient.Name)
	}

	switch t.Status {
	case StatusPreparation:
		return fmt.Sprintf("%s meal for %s is being prepared", t.MealType, where), "warning"
	case StatusReady:
		return fmt.Sprintf("%s meal for %s is ready for delivery by %s", t.MealType, where, staff), "info"
	case StatusDelivered:
		return fmt.Sprintf("%s meal was delivered to %s by %s", t.MealType, where, staff), "success"
	case StatusCancelled:
		return fmt.Sprintf("%s meal for %s was cancelled", t.MealType, where), "info"
	}
	return fmt.Sprintf("%s meal status updated for %s", t.MealType, where), "info"
}

// DeleteByPatient removes a patient's tasks. Patient discharge calls it
// inside its transaction.
func (s *Service) DeleteByPatient(ctx context.Context, patientID uuid.UUID) (int64, error) {
	return s.tasks.DeleteByPatient(ctx, patientID)
}

// ListAll returns every task, oldest first, without joins.
func (s *Service) ListAll(ctx context.Context) ([]*Task, error) {
	return s.tasks.ListAll(ctx)
}
