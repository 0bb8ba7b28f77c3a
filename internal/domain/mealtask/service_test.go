package mealtask

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hospitalfood/foodsvc/internal/domain/identity"
	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
	"github.com/hospitalfood/foodsvc/internal/platform/auth"
)

// -- Mock Repositories --

type mockTaskRepo struct {
	tasks    map[uuid.UUID]*Task
	patients map[uuid.UUID]PatientSummary
	staff    *mockStaffDir
	clock    time.Time
}

func newMockTaskRepo(staff *mockStaffDir) *mockTaskRepo {
	return &mockTaskRepo{
		tasks:    make(map[uuid.UUID]*Task),
		patients: make(map[uuid.UUID]PatientSummary),
		staff:    staff,
		clock:    time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// tick advances the repository clock so updated_at orders deterministically.
func (m *mockTaskRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockTaskRepo) joined(t *Task) *Task {
	cp := *t
	if p, ok := m.patients[t.PatientID]; ok {
		cp.Patient = &p
	}
	if s, ok := m.staff.principals[t.DeliveryStaffID]; ok {
		cp.DeliveryStaff = &StaffSummary{ID: s.ID, Name: s.Name, Email: s.Email}
	}
	return &cp
}

func (m *mockTaskRepo) Create(_ context.Context, t *Task) error {
	t.ID = uuid.New()
	t.CreatedAt = m.tick()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, apperr.NotFound("task not found")
	}
	return m.joined(t), nil
}

func (m *mockTaskRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status, deliveredAt *time.Time) error {
	t, ok := m.tasks[id]
	if !ok {
		return apperr.NotFound("task not found")
	}
	t.Status = status
	if deliveredAt != nil {
		t.DeliveredAt = deliveredAt
	}
	t.UpdatedAt = m.tick()
	return nil
}

func (m *mockTaskRepo) UpdateAssignment(_ context.Context, id, staffID uuid.UUID, status Status) error {
	t, ok := m.tasks[id]
	if !ok {
		return apperr.NotFound("task not found")
	}
	t.DeliveryStaffID = staffID
	t.Status = status
	t.UpdatedAt = m.tick()
	return nil
}

func (m *mockTaskRepo) sorted(less func(a, b *Task) bool) []*Task {
	var all []*Task
	for _, t := range m.tasks {
		all = append(all, m.joined(t))
	}
	sort.Slice(all, func(i, j int) bool { return less(all[i], all[j]) })
	return all
}

func (m *mockTaskRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Task, int, error) {
	less := func(a, b *Task) bool { return a.CreatedAt.After(b.CreatedAt) }
	if f.Order == NewestScheduled {
		less = func(a, b *Task) bool { return a.ScheduledAt.After(b.ScheduledAt) }
	}
	var out []*Task
	for _, t := range m.sorted(less) {
		if f.DeliveryStaffID != nil && t.DeliveryStaffID != *f.DeliveryStaffID {
			continue
		}
		if f.PantryStaffID != nil && (t.PantryStaffID == nil || *t.PantryStaffID != *f.PantryStaffID) {
			continue
		}
		out = append(out, t)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *mockTaskRepo) ListPending(context.Context) ([]*Task, error) {
	var out []*Task
	for _, t := range m.sorted(func(a, b *Task) bool { return a.ScheduledAt.Before(b.ScheduledAt) }) {
		if t.Status.Pending() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) ListRecent(_ context.Context, limit int) ([]*Task, error) {
	all := m.sorted(func(a, b *Task) bool { return a.UpdatedAt.After(b.UpdatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockTaskRepo) ListAll(context.Context) ([]*Task, error) {
	return m.sorted(func(a, b *Task) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}

func (m *mockTaskRepo) DeleteByPatient(_ context.Context, patientID uuid.UUID) (int64, error) {
	var n int64
	for id, t := range m.tasks {
		if t.PatientID == patientID {
			delete(m.tasks, id)
			n++
		}
	}
	return n, nil
}

type mockStaffDir struct {
	principals map[uuid.UUID]*identity.Principal
	order      []uuid.UUID
}

func newMockStaffDir() *mockStaffDir {
	return &mockStaffDir{principals: make(map[uuid.UUID]*identity.Principal)}
}

func (m *mockStaffDir) add(role, name string) *identity.Principal {
	p := &identity.Principal{ID: uuid.New(), Role: role, Name: name, Email: strings.ToLower(name) + "@hospital.test"}
	m.principals[p.ID] = p
	m.order = append(m.order, p.ID)
	return p
}

func (m *mockStaffDir) GetByID(_ context.Context, id uuid.UUID) (*identity.Principal, error) {
	p, ok := m.principals[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return p, nil
}

func (m *mockStaffDir) FirstByRole(_ context.Context, role string) (*identity.Principal, error) {
	for _, id := range m.order {
		if p := m.principals[id]; p.Role == role {
			return p, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (m *mockStaffDir) ListByRole(_ context.Context, role string, limit, offset int) ([]*identity.Principal, int, error) {
	var out []*identity.Principal
	for _, id := range m.order {
		if p := m.principals[id]; p.Role == role {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type mockPatients map[uuid.UUID]bool

func (m mockPatients) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m[id], nil
}

// -- Fixture --

type fixture struct {
	svc       *Service
	repo      *mockTaskRepo
	staff     *mockStaffDir
	patients  mockPatients
	patientID uuid.UUID
	admin     *auth.Identity
	cook      *auth.Identity
	courier   *auth.Identity
	now       time.Time
}

func ident(p *identity.Principal) *auth.Identity {
	return &auth.Identity{ID: p.ID, Email: p.Email, Role: p.Role, Name: p.Name}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	staff := newMockStaffDir()
	repo := newMockTaskRepo(staff)
	patients := mockPatients{}
	f := &fixture{
		repo:      repo,
		staff:     staff,
		patients:  patients,
		patientID: uuid.New(),
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	patients[f.patientID] = true
	repo.patients[f.patientID] = PatientSummary{Name: "Meera", Room: 101, Bed: 1, Floor: 1}

	f.admin = ident(staff.add(auth.RoleAdmin, "Admin"))
	f.cook = ident(staff.add(auth.RolePantry, "Ana"))
	f.courier = ident(staff.add(auth.RoleDelivery, "Raj"))

	f.svc = NewService(repo, staff, patients, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) create(t *testing.T, mealType string) *Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), f.cook, CreateInput{PatientID: f.patientID, MealType: mealType})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return task
}

// -- Create --

func TestCreate_AssignsFirstDeliveryStaff(t *testing.T) {
	f := newFixture(t)
	f.staff.add(auth.RoleDelivery, "Later")

	task := f.create(t, "breakfast")
	if task.DeliveryStaffID != f.courier.ID {
		t.Errorf("expected first delivery staff %s, got %s", f.courier.ID, task.DeliveryStaffID)
	}
	if task.Status != StatusPreparation || task.MealType != Breakfast {
		t.Errorf("unexpected task %+v", task)
	}
	if !task.ScheduledAt.Equal(f.now) {
		t.Errorf("expected scheduled at creation instant, got %v", task.ScheduledAt)
	}
	if task.PantryStaffID == nil || *task.PantryStaffID != f.cook.ID {
		t.Error("expected pantry originator to be the acting cook")
	}
	if task.Patient == nil || task.Patient.Room != 101 {
		t.Error("expected patient summary joined")
	}
}

func TestCreate_ByAdminHasNoOriginator(t *testing.T) {
	f := newFixture(t)
	when := f.now.Add(3 * time.Hour)
	task, err := f.svc.Create(context.Background(), f.admin, CreateInput{
		PatientID: f.patientID, MealType: "DINNER", Name: "Soft diet", ScheduledAt: &when,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.PantryStaffID != nil {
		t.Error("admin-created task should have no pantry originator")
	}
	if !task.ScheduledAt.Equal(when) {
		t.Errorf("expected requested schedule, got %v", task.ScheduledAt)
	}
	if task.Name == nil || *task.Name != "Soft diet" {
		t.Error("expected task name")
	}
}

func TestCreate_NoDeliveryStaff(t *testing.T) {
	f := newFixture(t)
	delete(f.staff.principals, f.courier.ID)
	f.staff.order = f.staff.order[:2]

	_, err := f.svc.Create(context.Background(), f.cook, CreateInput{PatientID: f.patientID, MealType: "LUNCH"})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err.Error() != "no delivery staff available" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if len(f.repo.tasks) != 0 {
		t.Error("no task should be created")
	}
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.cook, CreateInput{PatientID: f.patientID, MealType: "SNACK"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad meal type: expected validation, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.cook, CreateInput{PatientID: uuid.New(), MealType: "LUNCH"}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown patient: expected not found, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.courier, CreateInput{PatientID: f.patientID, MealType: "LUNCH"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("courier: expected forbidden, got %v", err)
	}
	if _, err := f.svc.Create(ctx, nil, CreateInput{PatientID: f.patientID, MealType: "LUNCH"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("anonymous: expected unauthorized, got %v", err)
	}
}

// -- SetStatus --

func TestSetStatus_ForwardPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "LUNCH")

	got, err := f.svc.SetStatus(ctx, f.cook, task.ID, "READY")
	if err != nil || got.Status != StatusReady {
		t.Fatalf("READY: %v %v", got, err)
	}
	if got.DeliveredAt != nil {
		t.Error("delivered_at set too early")
	}

	f.now = f.now.Add(10 * time.Minute)
	got, err = f.svc.SetStatus(ctx, f.courier, task.ID, "DELIVERED")
	if err != nil {
		t.Fatalf("DELIVERED: %v", err)
	}
	if got.DeliveredAt == nil || !got.DeliveredAt.Equal(f.now) {
		t.Errorf("expected delivered_at %v, got %v", f.now, got.DeliveredAt)
	}

	if _, err := f.svc.SetStatus(ctx, f.cook, task.ID, "DELIVERED"); err != nil {
		t.Errorf("same status should be a no-op, got %v", err)
	}
	if _, err := f.svc.SetStatus(ctx, f.cook, task.ID, "PREPARATION"); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict moving back, got %v", err)
	}
}

func TestSetStatus_DeliveryStaffRestrictions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "LUNCH")

	if _, err := f.svc.SetStatus(ctx, f.courier, task.ID, "READY"); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("courier READY: expected forbidden, got %v", err)
	}
	if _, err := f.svc.SetStatus(ctx, f.courier, task.ID, "CANCELLED"); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("courier CANCELLED: expected forbidden, got %v", err)
	}

	other := ident(f.staff.add(auth.RoleDelivery, "Other"))
	if _, err := f.svc.SetStatus(ctx, other, task.ID, "DELIVERED"); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("other courier: expected forbidden, got %v", err)
	}
	if f.repo.tasks[task.ID].Status != StatusPreparation {
		t.Error("rejected transitions must not change the task")
	}
}

func TestSetStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "LUNCH")

	if _, err := f.svc.SetStatus(ctx, f.cook, task.ID, "LOST"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation, got %v", err)
	}
	if _, err := f.svc.SetStatus(ctx, f.cook, uuid.New(), "READY"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := f.svc.SetStatus(ctx, nil, task.ID, "READY"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}

	f.svc.SetStatus(ctx, f.cook, task.ID, "CANCELLED")
	if _, err := f.svc.SetStatus(ctx, f.cook, task.ID, "READY"); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("cancelled is terminal: expected conflict, got %v", err)
	}
}

// -- Assign --

func TestAssign_ResetsToPreparation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "DINNER")
	f.svc.SetStatus(ctx, f.cook, task.ID, "READY")
	second := f.staff.add(auth.RoleDelivery, "Sam")

	got, err := f.svc.Assign(ctx, f.cook, task.ID, second.ID)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got.DeliveryStaffID != second.ID || got.Status != StatusPreparation {
		t.Errorf("unexpected task after assign %+v", got)
	}
	if got.DeliveryStaff == nil || got.DeliveryStaff.Name != "Sam" {
		t.Error("expected new staff joined")
	}
}

func TestAssign_DeliveredIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "DINNER")
	f.svc.SetStatus(ctx, f.cook, task.ID, "DELIVERED")
	second := f.staff.add(auth.RoleDelivery, "Sam")

	if _, err := f.svc.Assign(ctx, f.cook, task.ID, second.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.repo.tasks[task.ID].DeliveryStaffID != f.courier.ID {
		t.Error("delivered task must keep its staff")
	}
}

func TestAssign_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "DINNER")

	if _, err := f.svc.Assign(ctx, f.cook, task.ID, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown staff: expected not found, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, f.cook, task.ID, f.cook.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("pantry target: expected not found, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, f.cook, uuid.New(), f.courier.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown task: expected not found, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, f.courier, task.ID, f.courier.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("courier: expected forbidden, got %v", err)
	}
}

// -- Views --

func TestListDeliveries_ScopedForCouriers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "BREAKFAST")
	other := f.staff.add(auth.RoleDelivery, "Sam")
	second := f.create(t, "LUNCH")
	f.svc.Assign(ctx, f.cook, second.ID, other.ID)

	_, total, _ := f.svc.ListDeliveries(ctx, f.courier, 10, 0)
	if total != 1 {
		t.Errorf("courier should see 1 delivery, got %d", total)
	}
	_, total, _ = f.svc.ListDeliveries(ctx, f.cook, 10, 0)
	if total != 2 {
		t.Errorf("pantry should see 2 deliveries, got %d", total)
	}
}

func TestListByPantryStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "BREAKFAST")
	f.svc.Create(ctx, f.admin, CreateInput{PatientID: f.patientID, MealType: "LUNCH"})

	items, total, err := f.svc.ListByPantryStaff(ctx, f.cook.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListByPantryStaff: %v", err)
	}
	if total != 1 || items[0].MealType != Breakfast {
		t.Errorf("expected only the cook's task, got %d", total)
	}
	if _, _, err := f.svc.ListByPantryStaff(ctx, f.courier.ID, 10, 0); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found for non-pantry id, got %v", err)
	}
}

func TestDeliveryStaffWorkload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idle := f.staff.add(auth.RoleDelivery, "Idle")
	a := f.create(t, "BREAKFAST")
	f.create(t, "LUNCH")
	f.svc.SetStatus(ctx, f.cook, a.ID, "DELIVERED")

	board, err := f.svc.DeliveryStaffWorkload(ctx)
	if err != nil {
		t.Fatalf("DeliveryStaffWorkload: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 delivery staff, got %d", len(board))
	}
	for _, row := range board {
		switch row.ID {
		case f.courier.ID:
			if row.AssignedMeals != 1 || row.Status != WorkloadDelivering {
				t.Errorf("courier: unexpected %+v", row)
			}
		case idle.ID:
			if row.AssignedMeals != 0 || row.Status != WorkloadAvailable {
				t.Errorf("idle: unexpected %+v", row)
			}
		}
	}

	pending, _ := f.svc.DeliveryStaffPending(ctx)
	for _, p := range pending {
		if p.PendingTasks == nil {
			t.Error("pending tasks must be an empty list, not null")
		}
	}
}

func TestRecentUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "BREAKFAST")
	b := f.create(t, "LUNCH")
	c := f.create(t, "DINNER")
	f.svc.SetStatus(ctx, f.cook, b.ID, "READY")
	f.svc.SetStatus(ctx, f.cook, c.ID, "DELIVERED")

	updates, err := f.svc.RecentUpdates(ctx, 0)
	if err != nil {
		t.Fatalf("RecentUpdates: %v", err)
	}
	if len(updates) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(updates))
	}
	want := []struct {
		id   uuid.UUID
		msg  string
		kind string
	}{
		{c.ID, "DINNER meal was delivered to Room 101 (Meera) by Raj", "success"},
		{b.ID, "LUNCH meal for Room 101 (Meera) is ready for delivery by Raj", "info"},
		{a.ID, "BREAKFAST meal for Room 101 (Meera) is being prepared", "warning"},
	}
	for i, w := range want {
		u := updates[i]
		if u.ID != w.id || u.Message != w.msg || u.Type != w.kind {
			t.Errorf("update %d: got %+v, want %s %q %s", i, u, w.id, w.msg, w.kind)
		}
	}
}

func TestRecentUpdates_Limit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < RecentUpdatesLimit+3; i++ {
		f.create(t, "LUNCH")
	}
	updates, _ := f.svc.RecentUpdates(context.Background(), RecentUpdatesLimit)
	if len(updates) != RecentUpdatesLimit {
		t.Errorf("expected %d updates, got %d", RecentUpdatesLimit, len(updates))
	}
}

func TestDescribe_Cancelled(t *testing.T) {
	msg, kind := describe(&Task{MealType: Lunch, Status: StatusCancelled, Patient: &PatientSummary{Name: "Meera", Room: 7}})
	if msg != "LUNCH meal for Room 7 (Meera) was cancelled" || kind != "info" {
		t.Errorf("unexpected %q %q", msg, kind)
	}
}
