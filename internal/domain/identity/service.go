package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
	"github.com/hospitalfood/foodsvc/internal/platform/auth"
)

const (
	RoleAdmin    = auth.RoleAdmin
	RolePantry   = auth.RolePantry
	RoleDelivery = auth.RoleDelivery
)

// dummyHash is compared against when no account matches so a missing
// email costs about as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("no-such-account-placeholder"), bcrypt.DefaultCost)

var errInvalidCredentials = apperr.Unauthorized("invalid credentials")

type Service struct {
	principals PrincipalRepository
	bcryptCost int
	logger     zerolog.Logger
}

func NewService(principals PrincipalRepository, bcryptCost int, logger zerolog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{principals: principals, bcryptCost: bcryptCost, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate verifies an email/password pair. Unknown emails and wrong
// passwords produce the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errInvalidCredentials
	}

	p, err := s.principals.GetByEmail(ctx, email)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, fmt.Errorf("look up principal: %w", err)
		}
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.logger.Debug().Str("email", email).Msg("login for unknown email")
		return nil, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug().Str("principal_id", p.ID.String()).Msg("login with wrong password")
		return nil, errInvalidCredentials
	}
	return p, nil
}

// Register creates a principal. An empty or unrecognized role registers
// pantry staff with the default kitchen profile.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Principal, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("email is not valid")
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	role := in.Role
	if !auth.ValidRole(role) {
		role = RolePantry
	}

	exists, err := s.principals.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("error creating user", err)
	}

	p := &Principal{Role: role, Email: email, PasswordHash: string(hash), Name: name}
	if role == RolePantry {
		p.PantryProfile = &PantryProfile{
			Contact:   strings.TrimSpace(in.Contact),
			Location:  orDefault(in.Location, DefaultPantryLocation),
			StaffRole: orDefault(in.StaffRole, DefaultPantryStaffRole),
		}
	}

	if err := s.principals.Create(ctx, p); err != nil {
		// a concurrent registration won the race past EmailExists
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("email already exists")
		}
		return nil, apperr.Internal("error creating user", err)
	}

	s.logger.Info().Str("principal_id", p.ID.String()).Str("role", role).Msg("principal registered")
	return p, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// Resolve implements auth.Resolver: the principal must still exist and hold
// the role the session was minted for.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, role string) (*auth.Identity, error) {
	p, err := s.principals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != role {
		return nil, errors.New("session role does not match principal")
	}
	return &auth.Identity{ID: p.ID, Email: p.Email, Role: p.Role, Name: p.Name}, nil
}

func (s *Service) GetPrincipal(ctx context.Context, id uuid.UUID) (*Principal, error) {
	return s.principals.GetByID(ctx, id)
}

// -- Pantry staff --

func (s *Service) CreateStaff(ctx context.Context, in RegisterInput) (*Principal, error) {
	in.Role = RolePantry
	return s.Register(ctx, in)
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*Principal, error) {
	p, err := s.principals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != RolePantry {
		return nil, apperr.NotFound("pantry staff not found")
	}
	return p, nil
}

func (s *Service) ListStaff(ctx context.Context, limit, offset int) ([]*Principal, int, error) {
	return s.principals.ListByRole(ctx, RolePantry, limit, offset)
}

func (s *Service) UpdateStaff(ctx context.Context, id uuid.UUID, in UpdateStaffInput) (*Principal, error) {
	p, err := s.GetStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		p.Name = name
	}
	if p.PantryProfile == nil {
		p.PantryProfile = &PantryProfile{}
	}
	if in.Contact != nil {
		p.Contact = strings.TrimSpace(*in.Contact)
	}
	if in.Location != nil {
		p.Location = orDefault(*in.Location, DefaultPantryLocation)
	}
	if in.StaffRole != nil {
		p.StaffRole = orDefault(*in.StaffRole, DefaultPantryStaffRole)
	}
	if err := s.principals.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteStaff removes a pantry staff account. Tasks it originated keep
// existing with no originator.
func (s *Service) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetStaff(ctx, id); err != nil {
		return err
	}
	return s.principals.Delete(ctx, id)
}

// ListDeliveryStaff returns every delivery principal.
func (s *Service) ListDeliveryStaff(ctx context.Context, limit, offset int) ([]*Principal, int, error) {
	return s.principals.ListByRole(ctx, RoleDelivery, limit, offset)
}
