package identity

import (
	"time"

	"github.com/google/uuid"
)

// Principal is an account that can sign in: an admin, a pantry staff member
// or a delivery staff member.
type Principal struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Role         string    `db:"role" json:"role"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	// Pantry is set only for role pantry; its fields are flattened into the
	// JSON representation.
	*PantryProfile
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PantryProfile holds the kitchen-specific fields of a pantry staff member.
type PantryProfile struct {
	Contact   string `db:"contact" json:"contact"`
	Location  string `db:"location" json:"location"`
	StaffRole string `db:"staff_role" json:"staff_role"`
}

const (
	DefaultPantryLocation  = "Main Kitchen"
	DefaultPantryStaffRole = "Kitchen Staff"
)

// RegisterInput is the body of POST /auth/register and POST /pantry/staff.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Contact   string `json:"contact"`
	Location  string `json:"location"`
	StaffRole string `json:"staff_role"`
}

// UpdateStaffInput changes a pantry staff profile. Nil fields are left as is.
type UpdateStaffInput struct {
	Name      *string `json:"name"`
	Contact   *string `json:"contact"`
	Location  *string `json:"location"`
	StaffRole *string `json:"staff_role"`
}

const minPasswordLen = 8
