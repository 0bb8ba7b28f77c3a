package mealtask

import (
	"strings"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
)

type Status string

const (
	StatusPreparation Status = "PREPARATION"
	StatusReady       Status = "READY"
	StatusDelivered   Status = "DELIVERED"
	StatusCancelled   Status = "CANCELLED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPreparation, StatusReady, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", apperr.Validation("invalid status %q", s)
}

// rank orders the forward path. CANCELLED sits off the path.
func (s Status) rank() int {
	switch s {
	case StatusPreparation:
		return 0
	case StatusReady:
		return 1
	case StatusDelivered:
		return 2
	}
	return -1
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Pending reports whether the meal still awaits delivery.
func (s Status) Pending() bool {
	return s != StatusDelivered
}

// CheckTransition returns a Conflict error unless from -> to is allowed.
// Tasks move forward along PREPARATION, READY, DELIVERED and may skip a
// step; any non-terminal task can be cancelled.
func CheckTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if from.Terminal() {
		return apperr.Conflict("task is already %s", from)
	}
	if to == StatusCancelled || to.rank() > from.rank() {
		return nil
	}
	return apperr.Conflict("cannot move task from %s back to %s", from, to)
}
