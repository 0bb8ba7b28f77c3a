package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindValidation, http.StatusBadRequest},
		{KindUnavailable, http.StatusPreconditionFailed},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.kind); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("create task: %w", Unavailable("no delivery staff available"))
	if KindOf(err) != KindUnavailable {
		t.Errorf("expected unavailable, got %s", KindOf(err))
	}
	if !Is(err, KindUnavailable) {
		t.Error("expected Is to match wrapped kind")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("expected plain errors to be internal")
	}
	if Is(nil, KindInternal) {
		t.Error("nil error should not match any kind")
	}
}

func TestToHTTP_HidesInternalCause(t *testing.T) {
	err := ToHTTP(Internal("error creating user", errors.New("pq: connection reset")))
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", he.Code)
	}
	if he.Message != "internal server error" {
		t.Errorf("unexpected message %v", he.Message)
	}
}

func TestToHTTP_KeepsClientMessage(t *testing.T) {
	err := ToHTTP(Conflict("user with email %s already exists", "a@b.c"))
	he := err.(*echo.HTTPError)
	if he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", he.Code)
	}
	if he.Message != "user with email a@b.c already exists" {
		t.Errorf("unexpected message %v", he.Message)
	}
}

func TestToHTTP_PassesEchoErrors(t *testing.T) {
	orig := echo.NewHTTPError(http.StatusTeapot, "teapot")
	if ToHTTP(orig) != orig {
		t.Error("expected echo errors to pass through unchanged")
	}
	if ToHTTP(nil) != nil {
		t.Error("expected nil for nil")
	}
}
