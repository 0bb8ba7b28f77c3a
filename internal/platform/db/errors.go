package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
)

// Postgres SQLSTATE codes the repositories care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// ClassifyError maps driver errors onto application error kinds. what names
// the entity for the client-facing message. Unrecognized errors are returned
// unchanged so callers keep the original chain.
func ClassifyError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, what+" not found", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, what+" already exists", err)
		case codeForeignKeyViolation:
			return apperr.Wrap(apperr.KindConflict, what+" is still referenced or references a missing record", err)
		case codeCheckViolation:
			return apperr.Wrap(apperr.KindValidation, "invalid "+what, err)
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
