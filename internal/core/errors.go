package core

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the operation conflicts with the current
	// state of the resource, for example a backup already running for
	// the tenant.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates the request was structurally valid but
	// semantically wrong.
	ErrValidation = errors.New("validation failed")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
