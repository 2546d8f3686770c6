package database_service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned by updates and deletes that matched no row.
	// Plain getters return (nil, nil) instead.
	ErrNotFound = errors.New("row not found")

	// ErrConflict wraps unique-constraint violations.
	ErrConflict = errors.New("conflict")
)

// mapErr turns driver errors the callers branch on into package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		case pgerrcode.InvalidTextRepresentation:
			// malformed uuid in a lookup
			return ErrNotFound
		}
	}
	return err
}
