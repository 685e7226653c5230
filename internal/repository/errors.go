package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateKey is returned when a generated enrolment key collides with an existing one.
	ErrDuplicateKey = errors.New("enrolment key already exists")
	// ErrKeyFinalized is returned when answers are recorded on a key whose end time is already set.
	ErrKeyFinalized = errors.New("enrolment key already finalized")
	// ErrPassageMissing is returned when a question references a passage that does not exist.
	ErrPassageMissing = errors.New("referenced passage does not exist")
	// ErrBucketMissing is returned when a choice references a bucket that does not exist.
	ErrBucketMissing = errors.New("referenced bucket does not exist")
	// ErrDuplicateEmail is returned when an admin email is already registered.
	ErrDuplicateEmail = errors.New("admin with this email already exists")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
