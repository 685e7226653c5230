package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Error categories. Handlers map these to HTTP status codes; every error a
// service returns wraps exactly one of them.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrAlreadySubmitted = errors.New("answers already submitted")
	ErrDataIntegrity    = errors.New("data integrity violation")
	ErrTransientStore   = errors.New("store unavailable")
)

var (
	ErrQuestionIDsInvalid = fmt.Errorf("%w: all the questionIds given are not valid", ErrInvalidInput)
	ErrBucketIDsInvalid   = fmt.Errorf("%w: all the bucketIds given are not valid", ErrInvalidInput)
	ErrChoiceIDsInvalid   = fmt.Errorf("%w: all the choiceIds given are not valid", ErrInvalidInput)
	ErrEmptyVersion       = fmt.Errorf("%w: a version needs at least one question or bucket", ErrInvalidInput)
	ErrKeyNotStarted      = fmt.Errorf("%w: enrolment key has not been started", ErrInvalidInput)
	ErrNoCandidates       = fmt.Errorf("%w: no passage has questions to assign", ErrNotFound)
)

// ErrInvalidCredentials is returned on a failed admin login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// storeErr classifies a repository error: a missing row is NotFound and
// anything else is treated as a transient store failure.
func storeErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransientStore, err)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

func integrityf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrDataIntegrity}, args...)...)
}
