package services

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
)

// ValidationError matches ErrValidation and carries a client-safe reason.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(reason string, err error) error {
	return &ValidationError{Reason: reason, Err: err}
}

// fieldReasons turns validator output into "title is required; body ..." form.
func fieldReasons(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			reasons = append(reasons, fe.Field()+" is required")
		case "min":
			reasons = append(reasons, fe.Field()+" must not be empty")
		default:
			reasons = append(reasons, fe.Field()+" is invalid")
		}
	}

	return strings.Join(reasons, "; ")
}
