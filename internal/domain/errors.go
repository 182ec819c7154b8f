package domain

import "errors"

var (
	// ErrNotFound is returned for absent records and for private records
	// the caller does not own. Both cases look the same from outside.
	ErrNotFound = errors.New("bookmark not found")

	// ErrForbidden is returned when a caller tries to mutate a record it does not own.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation wraps every client input error on mutations.
	ErrValidation = errors.New("invalid input")

	// ErrInvalidRating is a validation error for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidPrincipal is returned when the principal header is not a positive integer.
	ErrInvalidPrincipal = errors.New("invalid principal")
)
