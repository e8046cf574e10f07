package appointments

import "errors"

var (
	// ErrInvalidInput is returned for malformed dates, times or appointment kinds.
	ErrInvalidInput = errors.New("appointments: invalid input")

	// ErrCollision is returned when the practitioner already has an appointment at that date and time.
	ErrCollision = errors.New("appointments: slot already booked")

	// ErrNotFound is returned when no appointment has the requested id.
	ErrNotFound = errors.New("appointments: appointment not found")
)
