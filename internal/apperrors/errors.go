package apperrors

import "errors"

var (
	// ErrNotFound is returned when a booking record no longer exists.
	ErrNotFound = errors.New("booking not found")

	// ErrInvalidTransition is returned when a status change violates the
	// booking state graph. The record is never mutated in that case.
	ErrInvalidTransition = errors.New("invalid booking transition")

	// ErrConflict is returned after transactional retries are exhausted
	// because of concurrent writers. Callers should refresh and retry.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrUnauthorized is returned when the acting user is not a party to
	// the booking.
	ErrUnauthorized = errors.New("user is not a party to this booking")

	// ErrInvalidInput is returned for malformed requests (empty or
	// oversized message text, out-of-range indices).
	ErrInvalidInput = errors.New("invalid input")

	ErrAlreadyReported    = errors.New("booking already reported")
	ErrReportWindowClosed = errors.New("report window has expired")
)

// Retryable reports whether an error is worth retrying from the caller's
// side. Definitive rejections (state graph violations, missing records,
// authorization failures) are not.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
