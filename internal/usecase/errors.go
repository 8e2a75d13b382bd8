package usecase

import "errors"

// ErrUnavailable means the upstream fetch failed and the store holds no
// matching records: there is nothing to serve, as opposed to a range
// that is covered but legitimately empty.
var ErrUnavailable = errors.New("data unavailable")

// ValidationError reports a malformed request (bad range, unknown
// source, lookback exceeded). Surfaced to the caller, never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// AsValidation reports whether err is a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
