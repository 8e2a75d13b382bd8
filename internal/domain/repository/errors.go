package repository

import "errors"

var (
	// ErrNotConfigured means a required credential is missing. Never
	// retried; surfaced to the caller immediately.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrRateLimited is the provider's throttle signal. Retried a
	// bounded number of times with delay before the walk aborts.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrUpstream covers transient network or server-side failures.
	ErrUpstream = errors.New("upstream request failed")

	// ErrRejected means the provider refused the request (bad symbol,
	// window outside the allowed lookback). Never retried.
	ErrRejected = errors.New("upstream rejected request")
)
