package service

import "errors"

// Sentinel errors returned by the approval service. Handlers map these to
// HTTP status codes; everything else surfaces as an internal error.
var (
	// ErrAccessDenied is returned when the caller's origin is outside the
	// permitted networks
	ErrAccessDenied = errors.New("request origin is not permitted")

	// ErrInvalidToken is returned when no approval record carries the token
	ErrInvalidToken = errors.New("approval token is invalid")

	// ErrAlreadyProcessed is returned when the record left the pending state
	// before this request could act on it
	ErrAlreadyProcessed = errors.New("approval record has already been processed")

	// ErrTokenExpired is returned when the approval link outlived its TTL
	ErrTokenExpired = errors.New("approval token has expired")

	// ErrInvalidReason is returned when a rejection reason fails validation
	ErrInvalidReason = errors.New("rejection reason does not meet requirements")

	// ErrInvalidAction is returned when a decision names an unknown action
	ErrInvalidAction = errors.New("decision action is invalid")

	// ErrReportNotFound is returned when the referenced report does not exist
	ErrReportNotFound = errors.New("report not found")

	// ErrReportExists is returned when a report ID is submitted twice
	ErrReportExists = errors.New("report has already been submitted")
)
