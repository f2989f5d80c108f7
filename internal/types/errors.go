// internal/types/errors.go
package types

import "errors"

// Sentinel errors shared across the pipeline. Components wrap these with
// fmt.Errorf("...: %w", ...) so callers can classify failures with errors.Is.
var (
	// ErrInvalidSessionID means sanitization produced an empty identifier.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrMissingField means a required request field was absent.
	ErrMissingField = errors.New("missing required field")

	// ErrMissingCredential means the external-service API key is not
	// configured. Checked before any network call.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrUpstream means the external reasoning service returned a
	// non-success response.
	ErrUpstream = errors.New("upstream service error")

	// ErrNotFound means the requested report or event log does not exist.
	ErrNotFound = errors.New("not found")
)
