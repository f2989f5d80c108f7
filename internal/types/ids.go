// internal/types/ids.go
package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SessionID is the opaque identifier of one exam session. Values arriving
// from clients are untrusted and must pass through SanitizeSessionID before
// naming any persisted resource.
type SessionID string

// NewSessionID returns a freshly generated session identifier. Generated ids
// are already within the sanitized character set.
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// SanitizeSessionID strips every character outside [A-Za-z0-9_-] from the
// input. The function is idempotent: sanitizing an already-sanitized id is a
// no-op. An input that sanitizes to the empty string is rejected with
// ErrInvalidSessionID.
func SanitizeSessionID(input string) (SessionID, error) {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, input)
	}
	return SessionID(b.String()), nil
}
