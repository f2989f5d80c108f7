// Package state provides filesystem-backed storage implementations.
package state

import "github.com/user/viva/internal/types"

// Compile-time interface compliance checks.
var _ types.EventLog = (*EventLog)(nil)
var _ types.ReportStore = (*ReportStore)(nil)
