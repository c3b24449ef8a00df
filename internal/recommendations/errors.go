package recommendations

import (
	"errors"

	"advisor-backend/internal/engine"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrAlreadyResolved is returned when answers arrive for a record that
	// is no longer waiting for clarification.
	ErrAlreadyResolved = errors.New("recommendation already resolved")
	// ErrNoStore means document uploads were requested without an object store.
	ErrNoStore = errors.New("object store not configured")
	// ErrInvalidInput aliases the engine sentinel so callers can match one value.
	ErrInvalidInput = engine.ErrInvalidInput
)
