package recommendations

import (
	"context"

	"advisor-backend/internal/engine"
)

// Repo defines persistence operations for recommendation records.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	// Update rewrites the outcome, info and denormalised columns of an
	// existing record, but only while its stored state is still from.
	// A record that moved on returns ErrAlreadyResolved.
	Update(ctx context.Context, rec Record, from engine.State) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
