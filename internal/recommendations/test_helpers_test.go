package recommendations

import (
	"testing"
	"time"

	"advisor-backend/internal/analyzer"
	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
	localstore "advisor-backend/internal/shared/storage/object/local"
)

const (
	retailText = "I need an online store to sell my products"
	vagueText  = "I need something to help manage my business"
	foodText   = "I want a food delivery app"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return engine.New(analyzer.New(cat, nil))
}

func newTestService(t *testing.T, repo Repo) *Service {
	t.Helper()
	clock := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	return &Service{
		Engine: newTestEngine(t),
		Repo:   repo,
		Store:  localstore.New(t.TempDir()),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
}

func sampleRecord(id, userID string, created time.Time) Record {
	budget := 50000.0
	return Record{
		ID:        id,
		UserID:    userID,
		InputText: retailText,
		Source:    SourceText,
		AdditionalInfo: &engine.AdditionalInfo{
			BusinessType:  catalog.BusinessRetail,
			BudgetCeiling: &budget,
		},
		State: engine.StateClarifying,
		Outcome: engine.Outcome{Clarification: &engine.ClarificationRequest{
			Questions: []string{"What kind of business is this for?"},
		}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}
