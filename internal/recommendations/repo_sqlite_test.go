package recommendations

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
	"advisor-backend/internal/shared/storage/db"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	ctx := context.Background()
	conn, dialect, err := db.Connect(ctx, "sqlite://"+filepath.Join(t.TempDir(), "advisor.db"), db.DefaultMigrateOptions())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.RunMigrations(ctx, conn, dialect); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLiteRepo(conn)
}

func TestSQLiteRepoRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	created := time.Date(2026, time.January, 5, 9, 30, 0, 123456789, time.UTC)
	rec := sampleRecord("rec-1", "guest:g1", created)

	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, "rec-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at drifted: %v", got.CreatedAt)
	}
	if got.State != engine.StateClarifying || got.Outcome.Clarification == nil {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.AdditionalInfo == nil || got.AdditionalInfo.BusinessType != catalog.BusinessRetail {
		t.Fatalf("additional info lost: %+v", got.AdditionalInfo)
	}

	rec.State = engine.StateResolved
	rec.Platform = catalog.PlatformWeb
	rec.ConfidenceFlag = engine.ConfidenceNormal
	rec.Outcome = engine.Outcome{Recommendation: &engine.Recommendation{Platform: catalog.PlatformWeb}}
	rec.UpdatedAt = created.Add(time.Minute)
	if err := repo.Update(ctx, rec, engine.StateClarifying); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = repo.GetByID(ctx, "rec-1")
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.State != engine.StateResolved || got.Outcome.Recommendation == nil || got.ConfidenceFlag != engine.ConfidenceNormal {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.UpdatedAt.Equal(created.Add(time.Minute)) {
		t.Fatalf("unexpected updated_at: %v", got.UpdatedAt)
	}

	rec.Platform = catalog.PlatformDesktop
	if err := repo.Update(ctx, rec, engine.StateClarifying); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if got, _ = repo.GetByID(ctx, "rec-1"); got.Platform != catalog.PlatformWeb {
		t.Fatalf("resolved record was overwritten: %s", got.Platform)
	}
}

func TestSQLiteRepoListAndMissing(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	// sub-second offsets check that text ordering follows time ordering
	offsets := []time.Duration{0, 100 * time.Millisecond, 120 * time.Millisecond}
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, sampleRecord(id, "u1", base.Add(offsets[i]))); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	got, err := repo.ListByUser(ctx, "u1", 0, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 3 || got[0].ID != "c" || got[1].ID != "b" || got[2].ID != "a" {
		t.Fatalf("unexpected order: %v", ids(got))
	}
	empty, err := repo.ListByUser(ctx, "nobody", 10, 0)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", ids(empty), err)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Update(ctx, sampleRecord("missing", "u1", base), engine.StateClarifying); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}
