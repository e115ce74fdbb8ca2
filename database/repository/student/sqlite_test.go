package studentRepo

import (
	"context"
	"testing"
	"time"

	"workshophub/database"
	"workshophub/models"
)

func newTestRepo(t *testing.T) StudentRepository {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStudentRepo(db)
}

func TestSQLiteFindByEmailIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if err := repo.Create(ctx, models.Student{ID: "s1", Name: "Asha", Email: " Asha@Example.com", Phone: "9876543210"}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.FindByEmail(ctx, "asha@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("got %+v", got)
	}
}

func TestSQLiteFindByPhoneMatchesStoredPrefixes(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fixtures := []models.Student{
		{ID: "old", Name: "A", Phone: "9876543210", CreatedAt: base},
		{ID: "new", Name: "B", Phone: "+919876543210", CreatedAt: base.Add(time.Hour)},
		{ID: "other", Name: "C", Phone: "9000000000", CreatedAt: base},
	}
	for _, s := range fixtures {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	got, err := repo.FindByPhone(ctx, "9876543210")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "old" {
		t.Fatalf("got %+v, want [new old]", got)
	}
}
