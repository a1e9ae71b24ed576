package meal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kids-meal-calendar/internal/database"
)

func newTestRepository(t *testing.T) (*Repository, *database.DB) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.SQL.Exec(`INSERT INTO children (id, name) VALUES (5, 'Minji'), (6, 'Jun')`)
	require.NoError(t, err)
	return NewRepository(db.SQL), db
}

func TestRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	lunch, err := repo.Create(ctx, Entry{ChildID: 5, Date: "2024-07-05", Slot: Lunch, Description: "rice"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, Entry{ChildID: 5, Date: "2024-07-05", Slot: Breakfast, Description: "toast"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, Entry{ChildID: 5, Date: "2024-07-04", Slot: Dinner, Description: "soup"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, Entry{ChildID: 6, Date: "2024-07-05", Slot: Lunch, Description: "pasta"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, Entry{ChildID: 5, Date: "2024-07-05", Slot: Lunch, Description: "again"})
	assert.ErrorIs(t, err, ErrDuplicate)

	all, err := repo.List(ctx, 5, "", "")
	require.NoError(t, err)
	want := []Entry{
		{ChildID: 5, Date: "2024-07-04", Slot: Dinner, Description: "soup"},
		{ChildID: 5, Date: "2024-07-05", Slot: Breakfast, Description: "toast"},
		{ChildID: 5, Date: "2024-07-05", Slot: Lunch, Description: "rice"},
	}
	if diff := cmp.Diff(want, all, cmpopts.IgnoreFields(Entry{}, "ID", "CreatedAt")); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	ranged, err := repo.List(ctx, 5, "2024-07-05", "2024-07-31")
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	found, err := repo.Find(ctx, 5, "2024-07-05", Lunch)
	require.NoError(t, err)
	assert.Equal(t, lunch.ID, found.ID)

	_, err = repo.Find(ctx, 5, "2024-07-06", Lunch)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := repo.UpdateDescription(ctx, lunch.ID, "kimbap")
	require.NoError(t, err)
	assert.Equal(t, "kimbap", updated.Description)

	_, err = repo.UpdateDescription(ctx, 999, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, lunch.ID))
	assert.ErrorIs(t, repo.Delete(ctx, lunch.ID), ErrNotFound)
}

func TestRepository_CascadeOnChildDelete(t *testing.T) {
	ctx := context.Background()
	repo, db := newTestRepository(t)

	_, err := repo.Create(ctx, Entry{ChildID: 6, Date: "2024-07-05", Slot: Lunch, Description: "pasta"})
	require.NoError(t, err)

	_, err = db.SQL.Exec(`DELETE FROM children WHERE id = 6`)
	require.NoError(t, err)

	entries, err := repo.List(ctx, 6, "", "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_SaveMealWithRepository(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	svc := NewService(repo, nil)

	_, err := svc.SaveMeal(ctx, 5, "2024-07-05", Lunch, "rice")
	require.NoError(t, err)

	idx, err := svc.SaveMeal(ctx, 5, "2024-07-05", Lunch, "")
	require.NoError(t, err)
	_, ok := idx.Get("2024-07-05", Lunch)
	assert.False(t, ok)
}
