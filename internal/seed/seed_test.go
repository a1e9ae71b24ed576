package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kids-meal-calendar/internal/child"
	"kids-meal-calendar/internal/database"
	"kids-meal-calendar/internal/meal"
)

func TestDemo(t *testing.T) {
	f := Demo()
	require.Len(t, f.Children, 2)

	dir := f.Directory()
	c, err := dir.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "김민지", c.Name)

	idx := meal.BuildIndex(f.Entries())
	got, ok := idx.Get("2024-07-05", meal.Lunch)
	assert.True(t, ok)
	assert.Equal(t, "잔치국수, 과일", got)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"BadYAML":     "children: [",
		"ZeroID":      "children:\n  - name: a\n",
		"DuplicateID": "children:\n  - {id: 1, name: a}\n  - {id: 1, name: b}\n",
		"BadDate":     "children:\n  - id: 1\n    name: a\n    meals:\n      - {date: '07/01', slot: lunch, description: x}\n",
		"BadSlot":     "children:\n  - id: 1\n    name: a\n    meals:\n      - {date: '2024-07-01', slot: snack, description: x}\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("children:\n  - id: 3\n    name: Jun\n    meals:\n      - date: 2024-07-01\n        slot: dinner\n        description: soup\n"), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Entries(), 1)
	assert.Equal(t, "2024-07-01", f.Entries()[0].Date)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "seed.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	children := child.NewRepository(db.SQL)
	meals := meal.NewService(meal.NewRepository(db.SQL), nil)

	ids, err := Demo().Apply(ctx, children, meals)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	idx, err := meals.Index(ctx, ids[1], "2024-07-01", "2024-07-31")
	require.NoError(t, err)
	assert.Equal(t, 7, idx.Len())
}
