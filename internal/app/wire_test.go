package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kids-meal-calendar/internal/child"
	"kids-meal-calendar/internal/config"
	"kids-meal-calendar/internal/meal"
)

func testConfig(dbPath string) *config.Config {
	return &config.Config{
		DatabasePath:    dbPath,
		GroqAPIKey:      "groq_key",
		SummaryProvider: config.ProviderGroq,
		SummaryTimeout:  time.Second,
		Locale:          "ko",
		Timezone:        "Asia/Seoul",
	}
}

func TestBuild_Memory(t *testing.T) {
	rt, err := Build(context.Background(), testConfig(MemoryDatabase), zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.DB)
	view, err := rt.App.Render(context.Background(), 1, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "김민지", view.Child.Name)

	got, ok := view.Index.Get("2024-07-05", meal.Lunch)
	assert.True(t, ok)
	assert.Equal(t, "잔치국수, 과일", got)
}

func TestBuild_SQLite(t *testing.T) {
	ctx := context.Background()
	rt, err := Build(ctx, testConfig(filepath.Join(t.TempDir(), "app.db")), zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Children)
	c, err := rt.Children.Create(ctx, child.Child{Name: "Jun"})
	require.NoError(t, err)

	_, err = rt.App.SaveMeal(ctx, c.ID, "2024-07-05", meal.Dinner, "fish")
	require.NoError(t, err)

	view, err := rt.App.Render(ctx, c.ID, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "fish", view.Cells[5].Slots[2].Description)

	usage, err := rt.App.UsageReport(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, usage)
}
