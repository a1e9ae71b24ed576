package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/child"
	"kids-meal-calendar/internal/llm"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/summary"
)

type stubGenerator struct {
	content string
	err     error
	prompts []string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	s.prompts = append(s.prompts, prompt)
	return llm.ContentResponse{Content: s.content}, s.err
}

func newTestApp(gen llm.TextGenerator) *App {
	loc := calendar.NewLocale("ko")
	store := meal.NewMemoryStore([]meal.Entry{
		{ChildID: 5, Date: "2024-07-05", Slot: meal.Lunch, Description: "rice"},
		{ChildID: 5, Date: "2024-06-30", Slot: meal.Dinner, Description: "soup"},
	})
	return New(Deps{
		Children: child.StaticDirectory{5: {ID: 5, Name: "Minji"}},
		Meals:    meal.NewService(store, nil),
		Analyst:  summary.NewAnalyst(gen, summary.NewBuilder(loc, summary.Options{}), loc),
		Clock:    calendar.FixedClock(time.Date(2024, time.July, 5, 8, 0, 0, 0, time.UTC)),
		Locale:   loc,
	})
}

var july = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

func TestApp_Render(t *testing.T) {
	a := newTestApp(&stubGenerator{})

	view, err := a.Render(context.Background(), 5, july)
	require.NoError(t, err)

	assert.Equal(t, "Minji", view.Child.Name)
	assert.Equal(t, "2024-07", view.Month)
	assert.Equal(t, "2024년 7월", view.Label)
	assert.Equal(t, "2024-06", view.Previous)
	assert.Equal(t, "2024-08", view.Next)
	assert.Equal(t, []string{"일", "월", "화", "수", "목", "금", "토"}, view.Weekdays)
	require.Len(t, view.Cells, 35)
	assert.Len(t, view.Weeks(), 5)

	first := view.Cells[0]
	assert.Equal(t, "2024-06-30", first.Date)
	assert.True(t, first.Slots[2].Filled, "adjacent-month meals are shown")
	assert.False(t, first.Slots[2].Interactive)

	today := view.Cells[5]
	assert.Equal(t, "2024-07-05", today.Date)
	assert.True(t, today.IsToday)
	assert.Equal(t, "rice", today.Slots[1].Description)

	_, err = a.Render(context.Background(), 9, july)
	assert.ErrorIs(t, err, child.ErrNotFound)
}

func TestApp_SaveMeal(t *testing.T) {
	a := newTestApp(&stubGenerator{})
	ctx := context.Background()

	idx, err := a.SaveMeal(ctx, 5, "2024-07-05", meal.Lunch, "")
	require.NoError(t, err)
	_, ok := idx.Get("2024-07-05", meal.Lunch)
	assert.False(t, ok)

	view, err := a.Render(ctx, 5, july)
	require.NoError(t, err)
	assert.False(t, view.Cells[5].Slots[1].Filled)

	_, err = a.SaveMeal(ctx, 9, "2024-07-05", meal.Lunch, "rice")
	assert.ErrorIs(t, err, child.ErrNotFound)

	_, err = a.SaveMeal(ctx, 5, "2024-13-05", meal.Lunch, "rice")
	assert.ErrorIs(t, err, meal.ErrInvalid)
}

func TestApp_RequestMonthlySummary(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		gen := &stubGenerator{content: "## 분석\n* 좋아요"}
		a := newTestApp(gen)

		res, err := a.RequestMonthlySummary(ctx, 5, july)
		require.NoError(t, err)
		assert.False(t, res.Fallback)
		assert.Contains(t, res.Document.HTML(), "<h2>분석</h2>")

		require.Len(t, gen.prompts, 1)
		assert.Contains(t, gen.prompts[0], "Minji")
		assert.Contains(t, gen.prompts[0], `"lunch": "rice"`)
		assert.NotContains(t, gen.prompts[0], "soup", "June days are not sent")
	})

	t.Run("Fallback", func(t *testing.T) {
		a := newTestApp(&stubGenerator{err: errors.New("network down")})

		res, err := a.RequestMonthlySummary(ctx, 5, july)
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		assert.Contains(t, res.Document.Text(), "잠시 후 다시 시도해 주세요")
	})

	t.Run("UnknownChild", func(t *testing.T) {
		a := newTestApp(&stubGenerator{})
		_, err := a.RequestMonthlySummary(ctx, 9, july)
		assert.ErrorIs(t, err, child.ErrNotFound)
	})

	t.Run("LatestWithoutArchive", func(t *testing.T) {
		a := newTestApp(&stubGenerator{})
		_, err := a.LatestSummary(ctx, 5, july)
		assert.ErrorIs(t, err, summary.ErrNotFound)
	})
}

func TestApp_Export(t *testing.T) {
	a := newTestApp(&stubGenerator{})

	buf, name, err := a.Export(context.Background(), 5, july)
	require.NoError(t, err)
	assert.Equal(t, "Minji_2024-07_meals.xlsx", name)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("2024-07", "D7")
	require.NoError(t, err)
	assert.Equal(t, "rice", v)
}

func TestApp_Unavailable(t *testing.T) {
	a := newTestApp(&stubGenerator{})

	_, err := a.ImportMenu(context.Background(), 5, "http://example.com")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = a.UsageReport(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUnavailable)
}
