package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kids-meal-calendar/internal/app"
	"kids-meal-calendar/internal/auth"
	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/child"
	"kids-meal-calendar/internal/llm"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/summary"
)

type stubGenerator struct {
	content string
	err     error
}

func (s stubGenerator) GenerateContent(context.Context, string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: s.content}, s.err
}

func newTestApp(gen llm.TextGenerator) *app.App {
	loc := calendar.NewLocale("en")
	store := meal.NewMemoryStore([]meal.Entry{
		{ChildID: 5, Date: "2024-07-05", Slot: meal.Lunch, Description: "rice"},
		{ChildID: 5, Date: "2024-07-05", Slot: meal.Breakfast, Description: "toast"},
		{ChildID: 5, Date: "2024-07-10", Slot: meal.Dinner, Description: "fish"},
		{ChildID: 6, Date: "2024-07-05", Slot: meal.Lunch, Description: "noodles"},
	})
	return app.New(app.Deps{
		Children: child.StaticDirectory{
			5: {ID: 5, Name: "Minji"},
			6: {ID: 6, Name: "Junho"},
		},
		Meals:   meal.NewService(store, nil),
		Analyst: summary.NewAnalyst(gen, summary.NewBuilder(loc, summary.Options{}), loc),
		Clock:   calendar.FixedClock(time.Date(2024, time.July, 5, 8, 0, 0, 0, time.UTC)),
		Locale:  loc,
	})
}

func newTestServer(gen llm.TextGenerator, opts ...Option) http.Handler {
	return NewServer(":0", newTestApp(gen), nil, opts...).Handler
}

func do(t *testing.T, h http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	h := newTestServer(stubGenerator{})

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	rec = do(t, h, http.MethodGet, "/healthz", nil, RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = do(t, h, http.MethodGet, "/healthz", nil, RequestIDHeader, strings.Repeat("x", 65))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestCalendar(t *testing.T) {
	h := newTestServer(stubGenerator{})

	t.Run("DefaultsToCurrentMonth", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/children/5/calendar", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		view := decode[app.CalendarView](t, rec)
		assert.Equal(t, "2024-07", view.Month)
		assert.Equal(t, "July 2024", view.Label)
		require.Len(t, view.Cells, 35)
		assert.True(t, view.Cells[5].IsToday)
		assert.Equal(t, "rice", view.Cells[5].Slots[1].Description)
	})

	t.Run("Errors", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/children/5/calendar?month=2024-13", nil).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/children/abc/calendar", nil).Code)
		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/children/9/calendar", nil).Code)
	})
}

func TestSaveMeal(t *testing.T) {
	h := newTestServer(stubGenerator{})

	rec := do(t, h, http.MethodPut, "/api/children/5/calendar/2024-07-06/Dinner", map[string]string{"description": " bulgogi "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[saveMealResponse](t, rec)
	assert.Equal(t, meal.Dinner, res.Slot)
	assert.Equal(t, "bulgogi", res.Meals["2024-07-06"][meal.Dinner])
	assert.Equal(t, "rice", res.Meals["2024-07-05"][meal.Lunch])

	rec = do(t, h, http.MethodPut, "/api/children/5/calendar/2024-07-06/dinner", map[string]string{"description": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[saveMealResponse](t, rec)
	_, ok := res.Meals.Get("2024-07-06", meal.Dinner)
	assert.False(t, ok)

	assert.Equal(t, http.StatusBadRequest,
		do(t, h, http.MethodPut, "/api/children/5/calendar/2024-07-06/snack", map[string]string{"description": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, h, http.MethodPut, "/api/children/5/calendar/2024-02-30/lunch", map[string]string{"description": "x"}).Code)
	assert.Equal(t, http.StatusNotFound,
		do(t, h, http.MethodPut, "/api/children/9/calendar/2024-07-06/lunch", map[string]string{"description": "x"}).Code)
}

func TestSummary(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := newTestServer(stubGenerator{content: "## Balance\n* **More** vegetables"})
		rec := do(t, h, http.MethodPost, "/api/children/5/summary?month=2024-07", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[summaryResponse](t, rec)
		assert.Equal(t, "2024-07", res.Month)
		assert.False(t, res.Fallback)
		assert.Contains(t, res.HTML, "<h2>Balance</h2>")
		assert.Contains(t, res.HTML, "<strong>More</strong>")
		assert.NotEmpty(t, res.Disclaimer)
	})

	t.Run("FallbackIsNotAnError", func(t *testing.T) {
		h := newTestServer(stubGenerator{err: assert.AnError})
		rec := do(t, h, http.MethodPost, "/api/children/5/summary?month=2024-07", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[summaryResponse](t, rec)
		assert.True(t, res.Fallback)
		assert.Contains(t, res.Markdown, calendar.NewLocale("en").FallbackMessage())
		assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	})

	t.Run("LatestWithoutArchive", func(t *testing.T) {
		h := newTestServer(stubGenerator{})
		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/children/5/summary?month=2024-07", nil).Code)
	})
}

func TestExport(t *testing.T) {
	h := newTestServer(stubGenerator{})
	rec := do(t, h, http.MethodGet, "/api/children/5/calendar/export?month=2024-07", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename*=UTF-8''Minji_2024-07_meals.xlsx", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestUnavailableFeatures(t *testing.T) {
	h := newTestServer(stubGenerator{})

	rec := do(t, h, http.MethodPost, "/api/children/5/meals/import", map[string]string{"url": "https://school.example/menu"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/children/5/meals/import", map[string]string{"url": "ftp://school.example/menu"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/metrics", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/metrics?days=0", nil).Code)
}

func TestMealsAPI(t *testing.T) {
	h := newTestServer(stubGenerator{})

	t.Run("List", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/children/5/meals", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		entries := decode[[]meal.Entry](t, rec)
		require.Len(t, entries, 3)
		assert.Equal(t, "2024-07-10", entries[0].Date)
		assert.Equal(t, meal.Breakfast, entries[1].Slot)
		assert.Equal(t, meal.Lunch, entries[2].Slot)

		rec = do(t, h, http.MethodGet, "/api/children/5/meals?startDate=2024-07-06&endDate=2024-07-31", nil)
		assert.Len(t, decode[[]meal.Entry](t, rec), 1)

		rec = do(t, h, http.MethodGet, "/api/children/5/meals?startDate=2024-08-01", nil)
		assert.Equal(t, "[]\n", rec.Body.String())

		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/children/5/meals?startDate=07-01", nil).Code)
	})

	t.Run("ByDate", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/children/5/meals/date?date=2024-07-05", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		entries := decode[[]meal.Entry](t, rec)
		require.Len(t, entries, 2)
		assert.Equal(t, meal.Breakfast, entries[0].Slot)
		assert.Equal(t, meal.Lunch, entries[1].Slot)

		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/children/5/meals/date", nil).Code)
	})

	var created meal.Entry
	t.Run("Create", func(t *testing.T) {
		body := map[string]string{"record_date": "2024-07-11", "meal_type": "lunch", "description": "curry"}
		rec := do(t, h, http.MethodPost, "/api/children/5/meals", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created = decode[meal.Entry](t, rec)
		assert.NotZero(t, created.ID)
		assert.Equal(t, int64(5), created.ChildID)

		assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/children/5/meals", body).Code)

		body["meal_type"] = "snack"
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/children/5/meals", body).Code)

		body["meal_type"] = "dinner"
		body["description"] = "  "
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/children/5/meals", body).Code)
	})

	t.Run("Update", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/meals/"+itoa(created.ID), map[string]string{"description": "katsu curry"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "katsu curry", decode[meal.Entry](t, rec).Description)

		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/meals/999", map[string]string{"description": "x"}).Code)
	})

	t.Run("Delete", func(t *testing.T) {
		rec := do(t, h, http.MethodDelete, "/api/meals/"+itoa(created.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Meal record deleted successfully", decode[map[string]string](t, rec)["message"])

		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/meals/"+itoa(created.ID), nil).Code)
	})
}

func TestAuth(t *testing.T) {
	m := auth.NewManager("secret", time.Hour)
	h := newTestServer(stubGenerator{}, WithAuth(m))

	own, err := m.GenerateToken("parent", []int64{5})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/children/5/calendar", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, h, http.MethodGet, "/api/children/5/calendar", nil, "Authorization", "Bearer garbage").Code)

	bearer := "Bearer " + own
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/children/5/calendar", nil, "Authorization", bearer).Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/api/children/6/calendar", nil, "Authorization", bearer).Code)

	// Meal 4 belongs to child 6.
	rec := do(t, h, http.MethodDelete, "/api/meals/4", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExtraHandlersAndRecover(t *testing.T) {
	extra := map[string]http.Handler{
		"POST /telegram": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}),
		"GET /boom": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}),
	}
	h := NewServer(":0", newTestApp(stubGenerator{}), extra, WithAuth(auth.NewManager("secret", 0))).Handler

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/telegram", nil).Code)

	rec := do(t, h, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[errorBody](t, rec).Error)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
