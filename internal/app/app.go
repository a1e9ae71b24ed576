// Package app composes the meal calendar: rendering, the meal write path and
// monthly summaries for one child at a time.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/child"
	"kids-meal-calendar/internal/clipper"
	"kids-meal-calendar/internal/export"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/metrics"
	"kids-meal-calendar/internal/summary"
)

// ErrUnavailable is returned for features that are not configured.
var ErrUnavailable = errors.New("feature not configured")

// Deps are the collaborators an App is built from.
type Deps struct {
	Children child.Directory
	Meals    *meal.Service
	Analyst  *summary.Analyst
	Clipper  *clipper.Clipper // optional
	Metrics  *metrics.Store   // optional
	Clock    calendar.Clock
	Locale   calendar.Locale
	Logger   *zap.Logger
}

// App holds the application's dependencies.
type App struct {
	children child.Directory
	meals    *meal.Service
	analyst  *summary.Analyst
	clipper  *clipper.Clipper
	metrics  *metrics.Store
	clock    calendar.Clock
	locale   calendar.Locale
	logger   *zap.Logger
}

// New creates an App.
func New(d Deps) *App {
	if d.Clock == nil {
		d.Clock = calendar.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &App{
		children: d.Children,
		meals:    d.Meals,
		analyst:  d.Analyst,
		clipper:  d.Clipper,
		metrics:  d.Metrics,
		clock:    d.Clock,
		locale:   d.Locale,
		logger:   d.Logger,
	}
}

// CalendarView is a rendered month for one child.
type CalendarView struct {
	Child    *child.Child    `json:"child"`
	Month    string          `json:"month"`
	Label    string          `json:"label"`
	Previous string          `json:"previous"`
	Next     string          `json:"next"`
	Weekdays []string        `json:"weekdays"`
	Cells    []calendar.Cell `json:"cells"`

	Grid  calendar.Grid `json:"-"`
	Index meal.Index    `json:"-"`
}

// Weeks splits the cells into rows of seven.
func (v *CalendarView) Weeks() [][]calendar.Cell {
	var weeks [][]calendar.Cell
	for i := 0; i+7 <= len(v.Cells); i += 7 {
		weeks = append(weeks, v.Cells[i:i+7])
	}
	return weeks
}

// Locale returns the locale labels are rendered in.
func (a *App) Locale() calendar.Locale {
	return a.locale
}

// Today returns the current civil date.
func (a *App) Today() time.Time {
	return calendar.CivilDate(a.clock.Now())
}

// Child resolves a child id.
func (a *App) Child(ctx context.Context, childID int64) (*child.Child, error) {
	return a.children.Get(ctx, childID)
}

// Render builds the calendar of month for a child. The meal index is rebuilt
// from the store on every call and today is read from the clock now.
func (a *App) Render(ctx context.Context, childID int64, month time.Time) (*CalendarView, error) {
	c, err := a.children.Get(ctx, childID)
	if err != nil {
		return nil, err
	}

	grid := calendar.BuildMonthGrid(month)
	index, err := a.meals.Index(ctx, childID, meal.DateKey(grid.Start()), meal.DateKey(grid.End()))
	if err != nil {
		return nil, fmt.Errorf("failed to load meals: %w", err)
	}

	weekdays := make([]string, 7)
	for i := range weekdays {
		weekdays[i] = a.locale.WeekdayShort(time.Weekday(i))
	}

	return &CalendarView{
		Child:    c,
		Month:    calendar.MonthKey(grid.Month),
		Label:    grid.Label(a.locale),
		Previous: calendar.MonthKey(calendar.AddMonths(grid.Month, -1)),
		Next:     calendar.MonthKey(calendar.AddMonths(grid.Month, 1)),
		Weekdays: weekdays,
		Cells:    calendar.Render(grid, index, a.clock.Now(), a.locale),
		Grid:     grid,
		Index:    index,
	}, nil
}

// SaveMeal records, replaces or clears one meal slot of a child.
func (a *App) SaveMeal(ctx context.Context, childID int64, date string, slot meal.Slot, description string) (meal.Index, error) {
	if _, err := a.children.Get(ctx, childID); err != nil {
		return nil, err
	}
	idx, err := a.meals.SaveMeal(ctx, childID, date, slot, description)
	if err != nil {
		return nil, err
	}
	a.logger.Info("meal saved",
		zap.Int64("child_id", childID),
		zap.String("date", date),
		zap.String("slot", string(slot)),
		zap.Bool("cleared", strings.TrimSpace(description) == ""))
	return idx, nil
}

// RequestMonthlySummary asks for the nutrition summary of a child's month.
// Generator failures come back as a Result with Fallback set, not an error.
func (a *App) RequestMonthlySummary(ctx context.Context, childID int64, month time.Time) (summary.Result, error) {
	view, err := a.Render(ctx, childID, month)
	if err != nil {
		return summary.Result{}, err
	}
	return a.analyst.Summarize(ctx, summary.Input{
		ChildID:   childID,
		ChildName: view.Child.Name,
		Grid:      view.Grid,
		Index:     view.Index,
	})
}

// LatestSummary returns the last summary generated for a child's month.
func (a *App) LatestSummary(ctx context.Context, childID int64, month time.Time) (summary.Result, error) {
	if _, err := a.children.Get(ctx, childID); err != nil {
		return summary.Result{}, err
	}
	return a.analyst.Latest(ctx, childID, calendar.MonthKey(month))
}

// Export renders a child's month as an XLSX workbook and its file name.
func (a *App) Export(ctx context.Context, childID int64, month time.Time) (*bytes.Buffer, string, error) {
	view, err := a.Render(ctx, childID, month)
	if err != nil {
		return nil, "", err
	}
	buf, err := export.MonthlyWorkbook(view.Child.Name, view.Grid, view.Cells, a.locale)
	if err != nil {
		return nil, "", err
	}
	return buf, export.FileName(view.Child.Name, view.Grid), nil
}

// ImportMenu pulls a cafeteria menu page into a child's calendar.
func (a *App) ImportMenu(ctx context.Context, childID int64, url string) (*clipper.ImportResult, error) {
	if a.clipper == nil {
		return nil, fmt.Errorf("menu import: %w", ErrUnavailable)
	}
	if _, err := a.children.Get(ctx, childID); err != nil {
		return nil, err
	}
	return a.clipper.ImportMenu(ctx, childID, url)
}

// Meals exposes the meal service for the REST endpoints.
func (a *App) Meals() *meal.Service {
	return a.meals
}

// UsageReport returns token usage for the last days.
func (a *App) UsageReport(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	if a.metrics == nil {
		return nil, fmt.Errorf("metrics: %w", ErrUnavailable)
	}
	return a.metrics.GetDailyUsage(ctx, days)
}
