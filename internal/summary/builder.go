// Package summary asks a text generator for a monthly nutrition summary of a
// child's meal calendar and turns the answer into a displayable document.
package summary

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/meal"
)

//go:embed summary_prompt.md
var summaryPrompt string

var promptTemplate = template.Must(template.New("summary").Parse(summaryPrompt))

// Meals holds one day's descriptions. Nil means nothing recorded.
type Meals struct {
	Breakfast *string `json:"breakfast"`
	Lunch     *string `json:"lunch"`
	Dinner    *string `json:"dinner"`
}

// DayRecord is one day of the payload sent to the generator.
type DayRecord struct {
	Date  string `json:"date"`
	Day   string `json:"day"`
	Meals Meals  `json:"meals"`
}

// Request is a packaged summary request.
type Request struct {
	ChildName string
	Month     string // YYYY-MM
	Days      []DayRecord
	Prompt    string
}

// Options control which days are sent.
type Options struct {
	// IncludeOutsideDays also sends the padding days of the adjacent months.
	IncludeOutsideDays bool
}

// Builder packages a month of meals into a prompt.
type Builder struct {
	locale calendar.Locale
	opts   Options
}

// NewBuilder creates a Builder.
func NewBuilder(locale calendar.Locale, opts Options) *Builder {
	return &Builder{locale: locale, opts: opts}
}

type promptData struct {
	ChildName    string
	MonthLabel   string
	Language     string
	MealPlanJSON string
}

// BuildRequest emits one record per grid day (only the month's own days
// unless IncludeOutsideDays is set) and renders the prompt.
func (b *Builder) BuildRequest(childName string, grid calendar.Grid, index meal.Index) (Request, error) {
	childName = strings.TrimSpace(childName)
	if childName == "" {
		return Request{}, fmt.Errorf("%w: child name is required", meal.ErrInvalid)
	}

	days := make([]DayRecord, 0, len(grid.Days))
	for _, d := range grid.Days {
		if !d.IsCurrentMonth && !b.opts.IncludeOutsideDays {
			continue
		}
		key := d.Key()
		days = append(days, DayRecord{
			Date: key,
			Day:  b.locale.Weekday(d.Date.Weekday()),
			Meals: Meals{
				Breakfast: lookup(index, key, meal.Breakfast),
				Lunch:     lookup(index, key, meal.Lunch),
				Dinner:    lookup(index, key, meal.Dinner),
			},
		})
	}

	payload, err := json.MarshalIndent(days, "", "  ")
	if err != nil {
		return Request{}, fmt.Errorf("failed to marshal meal plan: %w", err)
	}

	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, promptData{
		ChildName:    childName,
		MonthLabel:   grid.Label(b.locale),
		Language:     b.locale.LanguageName(),
		MealPlanJSON: string(payload),
	})
	if err != nil {
		return Request{}, fmt.Errorf("failed to render summary prompt: %w", err)
	}

	return Request{
		ChildName: childName,
		Month:     calendar.MonthKey(grid.Month),
		Days:      days,
		Prompt:    buf.String(),
	}, nil
}

func lookup(index meal.Index, date string, slot meal.Slot) *string {
	desc, ok := index.Get(date, slot)
	if !ok {
		return nil
	}
	return &desc
}
