// Package seed loads sample children and meals from YAML fixtures.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kids-meal-calendar/internal/child"
	"kids-meal-calendar/internal/meal"
)

//go:embed demo.yaml
var demoFixture []byte

// Meal is one fixture meal.
type Meal struct {
	Date        string `yaml:"date"`
	Slot        string `yaml:"slot"`
	Description string `yaml:"description"`
}

// Child is one fixture child with their meals.
type Child struct {
	ID        int64  `yaml:"id"`
	Name      string `yaml:"name"`
	BirthDate string `yaml:"birth_date"`
	Gender    string `yaml:"gender"`
	Meals     []Meal `yaml:"meals"`
}

// Fixture is a set of sample data.
type Fixture struct {
	Children []Child `yaml:"children"`
}

// Demo returns the built-in sample data.
func Demo() *Fixture {
	f, err := Parse(demoFixture)
	if err != nil {
		panic(fmt.Sprintf("invalid demo fixture: %v", err))
	}
	return f
}

// Load reads a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}

	seen := map[int64]bool{}
	for _, c := range f.Children {
		if c.ID <= 0 {
			return nil, fmt.Errorf("child %q: id must be positive", c.Name)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate child id %d", c.ID)
		}
		seen[c.ID] = true
		for _, m := range c.Meals {
			if _, err := meal.ParseDate(m.Date); err != nil {
				return nil, fmt.Errorf("child %d: %w", c.ID, err)
			}
			if _, err := meal.ParseSlot(m.Slot); err != nil {
				return nil, fmt.Errorf("child %d: %w", c.ID, err)
			}
		}
	}
	return &f, nil
}

// Entries flattens the fixture into meal entries in file order.
func (f *Fixture) Entries() []meal.Entry {
	var entries []meal.Entry
	for _, c := range f.Children {
		for _, m := range c.Meals {
			entries = append(entries, meal.Entry{
				ChildID:     c.ID,
				Date:        m.Date,
				Slot:        meal.Slot(m.Slot),
				Description: m.Description,
			})
		}
	}
	return entries
}

// Directory returns the fixture's children keyed by id.
func (f *Fixture) Directory() child.StaticDirectory {
	dir := make(child.StaticDirectory, len(f.Children))
	for _, c := range f.Children {
		dir[c.ID] = child.Child{ID: c.ID, Name: c.Name, BirthDate: c.BirthDate, Gender: c.Gender}
	}
	return dir
}

// ChildCreator persists a child and assigns it an id.
type ChildCreator interface {
	Create(ctx context.Context, c child.Child) (*child.Child, error)
}

// MealSaver is the meal write path.
type MealSaver interface {
	SaveMeal(ctx context.Context, childID int64, date string, slot meal.Slot, description string) (meal.Index, error)
}

// Apply writes the fixture into persistent storage. Children get new ids;
// the returned map translates fixture ids to stored ones.
func (f *Fixture) Apply(ctx context.Context, children ChildCreator, meals MealSaver) (map[int64]int64, error) {
	ids := make(map[int64]int64, len(f.Children))
	for _, c := range f.Children {
		created, err := children.Create(ctx, child.Child{Name: c.Name, BirthDate: c.BirthDate, Gender: c.Gender})
		if err != nil {
			return nil, fmt.Errorf("failed to seed child %q: %w", c.Name, err)
		}
		ids[c.ID] = created.ID
		for _, m := range c.Meals {
			if _, err := meals.SaveMeal(ctx, created.ID, m.Date, meal.Slot(m.Slot), m.Description); err != nil {
				return nil, fmt.Errorf("failed to seed meal %s %s: %w", m.Date, m.Slot, err)
			}
		}
	}
	return ids, nil
}
