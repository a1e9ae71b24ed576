package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/child"
	"kids-meal-calendar/internal/clipper"
	"kids-meal-calendar/internal/config"
	"kids-meal-calendar/internal/database"
	"kids-meal-calendar/internal/llm"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/metrics"
	"kids-meal-calendar/internal/seed"
	"kids-meal-calendar/internal/summary"
)

// MemoryDatabase as DATABASE_PATH runs on seed data held in memory.
const MemoryDatabase = "memory"

// Runtime is a fully wired App plus the resources behind it.
type Runtime struct {
	App      *App
	Config   *config.Config
	DB       *database.DB      // nil in memory mode
	Children *child.Repository // nil in memory mode
	Meals    *meal.Service
	Metrics  *metrics.Store // nil in memory mode

	closers []func() error
}

// Close releases the generator clients and the database.
func (r *Runtime) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build wires the application from configuration.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg}
	locale := calendar.NewLocale(cfg.Locale)

	var (
		children child.Directory
		store    meal.Store
		archive  summary.Archive
		recorder summary.MetaRecorder
	)

	if cfg.DatabasePath == MemoryDatabase {
		fixture := seed.Demo()
		if cfg.SeedFile != "" {
			f, err := seed.Load(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			fixture = f
		}
		children = fixture.Directory()
		store = meal.NewMemoryStore(fixture.Entries())
		logger.Info("running on in-memory seed data", zap.Int("children", len(fixture.Children)))
	} else {
		db, err := database.NewDB(cfg.DatabasePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		rt.DB = db
		rt.Children = child.NewRepository(db.SQL)
		rt.Metrics = metrics.NewStore(db.SQL)

		children = rt.Children
		store = meal.NewRepository(db.SQL)
		archive = summary.NewRepository(db.SQL)
		recorder = rt.Metrics
	}

	textGen, err := newSummaryGenerator(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if c, ok := textGen.(llm.Closer); ok {
		rt.closers = append(rt.closers, c.Close)
	}

	rt.Meals = meal.NewService(store, logger.Named("meal"))

	opts := []summary.AnalystOption{
		summary.WithTimeout(cfg.SummaryTimeout),
		summary.WithLogger(logger.Named("summary")),
	}
	if archive != nil {
		opts = append(opts, summary.WithArchive(archive))
	}
	if recorder != nil {
		opts = append(opts, summary.WithRecorder(recorder))
	}
	builder := summary.NewBuilder(locale, summary.Options{IncludeOutsideDays: cfg.SummaryIncludeOutsideDays})
	analyst := summary.NewAnalyst(textGen, builder, locale, opts...)

	var clipRecorder clipper.MetaRecorder
	if rt.Metrics != nil {
		clipRecorder = rt.Metrics
	}
	clip := clipper.NewClipper(newExtractorGenerator(cfg, textGen), rt.Meals, clipRecorder, logger.Named("clipper"))

	deps := Deps{
		Children: children,
		Meals:    rt.Meals,
		Analyst:  analyst,
		Clipper:  clip,
		Clock:    calendar.SystemClock{Location: cfg.Location()},
		Locale:   locale,
		Logger:   logger,
	}
	if rt.Metrics != nil {
		deps.Metrics = rt.Metrics
	}
	rt.App = New(deps)
	return rt, nil
}

func newSummaryGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, error) {
	switch cfg.SummaryProvider {
	case config.ProviderGroq:
		return llm.NewGroqClient(cfg.GroqAPIKey, llm.ModelSummary, llm.WithTemperature(0.7)), nil
	default:
		gen, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return gen, nil
	}
}

// newExtractorGenerator prefers Groq's JSON mode for menu extraction and
// falls back to the summary generator.
func newExtractorGenerator(cfg *config.Config, fallback llm.TextGenerator) llm.TextGenerator {
	if cfg.GroqAPIKey == "" {
		return fallback
	}
	return llm.NewGroqClient(cfg.GroqAPIKey, llm.ModelExtractor, llm.WithTemperature(0.1), llm.WithJSONResponse())
}
