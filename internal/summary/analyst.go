package summary

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/llm"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/shared"
)

const agentName = "MonthlySummary"

// MetaRecorder stores execution metadata of generator calls.
type MetaRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// Input identifies the month to summarise.
type Input struct {
	ChildID   int64
	ChildName string
	Grid      calendar.Grid
	Index     meal.Index
}

// Result is what the caller shows. When Fallback is set, Document holds only
// the locale's apology message.
type Result struct {
	Document   Document
	Raw        string
	Disclaimer string
	Fallback   bool
	// Shared is set when the call joined a request already in flight.
	Shared bool
	Meta   shared.AgentMeta
}

// Analyst requests monthly summaries from a text generator.
type Analyst struct {
	textGen  llm.TextGenerator
	builder  *Builder
	locale   calendar.Locale
	archive  Archive
	recorder MetaRecorder
	timeout  time.Duration
	logger   *zap.Logger

	group singleflight.Group
}

// AnalystOption customises an Analyst.
type AnalystOption func(*Analyst)

// WithArchive stores successful summaries.
func WithArchive(a Archive) AnalystOption {
	return func(an *Analyst) { an.archive = a }
}

// WithRecorder records usage metadata for every call.
func WithRecorder(r MetaRecorder) AnalystOption {
	return func(an *Analyst) { an.recorder = r }
}

// WithTimeout bounds a generator call.
func WithTimeout(d time.Duration) AnalystOption {
	return func(an *Analyst) { an.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) AnalystOption {
	return func(an *Analyst) { an.logger = l }
}

// NewAnalyst creates an Analyst.
func NewAnalyst(textGen llm.TextGenerator, builder *Builder, locale calendar.Locale, opts ...AnalystOption) *Analyst {
	a := &Analyst{
		textGen: textGen,
		builder: builder,
		locale:  locale,
		timeout: 60 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summarize asks for the month's summary. A request for a (child, month) that
// is already pending joins it instead of calling the generator again. The
// generator call is detached from ctx so that a caller who goes away does not
// abort it; its result is still archived. ctx only bounds how long this caller
// waits.
//
// Generator failures never surface as errors: they yield a fallback Result.
// An error is returned only for invalid input.
func (a *Analyst) Summarize(ctx context.Context, in Input) (Result, error) {
	req, err := a.builder.BuildRequest(in.ChildName, in.Grid, in.Index)
	if err != nil {
		return Result{}, err
	}

	key := strconv.FormatInt(in.ChildID, 10) + "/" + req.Month
	detached := context.WithoutCancel(ctx)
	ch := a.group.DoChan(key, func() (interface{}, error) {
		return a.generate(detached, in.ChildID, req), nil
	})

	select {
	case res := <-ch:
		r := res.Val.(Result)
		r.Shared = res.Shared
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// generate bounds only the generator call by the timeout; metrics and the
// archive are written on parent so a timed-out call is still recorded.
func (a *Analyst) generate(parent context.Context, childID int64, req Request) Result {
	ctx, cancel := context.WithTimeout(parent, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.textGen.GenerateContent(ctx, req.Prompt)
	meta := shared.AgentMeta{
		AgentName: agentName,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	var doc Document
	if err == nil {
		if strings.TrimSpace(resp.Content) == "" {
			err = fmt.Errorf("empty response from text generator")
		} else {
			doc = InterpretResponse(resp.Content)
		}
	}

	if err != nil {
		meta.Failed = true
		a.record(parent, meta)
		a.logger.Error("monthly summary generation failed",
			zap.Int64("child_id", childID),
			zap.String("month", req.Month),
			zap.Duration("latency", meta.Latency),
			zap.Error(err))
		return Result{
			Document: messageDocument(a.locale.FallbackMessage()),
			Fallback: true,
			Meta:     meta,
		}
	}

	a.record(parent, meta)
	if a.archive != nil {
		saveErr := a.archive.Save(parent, Archived{
			ChildID: childID,
			Month:   req.Month,
			Content: resp.Content,
			Model:   resp.Usage.Model,
		})
		if saveErr != nil {
			a.logger.Warn("failed to archive monthly summary", zap.Int64("child_id", childID), zap.Error(saveErr))
		}
	}

	a.logger.Info("monthly summary generated",
		zap.Int64("child_id", childID),
		zap.String("month", req.Month),
		zap.Int("days", len(req.Days)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", meta.Latency))

	return Result{
		Document:   doc,
		Raw:        resp.Content,
		Disclaimer: a.locale.Disclaimer(),
		Meta:       meta,
	}
}

func (a *Analyst) record(ctx context.Context, meta shared.AgentMeta) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.RecordMeta(ctx, meta); err != nil {
		a.logger.Warn("failed to record summary metrics", zap.Error(err))
	}
}

// Latest returns the archived summary of a month as a Result.
func (a *Analyst) Latest(ctx context.Context, childID int64, month string) (Result, error) {
	if a.archive == nil {
		return Result{}, ErrNotFound
	}
	s, err := a.archive.Latest(ctx, childID, month)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Document:   InterpretResponse(s.Content),
		Raw:        s.Content,
		Disclaimer: a.locale.Disclaimer(),
		Meta:       shared.AgentMeta{AgentName: agentName, Usage: shared.TokenUsage{Model: s.Model}},
	}, nil
}
