// Package clipper imports cafeteria menus from web pages into the meal calendar.
package clipper

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"kids-meal-calendar/internal/llm"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/shared"
)

//go:embed extractor_prompt.md
var extractorPrompt string

var promptTemplate = template.Must(template.New("extractor").Parse(extractorPrompt))

const (
	agentName = "MenuExtractor"
	// maxContentChars keeps prompts within the extractor model's context.
	maxContentChars = 20000
)

// MealSaver is the write path imported meals go through.
type MealSaver interface {
	SaveMeal(ctx context.Context, childID int64, date string, slot meal.Slot, description string) (meal.Index, error)
}

// MetaRecorder stores execution metadata of generator calls.
type MetaRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// ExtractedMeal is one menu line as structured by the model.
type ExtractedMeal struct {
	Date        string `json:"date"`
	MealType    string `json:"meal_type"`
	Description string `json:"description"`
}

type extraction struct {
	Meals []ExtractedMeal `json:"meals"`
}

// ImportResult reports what an import wrote.
type ImportResult struct {
	Imported []ExtractedMeal
	Skipped  []string
	Index    meal.Index
	Meta     shared.AgentMeta
}

// Clipper fetches menu pages and extracts meals from them.
type Clipper struct {
	textGen    llm.TextGenerator
	saver      MealSaver
	recorder   MetaRecorder
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewClipper creates a new Clipper instance.
func NewClipper(textGen llm.TextGenerator, saver MealSaver, recorder MetaRecorder, logger *zap.Logger) *Clipper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clipper{
		textGen:    textGen,
		saver:      saver,
		recorder:   recorder,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

// ImportMenu fetches url, extracts its meals and saves each one for childID.
// Entries the model returns with a bad date or meal type are skipped.
func (c *Clipper) ImportMenu(ctx context.Context, childID int64, url string) (*ImportResult, error) {
	content, err := c.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no text content found at %s", url)
	}

	meals, meta, err := c.extract(ctx, content)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Meta: meta}
	for _, m := range meals {
		slot, err := meal.ParseSlot(m.MealType)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s %s: %v", m.Date, m.MealType, err))
			continue
		}
		if strings.TrimSpace(m.Description) == "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s %s: empty menu", m.Date, m.MealType))
			continue
		}
		idx, err := c.saver.SaveMeal(ctx, childID, m.Date, slot, m.Description)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s %s: %v", m.Date, m.MealType, err))
			continue
		}
		result.Index = idx
		result.Imported = append(result.Imported, m)
	}

	c.logger.Info("menu imported",
		zap.Int64("child_id", childID),
		zap.String("url", url),
		zap.Int("imported", len(result.Imported)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (c *Clipper) extract(ctx context.Context, content string) ([]ExtractedMeal, shared.AgentMeta, error) {
	start := time.Now()

	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Today   string
		Content string
	}{
		Today:   c.now().Format(time.DateOnly),
		Content: content,
	})
	if err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("failed to render extractor prompt: %w", err)
	}

	resp, err := c.textGen.GenerateContent(ctx, buf.String())
	meta := shared.AgentMeta{AgentName: agentName, Usage: resp.Usage, Latency: time.Since(start), Failed: err != nil}
	if err != nil {
		c.record(ctx, meta)
		return nil, meta, fmt.Errorf("ai extraction failed: %w", err)
	}

	var out extraction
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &out); err != nil {
		meta.Failed = true
		c.record(ctx, meta)
		return nil, meta, fmt.Errorf("failed to parse AI response: %w. Response: %s", err, resp.Content)
	}
	c.record(ctx, meta)
	return out.Meals, meta, nil
}

func (c *Clipper) record(ctx context.Context, meta shared.AgentMeta) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordMeta(ctx, meta); err != nil {
		c.logger.Warn("failed to record extractor metrics", zap.Error(err))
	}
}

func (c *Clipper) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return cleanHTML(resp.Body)
}

var spaceRun = regexp.MustCompile(`[ \t\p{Zs}]+`)

// cleanHTML strips page noise. Menu tables are flattened row by row with
// " | " between cells; pages without tables fall back to the body text.
func cleanHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header, iframe, noscript, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	var sb strings.Builder
	tables := doc.Find("table")
	if tables.Length() > 0 {
		tables.Find("tr").Each(func(i int, row *goquery.Selection) {
			var cells []string
			row.Find("th, td").Each(func(j int, cell *goquery.Selection) {
				if text := collapse(cell.Text()); text != "" {
					cells = append(cells, text)
				}
			})
			if len(cells) > 0 {
				sb.WriteString(strings.Join(cells, " | "))
				sb.WriteString("\n")
			}
		})
	} else {
		for _, line := range strings.Split(doc.Find("body").Text(), "\n") {
			if text := collapse(line); text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
	}

	content := sb.String()
	if r := []rune(content); len(r) > maxContentChars {
		content = string(r[:maxContentChars])
	}
	return content, nil
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(strings.ReplaceAll(s, "\n", " "), " "))
}

// stripCodeFence removes a ```json fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
