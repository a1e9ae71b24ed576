package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kids-meal-calendar/internal/app"
	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/metrics"
	"kids-meal-calendar/internal/summary"
)

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// Legacy Markdown has no escapes inside an entity, so its markers are dropped.
var entityReplacer = strings.NewReplacer("*", "", "_", "", "`", "", "[", "")

// entityText prepares s for use inside a *bold* or _italic_ span.
func entityText(s string) string {
	return entityReplacer.Replace(s)
}

// formatCalendarMarkdown lists the in-month days that have at least one meal.
func formatCalendarMarkdown(view *app.CalendarView, loc calendar.Locale) string {
	var sb strings.Builder
	name := ""
	if view.Child != nil {
		name = entityText(view.Child.Name) + " · "
	}
	fmt.Fprintf(&sb, "📅 *%s%s*\n\n", name, view.Label)

	days := 0
	for _, c := range view.Cells {
		if !c.IsCurrentMonth {
			continue
		}
		var lines []string
		for _, s := range c.Slots {
			if s.Filled {
				lines = append(lines, fmt.Sprintf("  %s: %s", s.Label, escape(s.Description)))
			}
		}
		if len(lines) == 0 && !c.IsToday {
			continue
		}
		marker := ""
		if c.IsToday {
			marker = " 📍"
		}
		fmt.Fprintf(&sb, "*%s (%s)*%s\n", c.Date, c.Weekday, marker)
		for _, l := range lines {
			sb.WriteString(l + "\n")
		}
		days++
	}

	if days == 0 {
		if loc.Korean() {
			sb.WriteString("_기록된 식단이 없습니다._\n")
		} else {
			sb.WriteString("_No meals recorded._\n")
		}
	}
	return sb.String()
}

// formatSummaryMarkdown renders a summary in Telegram's legacy Markdown,
// which has no headings: they become bold lines.
func formatSummaryMarkdown(res summary.Result) string {
	var sb strings.Builder
	sb.WriteString("🧑‍⚕️ ")
	for _, b := range res.Document.Blocks {
		switch b.Kind {
		case summary.BlockBreak:
			sb.WriteString("\n")
			continue
		case summary.BlockHeading:
			sb.WriteString("*")
			for _, s := range b.Spans {
				sb.WriteString(entityText(s.Text))
			}
			sb.WriteString("*\n")
			continue
		case summary.BlockListItem:
			sb.WriteString("• ")
		}
		for _, s := range b.Spans {
			if s.Bold {
				sb.WriteString("*" + entityText(s.Text) + "*")
				continue
			}
			sb.WriteString(escape(s.Text))
		}
		sb.WriteString("\n")
	}
	if res.Disclaimer != "" {
		sb.WriteString("\n\n_" + entityText(res.Disclaimer) + "_")
	}
	return sb.String()
}

func formatMetricsMarkdown(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *LLM Usage (Last 7 Days)*\n\n")
	if len(usage) == 0 {
		sb.WriteString("_No usage recorded._\n")
	}
	for _, u := range usage {
		fmt.Fprintf(&sb, "*%s*: %d calls, %d in / %d out", u.Date, u.TotalExecution, u.TotalPrompt, u.TotalCompletion)
		if u.Failures > 0 {
			fmt.Fprintf(&sb, ", %d failed", u.Failures)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n🖥 *System*\n")
	fmt.Fprintf(&sb, "Memory: %d MB alloc / %d MB sys\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "Goroutines: %d, GC: %d\n", health.Goroutines, health.NumGC)
	fmt.Fprintf(&sb, "Uptime: %s\n", health.Uptime.Round(time.Second))
	fmt.Fprintf(&sb, "Data: %s\n", health.DataDiskSize)
	return sb.String()
}

func helpText(loc calendar.Locale) string {
	if loc.Korean() {
		return "🍱 *아이 식단 달력*\n\n" +
			"/calendar \\[YYYY-MM] 달력 보기\n" +
			"/meal YYYY-MM-DD lunch 김밥 식단 기록 (내용 없이 보내면 삭제)\n" +
			"/summary \\[YYYY-MM] AI 월간 요약\n" +
			"급식 메뉴 페이지 링크를 보내면 식단을 가져옵니다."
	}
	return "🍱 *Kids Meal Calendar*\n\n" +
		"/calendar \\[YYYY-MM] show the calendar\n" +
		"/meal YYYY-MM-DD lunch rice record a meal (omit the text to clear it)\n" +
		"/summary \\[YYYY-MM] AI monthly summary\n" +
		"Send a school menu link to import meals."
}
