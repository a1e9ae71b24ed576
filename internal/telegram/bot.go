// Package telegram lets parents browse and edit the meal calendar from a
// Telegram chat.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kids-meal-calendar/internal/app"
	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/child"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/metrics"
)

// Sender is the part of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Options configure a Bot.
type Options struct {
	AllowedUserIDs []int64
	ChildID        int64 // child the chat manages
	AdminID        int64
	DataPath       string // reported by /metrics
}

// Bot wraps the Telegram API and the meal calendar.
type Bot struct {
	api    Sender
	parse  func(r *http.Request) (*tgbotapi.Update, error)
	app    *app.App
	opts   Options
	logger *zap.Logger
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(token, webhookURL string, a *app.App, opts Options, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	logger.Info("telegram webhook set", zap.String("response", resp.Description))

	b := newBot(api, a, opts, logger)
	b.parse = api.HandleUpdate
	return b, nil
}

func newBot(api Sender, a *app.App, opts Options, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:    api,
		parse:  decodeUpdate,
		app:    a,
		opts:   opts,
		logger: logger,
	}
}

func decodeUpdate(r *http.Request) (*tgbotapi.Update, error) {
	if r.Method != http.MethodPost {
		return nil, fmt.Errorf("wrong HTTP method required POST")
	}
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		return nil, fmt.Errorf("failed to decode update: %w", err)
	}
	return &update, nil
}

// ServeHTTP handles webhook updates.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	update, err := b.parse(r)
	if err != nil {
		b.logger.Warn("failed to parse telegram update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	if update.CallbackQuery != nil {
		if !b.allowed(update.CallbackQuery.From.ID) {
			return
		}
		go b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !b.allowed(update.Message.From.ID) {
		b.logger.Warn("unauthorized telegram access attempt",
			zap.Int64("user_id", update.Message.From.ID),
			zap.String("username", update.Message.From.UserName))
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) allowed(userID int64) bool {
	return slices.Contains(b.opts.AllowedUserIDs, userID)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		b.handleImportRequest(ctx, msg.Chat.ID, text)
		return
	}

	switch msg.Command() {
	case "calendar":
		b.handleCalendarRequest(ctx, msg.Chat.ID, 0, msg.CommandArguments())
	case "meal":
		b.handleMealCommand(ctx, msg.Chat.ID, msg.CommandArguments())
	case "summary":
		b.handleSummaryRequest(ctx, msg.Chat.ID, 0, msg.CommandArguments())
	case "metrics":
		if msg.From.ID != b.opts.AdminID {
			b.send(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
			return
		}
		b.handleMetricsCommand(ctx, msg.Chat.ID)
	default:
		b.send(msg.Chat.ID, helpText(b.app.Locale()))
	}
}

func (b *Bot) month(arg string) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return calendar.MonthOf(b.app.Today()), nil
	}
	return calendar.ParseMonth(arg)
}

func (b *Bot) handleCalendarRequest(ctx context.Context, chatID int64, messageID int, arg string) {
	month, err := b.month(arg)
	if err != nil {
		b.reply(chatID, messageID, "❌ "+escape(err.Error()), nil)
		return
	}

	view, err := b.app.Render(ctx, b.opts.ChildID, month)
	if err != nil {
		b.replyError(chatID, messageID, "render calendar", err)
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀ "+view.Previous, "cal|"+view.Previous),
			tgbotapi.NewInlineKeyboardButtonData("🤖", "sum|"+view.Month),
			tgbotapi.NewInlineKeyboardButtonData(view.Next+" ▶", "cal|"+view.Next),
		),
	)
	b.reply(chatID, messageID, formatCalendarMarkdown(view, b.app.Locale()), &keyboard)
}

func (b *Bot) handleMealCommand(ctx context.Context, chatID int64, args string) {
	date, slot, desc, err := parseMealCommand(args)
	if err != nil {
		b.send(chatID, "❌ "+escape(err.Error())+"\n`/meal 2024-07-05 lunch 김밥`")
		return
	}

	idx, err := b.app.SaveMeal(ctx, b.opts.ChildID, date, slot, desc)
	if err != nil {
		b.replyError(chatID, 0, "save meal", err)
		return
	}

	loc := b.app.Locale()
	if got, ok := idx.Get(date, slot); ok {
		b.send(chatID, fmt.Sprintf("✅ *%s %s*: %s", date, loc.SlotLabel(slot), escape(got)))
		return
	}
	b.send(chatID, fmt.Sprintf("🗑 *%s %s*", date, loc.SlotLabel(slot)))
}

func (b *Bot) handleSummaryRequest(ctx context.Context, chatID int64, messageID int, arg string) {
	month, err := b.month(arg)
	if err != nil {
		b.reply(chatID, messageID, "❌ "+escape(err.Error()), nil)
		return
	}

	statusText := "🧑‍⚕️ *Thinking...*"
	if messageID == 0 {
		replyMsg := tgbotapi.NewMessage(chatID, statusText)
		replyMsg.ParseMode = tgbotapi.ModeMarkdown
		sent, err := b.api.Send(replyMsg)
		if err != nil {
			b.logger.Warn("failed to send initial reply", zap.Error(err))
			return
		}
		messageID = sent.MessageID
	} else {
		b.reply(chatID, messageID, statusText, nil)
	}

	res, err := b.app.RequestMonthlySummary(ctx, b.opts.ChildID, month)
	if err != nil {
		b.replyError(chatID, messageID, "summarize month", err)
		return
	}

	if res.Fallback {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄", "sum|"+calendar.MonthKey(month)),
			),
		)
		b.reply(chatID, messageID, formatSummaryMarkdown(res), &keyboard)
		return
	}
	b.reply(chatID, messageID, formatSummaryMarkdown(res), nil)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	action, arg, ok := strings.Cut(query.Data, "|")
	if !ok || query.Message == nil {
		return
	}

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	switch action {
	case "cal":
		b.handleCalendarRequest(ctx, query.Message.Chat.ID, query.Message.MessageID, arg)
	case "sum":
		b.handleSummaryRequest(ctx, query.Message.Chat.ID, 0, arg)
	}
}

func (b *Bot) handleImportRequest(ctx context.Context, chatID int64, url string) {
	replyMsg := tgbotapi.NewMessage(chatID, "✂️ *Importing menu...*")
	replyMsg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(replyMsg)
	if err != nil {
		b.logger.Warn("failed to send initial reply", zap.Error(err))
		return
	}

	result, err := b.app.ImportMenu(ctx, b.opts.ChildID, url)
	if err != nil {
		b.replyError(chatID, sent.MessageID, "import menu", err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ *%d meals imported*\n", len(result.Imported))
	for _, m := range result.Imported {
		fmt.Fprintf(&sb, "• %s %s: %s\n", m.Date, m.MealType, escape(m.Description))
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(&sb, "\n⚠️ _%d skipped_\n", len(result.Skipped))
	}
	b.reply(chatID, sent.MessageID, sb.String(), nil)
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	usage, err := b.app.UsageReport(ctx, 7)
	if err != nil {
		b.send(chatID, "❌ Error fetching metrics.")
		return
	}
	b.send(chatID, formatMetricsMarkdown(usage, metrics.GetSysHealth(b.opts.DataPath)))
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("failed to send telegram message", zap.Error(err))
	}
}

// reply edits messageID when set, otherwise sends a new message.
func (b *Bot) reply(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if messageID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Warn("failed to send telegram message", zap.Error(err))
		}
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("failed to edit telegram message", zap.Error(err))
	}
}

func (b *Bot) replyError(chatID int64, messageID int, op string, err error) {
	b.logger.Error("telegram request failed", zap.String("op", op), zap.Error(err))
	text := "❌ *Something went wrong.*"
	switch {
	case errors.Is(err, meal.ErrInvalid):
		text = "❌ " + escape(err.Error())
	case errors.Is(err, child.ErrNotFound):
		text = "❌ *Child not found.* Check TELEGRAM\\_CHILD\\_ID."
	case errors.Is(err, app.ErrUnavailable):
		text = "❌ *Not available.*"
	}
	b.reply(chatID, messageID, text, nil)
}

// parseMealCommand reads "<date> <slot> [description...]".
func parseMealCommand(args string) (string, meal.Slot, string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", "", fmt.Errorf("usage: /meal <YYYY-MM-DD> <breakfast|lunch|dinner> [description]")
	}
	if _, err := meal.ParseDate(fields[0]); err != nil {
		return "", "", "", err
	}
	slot, err := meal.ParseSlot(fields[1])
	if err != nil {
		return "", "", "", err
	}
	return fields[0], slot, strings.Join(fields[2:], " "), nil
}
