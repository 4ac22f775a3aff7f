// Package telegram serves the planner through a Telegram bot webhook.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/content"
	"ai-fitness-planner/internal/llm"
	"ai-fitness-planner/internal/logging"
	"ai-fitness-planner/internal/metrics"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/render"
	"ai-fitness-planner/internal/segment"
	"ai-fitness-planner/internal/speech"
	"ai-fitness-planner/internal/streak"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ExportFilename is the name of the plan document sent to chats.
const ExportFilename = "trainify-ai-plan.pdf"

const (
	actionRegenerate = "regen"
	actionPDF        = "pdf"
	actionListen     = "listen"
)

const helpText = `🏋️ *Trainify AI*

Send your details to get a workout, diet and motivation plan:
/plan name=Alex age=30 gender=male height=175 weight=70 goal=muscle-gain level=beginner location=gym diet=vegetarian

Other commands:
/latest - show your latest plan
/pdf - download the latest plan
/listen N - hear day N of the workout
/streak - show your streak
/checkin - mark today's workout done
/quote - a motivational quote
/reads - suggested reads`

// Sender is the part of the Telegram API the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service is the application surface the bot drives.
type Service interface {
	GeneratePlan(ctx context.Context, d planner.UserDetails) (*planner.Bundle, error)
	LatestPlan(ctx context.Context) (*planner.Bundle, error)
	RegeneratePlan(ctx context.Context, id string, category segment.Category) (*planner.Bundle, error)
	ExportPDF(ctx context.Context, id string, w io.Writer) error
	SpeakDay(ctx context.Context, id string, key render.Key) (speech.Clip, error)
	Streak(ctx context.Context) (streak.Summary, error)
	CheckIn(ctx context.Context) (streak.Summary, error)
	Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	Health(ctx context.Context) metrics.SysHealth
	Catalog() *content.Catalog
	Reads(ctx context.Context) []content.Read
}

var _ Service = (*app.App)(nil)

// Bot wraps the Telegram API and the planner application.
type Bot struct {
	api    Sender
	svc    Service
	cfg    *config.Config
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewBot initializes the Telegram API client and sets the webhook.
func NewBot(cfg *config.Config, svc Service, logger *slog.Logger) (*Bot, error) {
	if cfg.TelegramBotToken == "" {
		return nil, &config.Error{Key: "TELEGRAM_BOT_TOKEN"}
	}
	if cfg.TelegramWebhookURL == "" {
		return nil, &config.Error{Key: "TELEGRAM_WEBHOOK_URL"}
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized on account", "username", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", "description", resp.Description)

	return New(api, cfg, svc, logger), nil
}

// New creates a Bot on an existing API client.
func New(api Sender, cfg *config.Config, svc Service, logger *slog.Logger) *Bot {
	return &Bot{api: api, svc: svc, cfg: cfg, logger: logger}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Wait blocks until every in-flight update has been handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("error parsing update", logging.Error(err))
		return
	}

	ctx := context.WithoutCancel(r.Context())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.handleUpdate(ctx, update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if !b.allowed(update.CallbackQuery.From) {
			return
		}
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		if !b.allowed(update.Message.From) {
			return
		}
		b.processMessage(ctx, update.Message)
	}
}

// allowed reports whether user may talk to the bot. An empty allow-list
// admits everyone.
func (b *Bot) allowed(user *tgbotapi.User) bool {
	if user == nil {
		return false
	}
	if len(b.cfg.TelegramAllowedUserIDs) == 0 || slices.Contains(b.cfg.TelegramAllowedUserIDs, user.ID) {
		return true
	}
	b.logger.Warn("⚠️ unauthorized access attempt", "user_id", user.ID, "username", user.UserName)
	return false
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		b.sendMarkdown(chatID, helpText)
	case "plan":
		b.handlePlanRequest(ctx, chatID, msg.CommandArguments())
	case "latest":
		b.handleLatest(ctx, chatID)
	case "pdf":
		b.handlePDF(ctx, chatID, "")
	case "listen":
		b.handleListen(ctx, chatID, "", strings.TrimSpace(msg.CommandArguments()))
	case "streak":
		b.handleStreak(ctx, chatID, false)
	case "checkin":
		b.handleStreak(ctx, chatID, true)
	case "quote":
		b.handleQuote(chatID)
	case "reads":
		b.handleReads(ctx, chatID)
	case "metrics":
		b.handleMetricsRequest(ctx, msg)
	case "":
		if strings.Contains(msg.Text, "=") {
			b.handlePlanRequest(ctx, chatID, msg.Text)
			return
		}
		b.sendMarkdown(chatID, helpText)
	default:
		b.sendText(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handlePlanRequest(ctx context.Context, chatID int64, args string) {
	details, err := parseDetails(args)
	if err != nil {
		b.sendText(chatID, "❌ "+err.Error()+"\n\nTry /help for an example.")
		return
	}

	status := tgbotapi.NewMessage(chatID, "⏳ *Building your plan...*")
	status.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(status)
	if err != nil {
		b.logger.Error("failed to send initial reply", logging.Error(err))
		return
	}

	bundle, err := b.withProgress(ctx, chatID, sent.MessageID, func(ctx context.Context) (*planner.Bundle, error) {
		return b.svc.GeneratePlan(ctx, details)
	})
	if err != nil {
		b.reportError(chatID, sent.MessageID, "generating plan", err)
		return
	}

	done := fmt.Sprintf("✅ *Plan ready for %s*", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, bundle.Details.Name))
	b.edit(chatID, sent.MessageID, done)
	b.sendBundle(chatID, bundle)
}

// withProgress runs fn while the status message cycles through fitness facts.
func (b *Bot) withProgress(ctx context.Context, chatID int64, messageID int, fn func(context.Context) (*planner.Bundle, error)) (*planner.Bundle, error) {
	catalog := b.svc.Catalog()
	progressCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		content.NewCarousel(catalog.Facts, catalog.FactInterval).Run(progressCtx, func(_ int, fact string) {
			b.edit(chatID, messageID, "⏳ *Building your plan...*\n\n💡 "+tgbotapi.EscapeText(tgbotapi.ModeMarkdown, fact))
		})
	}()

	bundle, err := fn(ctx)
	stop()
	wg.Wait()
	return bundle, err
}

func (b *Bot) sendBundle(chatID int64, bundle *planner.Bundle) {
	for _, category := range segment.Categories {
		for _, chunk := range splitMessage(formatPlan(category, bundle.Plan(category)), maxMessageLen) {
			b.sendText(chatID, chunk)
		}
	}

	menu := tgbotapi.NewMessage(chatID, "What next?")
	menu.ReplyMarkup = planKeyboard(bundle)
	if _, err := b.api.Send(menu); err != nil {
		b.logger.Error("failed to send plan menu", logging.Error(err))
	}
}

func (b *Bot) handleLatest(ctx context.Context, chatID int64) {
	bundle, err := b.svc.LatestPlan(ctx)
	if errors.Is(err, planner.ErrNotFound) {
		b.sendText(chatID, "No plan yet. Send /plan with your details first.")
		return
	}
	if err != nil {
		b.reportError(chatID, 0, "loading plan", err)
		return
	}
	b.sendBundle(chatID, bundle)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Debug("failed to answer callback", logging.Error(err))
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	parts := strings.Split(query.Data, "|")
	switch {
	case parts[0] == actionRegenerate && len(parts) == 3:
		b.handleRegenerate(ctx, chatID, parts[2], segment.Category(parts[1]))
	case parts[0] == actionPDF && len(parts) == 2:
		b.handlePDF(ctx, chatID, parts[1])
	case parts[0] == actionListen && len(parts) == 3:
		b.handleListen(ctx, chatID, parts[1], parts[2])
	default:
		b.logger.Warn("unknown callback", "data", query.Data)
	}
}

func (b *Bot) handleRegenerate(ctx context.Context, chatID int64, planID string, category segment.Category) {
	if !category.Valid() {
		return
	}
	status := tgbotapi.NewMessage(chatID, fmt.Sprintf("🔄 *Regenerating your %s plan...*", category))
	status.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(status)
	if err != nil {
		b.logger.Error("failed to send status", logging.Error(err))
		return
	}

	bundle, err := b.withProgress(ctx, chatID, sent.MessageID, func(ctx context.Context) (*planner.Bundle, error) {
		return b.svc.RegeneratePlan(ctx, planID, category)
	})
	if err != nil {
		b.reportError(chatID, sent.MessageID, "regenerating plan", err)
		return
	}
	b.edit(chatID, sent.MessageID, fmt.Sprintf("✅ *New %s plan*", category))
	for _, chunk := range splitMessage(formatPlan(category, bundle.Plan(category)), maxMessageLen) {
		b.sendText(chatID, chunk)
	}
}

func (b *Bot) handlePDF(ctx context.Context, chatID int64, planID string) {
	if planID == "" {
		bundle, err := b.svc.LatestPlan(ctx)
		if err != nil {
			b.reportError(chatID, 0, "loading plan", err)
			return
		}
		planID = bundle.ID
	}

	var buf bytes.Buffer
	if err := b.svc.ExportPDF(ctx, planID, &buf); err != nil {
		b.reportError(chatID, 0, "exporting plan", err)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: ExportFilename, Bytes: buf.Bytes()})
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("failed to send document", logging.Error(err))
	}
}

func (b *Bot) handleListen(ctx context.Context, chatID int64, planID, dayArg string) {
	day, err := strconv.Atoi(dayArg)
	if err != nil || day <= 0 {
		b.sendText(chatID, "Usage: /listen N, for example /listen 1")
		return
	}
	if planID == "" {
		bundle, err := b.svc.LatestPlan(ctx)
		if err != nil {
			b.reportError(chatID, 0, "loading plan", err)
			return
		}
		planID = bundle.ID
	}

	clip, err := b.svc.SpeakDay(ctx, planID, render.DayKey(day))
	if errors.Is(err, app.ErrNoAction) {
		b.sendText(chatID, fmt.Sprintf("Day %d has nothing to read out.", day))
		return
	}
	if err != nil {
		b.reportError(chatID, 0, "synthesizing audio", err)
		return
	}

	file := tgbotapi.FileBytes{Name: fmt.Sprintf("day-%d.%s", day, clip.Format), Bytes: clip.Data}
	var out tgbotapi.Chattable = tgbotapi.NewDocument(chatID, file)
	if clip.Format == "mp3" {
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Title = fmt.Sprintf("Workout Day %d", day)
		out = audio
	}
	if _, err := b.api.Send(out); err != nil {
		b.logger.Error("failed to send audio", logging.Error(err))
	}
}

func (b *Bot) handleStreak(ctx context.Context, chatID int64, checkIn bool) {
	var (
		summary streak.Summary
		err     error
	)
	if checkIn {
		summary, err = b.svc.CheckIn(ctx)
	} else {
		summary, err = b.svc.Streak(ctx)
	}
	if err != nil {
		b.reportError(chatID, 0, "loading streak", err)
		return
	}
	text := formatStreak(summary)
	if checkIn {
		text = "💪 *Checked in for today!*\n\n" + text
	}
	b.sendMarkdown(chatID, text)
}

func (b *Bot) handleQuote(chatID int64) {
	quotes := b.svc.Catalog().Quotes
	q := quotes[rand.IntN(len(quotes))]
	b.sendText(chatID, q.Emoji+" "+q.Text)
}

func (b *Bot) handleReads(ctx context.Context, chatID int64) {
	var sb strings.Builder
	sb.WriteString("📚 Suggested reads\n")
	for _, r := range b.svc.Reads(ctx) {
		sb.WriteString(fmt.Sprintf("\n• %s (%s)\n%s\n", r.Title, r.Category, r.URL))
		if r.Description != "" {
			sb.WriteString(r.Description + "\n")
		}
	}
	for _, chunk := range splitMessage(sb.String(), maxMessageLen) {
		b.sendText(chatID, chunk)
	}
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.sendMarkdown(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.svc.Usage(ctx, 7)
	if err != nil {
		b.logger.Error("failed to fetch metrics", logging.Error(err))
		b.sendText(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.sendMarkdown(msg.Chat.ID, formatMetrics(usage, b.svc.Health(ctx)))
}

// reportError replaces the status message, or sends a new one when
// messageID is zero. Rate limits and misconfiguration are also reported to
// the admin.
func (b *Bot) reportError(chatID int64, messageID int, action string, err error) {
	b.logger.Error("error "+action, logging.Error(err))

	var (
		rateLimit *llm.RateLimitError
		authErr   *llm.AuthError
		cfgErr    *config.Error
		invalid   *planner.ValidationError
		text      string
	)
	switch {
	case errors.As(err, &invalid):
		text = "❌ " + err.Error()
	case errors.Is(err, planner.ErrNotFound):
		text = "❌ That plan no longer exists."
	case errors.As(err, &rateLimit):
		text = "⏳ " + err.Error()
		b.sendAdminAlert(fmt.Sprintf("⚠️ *Rate limit reached*\nProvider: %s", rateLimit.Provider))
	case errors.As(err, &authErr), errors.As(err, &cfgErr):
		text = "❌ The planner is not configured correctly. The admin has been notified."
		b.sendAdminAlert(fmt.Sprintf("⚠️ *Configuration problem*\n%s", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error())))
	default:
		text = fmt.Sprintf("❌ Error %s: %s", action, strings.ReplaceAll(err.Error(), "`", "'"))
	}

	if messageID == 0 {
		b.sendText(chatID, text)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Debug("failed to edit message", logging.Error(err))
	}
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.sendMarkdown(b.cfg.AdminTelegramID, text)
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Debug("failed to edit message", logging.Error(err))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", logging.Error(err))
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send message", logging.Error(err))
	}
}
