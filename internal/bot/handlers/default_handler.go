package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/RisAbd/sayfasayicibot/internal/database"
)

// NewDefaultHandler returns the catch-all handler for updates no registered
// command matched. A trimmed digits-only message is the implicit log-pages
// command; any other text, signed numbers included, falls back to an echo
// reply; callback queries with unrecognized payloads get an empty
// acknowledgement; other update kinds are logged and ignored.
func NewDefaultHandler(deps HandlerDeps) bot.HandlerFunc {
	return defaultHandler{deps}.Handle
}

type defaultHandler struct {
	deps HandlerDeps
}

func (h defaultHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	sink := h.deps.sink(b)
	log := h.deps.Logger.With("handler", "default")

	switch {
	case update.Message != nil && update.Message.From != nil:
		if isDigits(strings.TrimSpace(update.Message.Text)) {
			h.logPages(ctx, sink, update)
			return
		}
		h.fallback(ctx, sink, update)

	case update.CallbackQuery != nil:
		// A payload without the select prefix, or no payload at all.
		log.WarnContext(ctx, "Unrecognized callback payload", "callback_query_id", update.CallbackQuery.ID, "data", update.CallbackQuery.Data)
		_, err := sink.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to acknowledge callback query", "error", err, "callback_query_id", update.CallbackQuery.ID)
		}

	default:
		log.WarnContext(ctx, "Ignoring unsupported update kind", "update_id", update.ID)
	}
}

// logPages appends a reading entry for the user's current book and replies
// with the confirmation followed by the refreshed stats payload.
func (h defaultHandler) logPages(ctx context.Context, sink Sink, update *models.Update) {
	log := h.deps.Logger.With("handler", "log_pages")
	chatID := update.Message.Chat.ID
	messages := h.deps.Config.Bot.Messages

	// The dispatch matched digits only, so the value is non-negative; parsing
	// can still overflow int64.
	raw := strings.TrimSpace(update.Message.Text)
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.reply(ctx, sink, log, chatID, fmt.Sprintf(messages.MisunderstoodPages, raw), true)
		return
	}

	log.InfoContext(ctx, "Handling page count", "chat_id", chatID, "user_id", update.Message.From.ID, "count", count)

	user, _, err := h.deps.Store.ResolveUser(ctx, profileFrom(update.Message.From), false)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve user", "error", err, "user_id", update.Message.From.ID)
		return
	}

	if !user.BookID.Valid {
		h.reply(ctx, sink, log, chatID, messages.NoCurrentBook, false)
		return
	}

	book, err := h.deps.Store.GetBook(ctx, user.BookID.Int64)
	if err != nil || book == nil {
		log.ErrorContext(ctx, "Failed to load current book", "error", err, "user_id", user.ID, "book_id", user.BookID.Int64)
		return
	}

	entry := &database.ReadingEntry{Count: count, UserID: user.ID, BookID: book.ID}
	if err := h.deps.Store.SaveEntry(ctx, entry); err != nil {
		log.ErrorContext(ctx, "Failed to save reading entry", "error", err, "user_id", user.ID, "count", count)
		return
	}

	h.reply(ctx, sink, log, chatID, fmt.Sprintf(messages.PagesLogged, entry.Count, book.Title), false)

	// Surface the updated rolling stats in the same response cycle.
	summary, err := h.deps.Stats.Summarize(ctx, user.ID, h.deps.now())
	if err != nil {
		log.ErrorContext(ctx, "Failed to compute stats after logging", "error", err, "user_id", user.ID)
		return
	}
	h.reply(ctx, sink, log, chatID, summary.Render(), true)
}

// fallback echoes back text the bot did not understand, after a short
// typing indicator.
func (h defaultHandler) fallback(ctx context.Context, sink Sink, update *models.Update) {
	log := h.deps.Logger.With("handler", "fallback")
	chatID := update.Message.Chat.ID

	log.InfoContext(ctx, "Handling unrecognized text", "chat_id", chatID, "user_id", update.Message.From.ID)

	_, err := sink.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to send typing action", "error", err, "chat_id", chatID)
	}
	pause(ctx, h.deps.Config.Bot.TypingDelay)

	h.reply(ctx, sink, log, chatID, fmt.Sprintf(h.deps.Config.Bot.Messages.Misunderstood, update.Message.Text), false)
}

func (h defaultHandler) reply(ctx context.Context, sink Sink, log *slog.Logger, chatID int64, text string, markdown bool) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if markdown {
		params.ParseMode = models.ParseModeMarkdown
	}
	if _, err := sink.SendMessage(ctx, params); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
	}
}

// isDigits reports whether s is non-empty and ASCII digits only, the shape
// the implicit log-pages command accepts. A sign makes it free text.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// pause sleeps for the configured UX delay, honoring context cancellation.
// Zero returns immediately.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
