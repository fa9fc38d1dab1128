package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/RisAbd/sayfasayicibot/internal/database"
)

// NewEntriesHandler returns a handler for the entries (sayfa) command.
func NewEntriesHandler(deps HandlerDeps) bot.HandlerFunc {
	return entriesHandler{deps}.Handle
}

// entriesHandler lists the current calendar month's reading entries, one
// line per entry, in insertion order.
type entriesHandler struct {
	deps HandlerDeps
}

func (h entriesHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	sink := h.deps.sink(b)
	log := h.deps.Logger.With("handler", "entries")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Entries handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling entries command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)

	user, _, err := h.deps.Store.ResolveUser(ctx, profileFrom(update.Message.From), false)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve user", "error", err, "user_id", update.Message.From.ID)
		return
	}

	now := h.deps.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	entries, err := h.deps.Store.EntriesWithBookSince(ctx, user.ID, monthStart)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list monthly entries", "error", err, "user_id", user.ID)
		return
	}

	text := renderEntries(entries, now)
	if text == "" {
		text = h.deps.Config.Bot.Messages.EmptyMonth
	}

	_, err = sink.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send entries list", "error", err, "chat_id", update.Message.Chat.ID)
	}
}

// renderEntries formats one line per entry. The year is omitted when the
// entry was created in the current year.
func renderEntries(entries []database.EntryWithBook, now time.Time) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		layout := "02/01/2006 15:04"
		if e.CreatedAt.Year() == now.Year() {
			layout = "02/01 15:04"
		}
		lines = append(lines, fmt.Sprintf("`%s` - %d - %s", e.CreatedAt.Format(layout), e.Count, e.BookTitle))
	}
	return strings.Join(lines, "\n")
}
