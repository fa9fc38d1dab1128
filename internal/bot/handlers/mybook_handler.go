package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewMyBookHandler returns a handler for the mybook command.
func NewMyBookHandler(deps HandlerDeps) bot.HandlerFunc {
	return myBookHandler{deps}.Handle
}

// myBookHandler names the user's current book, or points at the books
// command when none is set.
type myBookHandler struct {
	deps HandlerDeps
}

func (h myBookHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	sink := h.deps.sink(b)
	log := h.deps.Logger.With("handler", "mybook")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Mybook handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling mybook command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)

	user, _, err := h.deps.Store.ResolveUser(ctx, profileFrom(update.Message.From), false)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve user", "error", err, "user_id", update.Message.From.ID)
		return
	}

	messages := h.deps.Config.Bot.Messages

	if !user.BookID.Valid {
		text := fmt.Sprintf(messages.NoBookGuidance, h.deps.Config.Bot.Commands.Books)
		if _, err := sink.SendMessage(ctx, &bot.SendMessageParams{ChatID: update.Message.Chat.ID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send guidance", "error", err, "chat_id", update.Message.Chat.ID)
		}
		return
	}

	book, err := h.deps.Store.GetBook(ctx, user.BookID.Int64)
	if err != nil || book == nil {
		log.ErrorContext(ctx, "Failed to load current book", "error", err, "user_id", user.ID, "book_id", user.BookID.Int64)
		return
	}

	_, err = sink.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      fmt.Sprintf(messages.CurrentBook, book.Title),
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send current book", "error", err, "chat_id", update.Message.Chat.ID)
	}
}
