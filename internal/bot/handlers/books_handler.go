package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/RisAbd/sayfasayicibot/internal/database"
)

// NewBooksHandler returns a handler for the books command.
func NewBooksHandler(deps HandlerDeps) bot.HandlerFunc {
	return booksHandler{deps}.Handle
}

// booksHandler renders the catalog as an inline keyboard, one button per
// book, with the user's current book marked.
type booksHandler struct {
	deps HandlerDeps
}

func (h booksHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	sink := h.deps.sink(b)
	log := h.deps.Logger.With("handler", "books")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Books handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling books command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)

	user, _, err := h.deps.Store.ResolveUser(ctx, profileFrom(update.Message.From), false)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve user", "error", err, "user_id", update.Message.From.ID)
		return
	}

	books, err := h.deps.Store.ListBooks(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list books", "error", err)
		return
	}

	markup := bookSelectionMarkup(books, user.BookID.Int64, h.deps.Config.Bot.SelectPrefix)

	_, err = sink.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        "pick your current book:",
		ReplyMarkup: markup,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send book list", "error", err, "chat_id", update.Message.Chat.ID)
	}
}

// bookSelectionMarkup builds the selection keyboard. Each button carries an
// opaque callback payload of the form <prefix><book-id>; the button of the
// current book gets a check mark.
func bookSelectionMarkup(books []database.Book, currentBookID int64, prefix string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(books))
	for _, book := range books {
		label := book.Title
		if book.ID == currentBookID {
			label = "✓ " + label
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         label,
			CallbackData: fmt.Sprintf("%s%d", prefix, book.ID),
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
