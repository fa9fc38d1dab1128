package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/RisAbd/sayfasayicibot/internal/database"
)

// NewSetBookMessageHandler returns a handler for the text form of book
// selection (<prefix><book-id> sent as a message).
func NewSetBookMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return setBookHandler{deps}.HandleMessage
}

// NewSetBookCallbackHandler returns a handler for the callback form of book
// selection (a button press on the books keyboard).
func NewSetBookCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return setBookHandler{deps}.HandleCallback
}

// setBookHandler sets the user's current book. Repeating a selection is a
// pure acknowledgement; nothing is re-persisted.
type setBookHandler struct {
	deps HandlerDeps
}

func (h setBookHandler) HandleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	sink := h.deps.sink(b)
	log := h.deps.Logger.With("handler", "set_book")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Set-book handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID

	log.InfoContext(ctx, "Handling book selection via text", "chat_id", chatID, "user_id", update.Message.From.ID)

	reply := func(text string) {
		_, err := sink.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: models.ParseModeMarkdown,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to send book selection reply", "error", err, "chat_id", chatID)
		}
	}

	raw := strings.TrimPrefix(strings.TrimSpace(update.Message.Text), h.deps.Config.Bot.SelectPrefix)
	book, user, errText := h.selectBook(ctx, log, update.Message.From, raw)
	if errText != "" {
		reply(errText)
		return
	}

	if user == nil {
		// Same book selected again; acknowledged without a write.
		reply(fmt.Sprintf(h.deps.Config.Bot.Messages.BookAlreadySet, book.Title))
		return
	}

	reply(fmt.Sprintf(h.deps.Config.Bot.Messages.BookSet, book.Title))
}

func (h setBookHandler) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	sink := h.deps.sink(b)
	log := h.deps.Logger.With("handler", "set_book")

	if update.CallbackQuery == nil {
		log.WarnContext(ctx, "Set-book handler received update with nil callback query", "update_id", update.ID)
		return
	}
	cq := update.CallbackQuery

	log.InfoContext(ctx, "Handling book selection via callback", "callback_query_id", cq.ID, "user_id", cq.From.ID, "data", cq.Data)

	answer := func(text string) {
		_, err := sink.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cq.ID,
			Text:            text,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to answer callback query", "error", err, "callback_query_id", cq.ID)
		}
	}

	raw := strings.TrimPrefix(cq.Data, h.deps.Config.Bot.SelectPrefix)
	book, user, errText := h.selectBook(ctx, log, &cq.From, raw)
	if errText != "" {
		answer(errText)
		return
	}

	if user == nil {
		answer(fmt.Sprintf(h.deps.Config.Bot.Messages.BookAlreadySet, book.Title))
		return
	}

	// Refresh the originating keyboard so the check mark moves to the new
	// selection, when the message is still accessible.
	if msg := cq.Message.Message; msg != nil {
		books, err := h.deps.Store.ListBooks(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Failed to list books for markup refresh", "error", err)
		} else {
			_, err = sink.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
				ChatID:      msg.Chat.ID,
				MessageID:   msg.ID,
				ReplyMarkup: bookSelectionMarkup(books, book.ID, h.deps.Config.Bot.SelectPrefix),
			})
			if err != nil {
				log.ErrorContext(ctx, "Failed to refresh book selection markup", "error", err, "chat_id", msg.Chat.ID)
			}
		}
	}

	answer(fmt.Sprintf(h.deps.Config.Bot.Messages.BookSet, book.Title))
}

// selectBook parses the raw book id, resolves the sender, and persists the
// selection. It returns a non-empty errText for user-facing failures. A nil
// user with a non-nil book signals the short-circuited same-book case.
func (h setBookHandler) selectBook(ctx context.Context, log *slog.Logger, from *models.User, raw string) (*database.Book, *database.User, string) {
	unknown := h.deps.Config.Bot.Messages.UnknownBook

	bookID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, nil, fmt.Sprintf(unknown, raw)
	}

	user, _, err := h.deps.Store.ResolveUser(ctx, profileFrom(from), false)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve user", "error", err, "user_id", from.ID)
		return nil, nil, fmt.Sprintf(unknown, raw)
	}

	book, err := h.deps.Store.GetBook(ctx, bookID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to get book", "error", err, "book_id", bookID)
		return nil, nil, fmt.Sprintf(unknown, raw)
	}
	if book == nil {
		return nil, nil, fmt.Sprintf(unknown, strconv.FormatInt(bookID, 10))
	}

	if user.BookID.Valid && user.BookID.Int64 == book.ID {
		log.InfoContext(ctx, "Book already selected, skipping write", "user_id", user.ID, "book_id", book.ID)
		return book, nil, ""
	}

	if err := h.deps.Store.SetUserBook(ctx, user.ID, book.ID); err != nil {
		log.ErrorContext(ctx, "Failed to set current book", "error", err, "user_id", user.ID, "book_id", book.ID)
		return nil, nil, fmt.Sprintf(unknown, raw)
	}

	return book, user, ""
}
