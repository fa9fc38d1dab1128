// Package handlers contains the Telegram command and message handlers of
// the page counter bot, along with their registration logic.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/RisAbd/sayfasayicibot/internal/config"
	"github.com/RisAbd/sayfasayicibot/internal/database"
	"github.com/RisAbd/sayfasayicibot/internal/stats"
)

// Sink abstracts the outbound Telegram calls the handlers make. *bot.Bot
// satisfies it; tests substitute a recording fake.
type Sink interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// HandlerDeps provides dependencies for the command handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	Stats  *stats.Engine

	// Sink overrides the outbound channel; nil means the bot instance the
	// handler was invoked with. Used by tests.
	Sink Sink

	// Now overrides the clock; nil means time.Now. Used by tests.
	Now func() time.Time
}

func (d HandlerDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// sink picks the outbound channel for one invocation.
func (d HandlerDeps) sink(b *bot.Bot) Sink {
	if d.Sink != nil {
		return d.Sink
	}
	return b
}

// profileFrom maps a Telegram user to the store's profile representation.
func profileFrom(u *models.User) database.Profile {
	return database.Profile{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
	}
}
