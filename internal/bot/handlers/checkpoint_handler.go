package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/RisAbd/sayfasayicibot/internal/database"
)

// NewCheckpointHandler returns a handler for the checkpoint command.
func NewCheckpointHandler(deps HandlerDeps) bot.HandlerFunc {
	return checkpointHandler{deps}.Handle
}

// checkpointHandler creates a progress marker. The first checkpoint gets a
// single confirmation; later ones additionally surface the stats measured
// against the previous checkpoint, so two messages go out.
type checkpointHandler struct {
	deps HandlerDeps
}

func (h checkpointHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	sink := h.deps.sink(b)
	log := h.deps.Logger.With("handler", "checkpoint")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Checkpoint handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	messages := h.deps.Config.Bot.Messages

	name := checkpointName(update.Message.Text, messages.UnnamedCheckpoint)

	log.InfoContext(ctx, "Handling checkpoint command", "chat_id", chatID, "user_id", update.Message.From.ID, "name", name)

	user, _, err := h.deps.Store.ResolveUser(ctx, profileFrom(update.Message.From), false)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve user", "error", err, "user_id", update.Message.From.ID)
		return
	}

	prior, err := h.deps.Store.LatestCheckpoint(ctx, user.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up prior checkpoint", "error", err, "user_id", user.ID)
		return
	}

	// Measure against the prior checkpoint before inserting the new one;
	// afterwards the delta would always be zero.
	var summaryText string
	if prior != nil {
		summary, err := h.deps.Stats.Summarize(ctx, user.ID, h.deps.now())
		if err != nil {
			log.ErrorContext(ctx, "Failed to compute stats for checkpoint", "error", err, "user_id", user.ID)
			return
		}
		summaryText = summary.Render()
	}

	checkpoint := &database.Checkpoint{Name: name, UserID: user.ID}
	if err := h.deps.Store.SaveCheckpoint(ctx, checkpoint); err != nil {
		log.ErrorContext(ctx, "Failed to save checkpoint", "error", err, "user_id", user.ID)
		return
	}

	if prior == nil {
		text := fmt.Sprintf(messages.FirstCheckpoint, checkpoint.Name)
		if _, err := sink.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send first checkpoint reply", "error", err, "chat_id", chatID)
		}
		return
	}

	notification := fmt.Sprintf(messages.NewCheckpoint, checkpoint.Name)
	if _, err := sink.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: notification}); err != nil {
		log.ErrorContext(ctx, "Failed to send checkpoint notification", "error", err, "chat_id", chatID)
	}

	_, err = sink.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      summaryText,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send checkpoint stats", "error", err, "chat_id", chatID)
	}
}

// checkpointName extracts the free-text argument after the command token.
func checkpointName(text, fallback string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return fallback
	}
	name := strings.TrimSpace(parts[1])
	if name == "" {
		return fallback
	}
	return name
}
