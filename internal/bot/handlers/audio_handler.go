package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewAudioHandler returns a handler for the audio command.
func NewAudioHandler(deps HandlerDeps) bot.HandlerFunc {
	return audioHandler{deps}.Handle
}

// audioHandler sends the pre-uploaded audio attachment with its caption,
// preceded by an upload indicator and a short pause.
type audioHandler struct {
	deps HandlerDeps
}

func (h audioHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	sink := h.deps.sink(b)
	log := h.deps.Logger.With("handler", "audio")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Audio handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID

	log.InfoContext(ctx, "Handling audio command", "chat_id", chatID, "user_id", update.Message.From.ID)

	_, err := sink.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionUploadDocument,
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to send upload action", "error", err, "chat_id", chatID)
	}
	pause(ctx, h.deps.Config.Bot.UploadDelay)

	_, err = sink.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileString{Data: h.deps.Config.Bot.AudioFileID},
		Caption:  h.deps.Config.Bot.Messages.AudioCaption,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send audio document", "error", err, "chat_id", chatID)
	}
}
