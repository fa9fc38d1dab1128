package tasks

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/RisAbd/sayfasayicibot/internal/stats"
)

// newWeeklyDigestTask creates the task pushing the stats payload to every
// user who logged at least one entry during the past week. The bot only
// talks to users in private chats, so the chat id equals the user id.
func newWeeklyDigestTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "weekly_digest")

	return func(ctx context.Context) error {
		now := time.Now()

		userIDs, err := deps.Store.ActiveUserIDs(ctx, now.Add(-stats.WeekWindow))
		if err != nil {
			return fmt.Errorf("failed to list active users: %w", err)
		}
		if len(userIDs) == 0 {
			log.InfoContext(ctx, "No active readers this week, nothing to send")
			return nil
		}

		sent := 0
		for _, userID := range userIDs {
			summary, err := deps.Stats.Summarize(ctx, userID, now)
			if err != nil {
				log.ErrorContext(ctx, "Failed to compute digest summary", "user_id", userID, "error", err)
				continue
			}

			_, err = deps.Sink.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID:    userID,
				Text:      summary.Render(),
				ParseMode: models.ParseModeMarkdown,
			})
			if err != nil {
				log.ErrorContext(ctx, "Failed to send digest", "user_id", userID, "error", err)
				continue
			}
			sent++
		}

		log.InfoContext(ctx, "Weekly digest sent", "recipients", sent, "active_users", len(userIDs))
		return nil
	}
}
