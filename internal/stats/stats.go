// Package stats computes rolling-window and since-checkpoint reading
// aggregates over a user's logged entries.
package stats

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/RisAbd/sayfasayicibot/internal/database"
)

// Windows of the standard summary, counted back from "now".
const (
	DayWindow   = 24 * time.Hour
	WeekWindow  = 7 * 24 * time.Hour
	MonthWindow = 30 * 24 * time.Hour
)

// Source is the slice of the store the engine reads from.
type Source interface {
	SumEntriesSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	LatestCheckpoint(ctx context.Context, userID int64) (*database.Checkpoint, error)
}

// CheckpointDelta is the pages read since the user's current checkpoint.
type CheckpointDelta struct {
	Name      string
	CreatedAt time.Time
	Pages     int64
}

// Summary holds the aggregate figures for one user as of a given instant.
// Checkpoint is nil when the user has no checkpoints.
type Summary struct {
	Day        int64
	Week       int64
	Month      int64
	Checkpoint *CheckpointDelta
}

// Engine computes summaries against a Source.
type Engine struct {
	source Source
	logger *slog.Logger
}

// NewEngine creates a stats engine reading from the given source.
func NewEngine(source Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		source: source,
		logger: logger.With("component", "stats"),
	}
}

// Summarize computes the day/week/month sums and, when the user has a
// checkpoint, the since-checkpoint delta, all as of now. Each figure
// defaults to zero when no entries match.
func (e *Engine) Summarize(ctx context.Context, userID int64, now time.Time) (*Summary, error) {
	summary := &Summary{}

	windows := []struct {
		dest   *int64
		window time.Duration
	}{
		{&summary.Day, DayWindow},
		{&summary.Week, WeekWindow},
		{&summary.Month, MonthWindow},
	}
	for _, w := range windows {
		sum, err := e.source.SumEntriesSince(ctx, userID, now.Add(-w.window))
		if err != nil {
			return nil, fmt.Errorf("failed to sum window %s: %w", w.window, err)
		}
		*w.dest = sum
	}

	checkpoint, err := e.source.LatestCheckpoint(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest checkpoint: %w", err)
	}
	if checkpoint != nil {
		pages, err := e.source.SumEntriesSince(ctx, userID, checkpoint.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to sum since checkpoint: %w", err)
		}
		summary.Checkpoint = &CheckpointDelta{
			Name:      checkpoint.Name,
			CreatedAt: checkpoint.CreatedAt,
			Pages:     pages,
		}
	}

	e.logger.DebugContext(ctx, "Computed reading summary",
		"user_id", userID, "day", summary.Day, "week", summary.Week, "month", summary.Month,
		"has_checkpoint", summary.Checkpoint != nil)
	return summary, nil
}

// Render formats the summary as the markdown reply body. The checkpoint
// line is omitted when the user has no checkpoints.
func (s *Summary) Render() string {
	var b strings.Builder
	b.WriteString("you have read\n")
	fmt.Fprintf(&b, " - `%d` sayfa for last day\n", s.Day)
	fmt.Fprintf(&b, " - `%d` sayfa for last week\n", s.Week)
	fmt.Fprintf(&b, " - `%d` sayfa for last month\n", s.Month)
	if s.Checkpoint != nil {
		fmt.Fprintf(&b, " - `%d` sayfa since checkpoint `%s` (%s)\n",
			s.Checkpoint.Pages, s.Checkpoint.Name, s.Checkpoint.CreatedAt.Format("02/01/2006 15:04"))
	}
	return b.String()
}
