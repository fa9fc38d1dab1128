// Package tasks implements the bot's scheduled tasks: the weekly reading
// digest and database maintenance.
package tasks

import (
	"log/slog"

	"github.com/RisAbd/sayfasayicibot/internal/bot/handlers"
	"github.com/RisAbd/sayfasayicibot/internal/config"
	"github.com/RisAbd/sayfasayicibot/internal/database"
	"github.com/RisAbd/sayfasayicibot/internal/stats"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	Stats  *stats.Engine
	Sink   handlers.Sink
}
