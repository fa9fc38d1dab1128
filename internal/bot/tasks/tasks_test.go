package tasks_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/RisAbd/sayfasayicibot/internal/bot/tasks"
	"github.com/RisAbd/sayfasayicibot/internal/database"
	"github.com/RisAbd/sayfasayicibot/internal/stats"
)

type fakeSink struct {
	messages []*tgbot.SendMessageParams
}

func (f *fakeSink) SendMessage(_ context.Context, params *tgbot.SendMessageParams) (*models.Message, error) {
	f.messages = append(f.messages, params)
	return &models.Message{}, nil
}

func (f *fakeSink) SendDocument(_ context.Context, _ *tgbot.SendDocumentParams) (*models.Message, error) {
	return &models.Message{}, nil
}

func (f *fakeSink) SendChatAction(_ context.Context, _ *tgbot.SendChatActionParams) (bool, error) {
	return true, nil
}

func (f *fakeSink) EditMessageReplyMarkup(_ context.Context, _ *tgbot.EditMessageReplyMarkupParams) (*models.Message, error) {
	return &models.Message{}, nil
}

func (f *fakeSink) AnswerCallbackQuery(_ context.Context, _ *tgbot.AnswerCallbackQueryParams) (bool, error) {
	return true, nil
}

func newTaskDeps(t *testing.T) (tasks.TaskDeps, *fakeSink, database.Store) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewStore(db, log)
	sink := &fakeSink{}

	return tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Stats:  stats.NewEngine(store, log),
		Sink:   sink,
	}, sink, store
}

func TestWeeklyDigestSendsToActiveReaders(t *testing.T) {
	t.Parallel()

	deps, sink, store := newTaskDeps(t)
	ctx := context.Background()

	if err := store.SeedCatalog(ctx, []database.CatalogBook{
		{Author: "Jalal ad-Din Rumi", Title: "Mathnawi"},
	}); err != nil {
		t.Fatalf("SeedCatalog failed: %v", err)
	}
	books, err := store.ListBooks(ctx)
	if err != nil {
		t.Fatalf("ListBooks failed: %v", err)
	}

	// One reader with a fresh entry, one who never logged anything.
	for _, id := range []int64{21, 22} {
		if _, _, err := store.ResolveUser(ctx, database.Profile{ID: id, FirstName: "Reader"}, true); err != nil {
			t.Fatalf("ResolveUser failed: %v", err)
		}
	}
	if err := store.SaveEntry(ctx, &database.ReadingEntry{Count: 12, UserID: 21, BookID: books[0].ID}); err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	registered := tasks.RegisterAllTasks(deps)
	digest, ok := registered["weekly_digest"]
	if !ok {
		t.Fatal("weekly_digest task not registered")
	}

	if err := digest(ctx); err != nil {
		t.Fatalf("digest task failed: %v", err)
	}

	if len(sink.messages) != 1 {
		t.Fatalf("expected 1 digest message, got %d", len(sink.messages))
	}
	if sink.messages[0].ChatID != int64(21) {
		t.Errorf("expected digest for user 21, got %v", sink.messages[0].ChatID)
	}
	if !strings.Contains(sink.messages[0].Text, "`12` sayfa for last day") {
		t.Errorf("unexpected digest body: %q", sink.messages[0].Text)
	}
}

func TestWeeklyDigestNoActiveReaders(t *testing.T) {
	t.Parallel()

	deps, sink, _ := newTaskDeps(t)

	digest := tasks.RegisterAllTasks(deps)["weekly_digest"]
	if err := digest(context.Background()); err != nil {
		t.Fatalf("digest task failed: %v", err)
	}
	if len(sink.messages) != 0 {
		t.Errorf("expected no messages, got %d", len(sink.messages))
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	deps, _, _ := newTaskDeps(t)

	maintenance := tasks.RegisterAllTasks(deps)["sql_maintenance"]
	if err := maintenance(context.Background()); err != nil {
		t.Fatalf("maintenance task failed: %v", err)
	}
}
