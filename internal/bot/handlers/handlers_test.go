package handlers_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/RisAbd/sayfasayicibot/internal/bot/handlers"
	"github.com/RisAbd/sayfasayicibot/internal/config"
	"github.com/RisAbd/sayfasayicibot/internal/database"
	"github.com/RisAbd/sayfasayicibot/internal/stats"
)

// fakeSink records every outbound call instead of talking to Telegram.
type fakeSink struct {
	messages  []*tgbot.SendMessageParams
	documents []*tgbot.SendDocumentParams
	actions   []*tgbot.SendChatActionParams
	edits     []*tgbot.EditMessageReplyMarkupParams
	answers   []*tgbot.AnswerCallbackQueryParams
}

func (f *fakeSink) SendMessage(_ context.Context, params *tgbot.SendMessageParams) (*models.Message, error) {
	f.messages = append(f.messages, params)
	return &models.Message{}, nil
}

func (f *fakeSink) SendDocument(_ context.Context, params *tgbot.SendDocumentParams) (*models.Message, error) {
	f.documents = append(f.documents, params)
	return &models.Message{}, nil
}

func (f *fakeSink) SendChatAction(_ context.Context, params *tgbot.SendChatActionParams) (bool, error) {
	f.actions = append(f.actions, params)
	return true, nil
}

func (f *fakeSink) EditMessageReplyMarkup(_ context.Context, params *tgbot.EditMessageReplyMarkupParams) (*models.Message, error) {
	f.edits = append(f.edits, params)
	return &models.Message{}, nil
}

func (f *fakeSink) AnswerCallbackQuery(_ context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error) {
	f.answers = append(f.answers, params)
	return true, nil
}

func (f *fakeSink) messageTexts() []string {
	texts := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		texts = append(texts, m.Text)
	}
	return texts
}

type testEnv struct {
	deps  handlers.HandlerDeps
	sink  *fakeSink
	store database.Store
	books []database.Book
}

// newTestEnv builds handler dependencies over a real store with a seeded
// two-book catalog and a recording sink.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewStore(db, log)

	ctx := context.Background()
	if err := store.SeedCatalog(ctx, []database.CatalogBook{
		{Author: "Jalal ad-Din Rumi", Title: "Mathnawi", Year: 1273},
		{Author: "Yunus Emre", Title: "Divan", Year: 1307},
	}); err != nil {
		t.Fatalf("SeedCatalog failed: %v", err)
	}
	books, err := store.ListBooks(ctx)
	if err != nil {
		t.Fatalf("ListBooks failed: %v", err)
	}

	cfg := &config.Config{
		Bot: config.BotConfig{
			Commands:     config.DefaultCommands,
			Messages:     config.DefaultMessages,
			SelectPrefix: config.DefaultSelectPrefix,
			AudioFileID:  config.DefaultAudioFileID,
		},
	}

	sink := &fakeSink{}
	return &testEnv{
		deps: handlers.HandlerDeps{
			Logger: log,
			Config: cfg,
			Store:  store,
			Stats:  stats.NewEngine(store, log),
			Sink:   sink,
		},
		sink:  sink,
		store: store,
		books: books,
	}
}

func messageUpdate(userID, chatID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			Text: text,
			Chat: models.Chat{ID: chatID},
			From: &models.User{ID: userID, FirstName: "Aybek", LastName: "Rysbekov", Username: "aybek"},
		},
	}
}

func TestStartHandlerWelcomesAndWelcomesBack(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	handle := handlers.NewStartHandler(env.deps)
	ctx := context.Background()

	handle(ctx, nil, messageUpdate(1, 1, "/start"))
	handle(ctx, nil, messageUpdate(1, 1, "/start"))

	texts := env.sink.messageTexts()
	if len(texts) != 2 {
		t.Fatalf("expected 2 replies, got %d: %v", len(texts), texts)
	}
	if texts[0] != "Welcome, Aybek Rysbekov" {
		t.Errorf("unexpected first reply: %q", texts[0])
	}
	if texts[1] != "Welcome back, Aybek Rysbekov" {
		t.Errorf("unexpected second reply: %q", texts[1])
	}
}

func TestBooksHandlerKeyboard(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user, _, err := env.store.ResolveUser(ctx, database.Profile{ID: 2, FirstName: "Aybek"}, true)
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	if err := env.store.SetUserBook(ctx, user.ID, env.books[1].ID); err != nil {
		t.Fatalf("SetUserBook failed: %v", err)
	}

	handlers.NewBooksHandler(env.deps)(ctx, nil, messageUpdate(2, 2, "/books"))

	if len(env.sink.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(env.sink.messages))
	}
	markup, ok := env.sink.messages[0].ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard markup, got %T", env.sink.messages[0].ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("expected one row per book, got %d rows", len(markup.InlineKeyboard))
	}

	first := markup.InlineKeyboard[0][0]
	second := markup.InlineKeyboard[1][0]
	if first.Text != "Mathnawi" {
		t.Errorf("unexpected first button label: %q", first.Text)
	}
	if second.Text != "✓ Divan" {
		t.Errorf("expected check mark on current book, got %q", second.Text)
	}
	expectedData := fmt.Sprintf("/sb_%d", env.books[0].ID)
	if first.CallbackData != expectedData {
		t.Errorf("expected callback data %q, got %q", expectedData, first.CallbackData)
	}
}

func TestSetBookViaMessage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	handle := handlers.NewSetBookMessageHandler(env.deps)
	ctx := context.Background()
	command := fmt.Sprintf("/sb_%d", env.books[0].ID)

	handle(ctx, nil, messageUpdate(3, 3, command))
	handle(ctx, nil, messageUpdate(3, 3, command))

	texts := env.sink.messageTexts()
	if len(texts) != 2 {
		t.Fatalf("expected 2 replies, got %d: %v", len(texts), texts)
	}
	if texts[0] != "`Mathnawi` is set as your default book" {
		t.Errorf("unexpected set reply: %q", texts[0])
	}
	if texts[1] != "`Mathnawi` is already your default book" {
		t.Errorf("unexpected repeat reply: %q", texts[1])
	}

	user, _, err := env.store.ResolveUser(ctx, database.Profile{ID: 3, FirstName: "Aybek"}, false)
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	if !user.BookID.Valid || user.BookID.Int64 != env.books[0].ID {
		t.Errorf("expected current book %d, got %+v", env.books[0].ID, user.BookID)
	}
}

func TestSetBookUnknownID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	handlers.NewSetBookMessageHandler(env.deps)(ctx, nil, messageUpdate(4, 4, "/sb_9999"))
	handlers.NewSetBookMessageHandler(env.deps)(ctx, nil, messageUpdate(4, 4, "/sb_abc"))

	texts := env.sink.messageTexts()
	if len(texts) != 2 {
		t.Fatalf("expected 2 replies, got %d: %v", len(texts), texts)
	}
	if texts[0] != "unknown book: 9999" {
		t.Errorf("unexpected reply for missing id: %q", texts[0])
	}
	if texts[1] != "unknown book: abc" {
		t.Errorf("unexpected reply for malformed id: %q", texts[1])
	}
}

func TestSetBookViaCallback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	handle := handlers.NewSetBookCallbackHandler(env.deps)
	ctx := context.Background()

	update := &models.Update{
		ID: 2,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb1",
			From: models.User{ID: 5, FirstName: "Aybek"},
			Data: fmt.Sprintf("/sb_%d", env.books[1].ID),
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 20, Chat: models.Chat{ID: 5}},
			},
		},
	}
	handle(ctx, nil, update)

	if len(env.sink.answers) != 1 {
		t.Fatalf("expected 1 callback answer, got %d", len(env.sink.answers))
	}
	if env.sink.answers[0].Text != "`Divan` is set as your default book" {
		t.Errorf("unexpected answer text: %q", env.sink.answers[0].Text)
	}
	if len(env.sink.edits) != 1 {
		t.Fatalf("expected the keyboard to be refreshed once, got %d edits", len(env.sink.edits))
	}

	// The same selection again acknowledges without another refresh.
	handle(ctx, nil, update)
	if len(env.sink.edits) != 1 {
		t.Errorf("expected no second keyboard refresh, got %d edits", len(env.sink.edits))
	}
	if env.sink.answers[1].Text != "`Divan` is already your default book" {
		t.Errorf("unexpected repeat answer: %q", env.sink.answers[1].Text)
	}
}

func TestLogPagesWithoutCurrentBook(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	handlers.NewDefaultHandler(env.deps)(ctx, nil, messageUpdate(6, 6, "42"))

	texts := env.sink.messageTexts()
	if len(texts) != 1 || texts[0] != "you haven't set your current book yet" {
		t.Fatalf("expected only the no-book reply, got %v", texts)
	}

	sum, err := env.store.SumEntriesSince(ctx, 6, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SumEntriesSince failed: %v", err)
	}
	if sum != 0 {
		t.Errorf("expected no entry to be recorded, got sum %d", sum)
	}
}

func TestLogPages(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user, _, err := env.store.ResolveUser(ctx, database.Profile{ID: 7, FirstName: "Aybek"}, true)
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	if err := env.store.SetUserBook(ctx, user.ID, env.books[0].ID); err != nil {
		t.Fatalf("SetUserBook failed: %v", err)
	}

	handlers.NewDefaultHandler(env.deps)(ctx, nil, messageUpdate(7, 7, "10"))

	texts := env.sink.messageTexts()
	if len(texts) != 2 {
		t.Fatalf("expected confirmation plus stats, got %d: %v", len(texts), texts)
	}
	if texts[0] != "you've read 10 sayfa of Mathnawi, Allah kabul etsin!" {
		t.Errorf("unexpected confirmation: %q", texts[0])
	}
	if !strings.Contains(texts[1], "`10` sayfa for last day") {
		t.Errorf("expected stats to include the new entry, got %q", texts[1])
	}

	sum, err := env.store.SumEntriesSince(ctx, user.ID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SumEntriesSince failed: %v", err)
	}
	if sum != 10 {
		t.Errorf("expected recorded sum 10, got %d", sum)
	}
}

func TestLogPagesNumericBoundaries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		input       string
		wantReplies []string
		wantEntries int
	}{
		{
			name:  "zero is a valid page count",
			input: "0",
			wantReplies: []string{
				"you've read 0 sayfa of Mathnawi, Allah kabul etsin!",
				"you have read\n" +
					" - `0` sayfa for last day\n" +
					" - `0` sayfa for last week\n" +
					" - `0` sayfa for last month\n",
			},
			wantEntries: 1,
		},
		{
			name:        "negative number is free text",
			input:       "-5",
			wantReplies: []string{"misunderstood: -5"},
			wantEntries: 0,
		},
		{
			name:        "explicit plus sign is free text",
			input:       "+7",
			wantReplies: []string{"misunderstood: +7"},
			wantEntries: 0,
		},
		{
			name:        "digits overflowing int64",
			input:       "99999999999999999999",
			wantReplies: []string{"misunderstood your sayfa value: `99999999999999999999`"},
			wantEntries: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			ctx := context.Background()

			user, _, err := env.store.ResolveUser(ctx, database.Profile{ID: 16, FirstName: "Aybek"}, true)
			if err != nil {
				t.Fatalf("ResolveUser failed: %v", err)
			}
			if err := env.store.SetUserBook(ctx, user.ID, env.books[0].ID); err != nil {
				t.Fatalf("SetUserBook failed: %v", err)
			}

			handlers.NewDefaultHandler(env.deps)(ctx, nil, messageUpdate(16, 16, tc.input))

			texts := env.sink.messageTexts()
			if len(texts) != len(tc.wantReplies) {
				t.Fatalf("expected %d replies, got %d: %v", len(tc.wantReplies), len(texts), texts)
			}
			for i, want := range tc.wantReplies {
				if texts[i] != want {
					t.Errorf("reply %d:\n got: %q\nwant: %q", i, texts[i], want)
				}
			}

			entries, err := env.store.EntriesWithBookSince(ctx, user.ID, time.Now().Add(-time.Hour))
			if err != nil {
				t.Fatalf("EntriesWithBookSince failed: %v", err)
			}
			if len(entries) != tc.wantEntries {
				t.Errorf("expected %d entries, got %+v", tc.wantEntries, entries)
			}
		})
	}
}

func TestFallbackEchoesUnrecognizedText(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	handlers.NewDefaultHandler(env.deps)(ctx, nil, messageUpdate(8, 8, "hello there"))

	if len(env.sink.actions) != 1 || env.sink.actions[0].Action != models.ChatActionTyping {
		t.Errorf("expected one typing action, got %+v", env.sink.actions)
	}
	texts := env.sink.messageTexts()
	if len(texts) != 1 || texts[0] != "misunderstood: hello there" {
		t.Errorf("unexpected fallback reply: %v", texts)
	}
}

func TestDefaultHandlerAcknowledgesUnknownCallback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	update := &models.Update{
		ID: 3,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb2",
			From: models.User{ID: 9, FirstName: "Aybek"},
			Data: "bogus",
		},
	}
	handlers.NewDefaultHandler(env.deps)(ctx, nil, update)

	if len(env.sink.answers) != 1 || env.sink.answers[0].Text != "" {
		t.Errorf("expected one empty acknowledgement, got %+v", env.sink.answers)
	}
	if len(env.sink.messages) != 0 {
		t.Errorf("expected no messages, got %v", env.sink.messageTexts())
	}
}

func TestCheckpointFirstThenSecond(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	handle := handlers.NewCheckpointHandler(env.deps)
	ctx := context.Background()

	handle(ctx, nil, messageUpdate(10, 10, "/checkpoint"))

	texts := env.sink.messageTexts()
	if len(texts) != 1 {
		t.Fatalf("expected a single reply for the first checkpoint, got %d: %v", len(texts), texts)
	}
	if texts[0] != "you created your first checkpoint: no name" {
		t.Errorf("unexpected first checkpoint reply: %q", texts[0])
	}

	handle(ctx, nil, messageUpdate(10, 10, "/checkpoint ramadan"))

	texts = env.sink.messageTexts()
	if len(texts) != 3 {
		t.Fatalf("expected notification plus stats for the second checkpoint, got %d: %v", len(texts), texts)
	}
	if texts[1] != "new checkpoint created: ramadan" {
		t.Errorf("unexpected notification: %q", texts[1])
	}
	// Stats are measured against the checkpoint that was current before
	// this one was written.
	if !strings.Contains(texts[2], "since checkpoint `no name`") {
		t.Errorf("expected stats against the prior checkpoint, got %q", texts[2])
	}

	latest, err := env.store.LatestCheckpoint(ctx, 10)
	if err != nil {
		t.Fatalf("LatestCheckpoint failed: %v", err)
	}
	if latest == nil || latest.Name != "ramadan" {
		t.Errorf("expected latest checkpoint ramadan, got %+v", latest)
	}
}

func TestEntriesEmptyMonth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	handlers.NewEntriesHandler(env.deps)(context.Background(), nil, messageUpdate(11, 11, "/sayfa"))

	texts := env.sink.messageTexts()
	if len(texts) != 1 || texts[0] != "you have not read this month" {
		t.Errorf("expected the empty month reply, got %v", texts)
	}
}

func TestEntriesListsCurrentMonth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user, _, err := env.store.ResolveUser(ctx, database.Profile{ID: 12, FirstName: "Aybek"}, true)
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	entry := &database.ReadingEntry{Count: 6, UserID: user.ID, BookID: env.books[0].ID}
	if err := env.store.SaveEntry(ctx, entry); err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	handlers.NewEntriesHandler(env.deps)(ctx, nil, messageUpdate(12, 12, "/sayfa"))

	texts := env.sink.messageTexts()
	if len(texts) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(texts))
	}
	expected := fmt.Sprintf("`%s` - 6 - Mathnawi", entry.CreatedAt.Format("02/01 15:04"))
	if texts[0] != expected {
		t.Errorf("unexpected listing:\n got: %q\nwant: %q", texts[0], expected)
	}
}

func TestMyBookHandler(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	handle := handlers.NewMyBookHandler(env.deps)
	ctx := context.Background()

	handle(ctx, nil, messageUpdate(13, 13, "/mybook"))

	texts := env.sink.messageTexts()
	if len(texts) != 1 || texts[0] != "you haven't set your book yet (use /books to see available books)" {
		t.Fatalf("unexpected guidance reply: %v", texts)
	}

	user, _, err := env.store.ResolveUser(ctx, database.Profile{ID: 13, FirstName: "Aybek"}, false)
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	if err := env.store.SetUserBook(ctx, user.ID, env.books[0].ID); err != nil {
		t.Fatalf("SetUserBook failed: %v", err)
	}

	handle(ctx, nil, messageUpdate(13, 13, "/mybook"))

	texts = env.sink.messageTexts()
	if len(texts) != 2 || texts[1] != "your current book is `Mathnawi`" {
		t.Errorf("unexpected current book reply: %v", texts)
	}
}

func TestStatsHandler(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user, _, err := env.store.ResolveUser(ctx, database.Profile{ID: 14, FirstName: "Aybek"}, true)
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	if err := env.store.SaveEntry(ctx, &database.ReadingEntry{Count: 4, UserID: user.ID, BookID: env.books[0].ID}); err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	handlers.NewStatsHandler(env.deps)(ctx, nil, messageUpdate(14, 14, "/stats"))

	texts := env.sink.messageTexts()
	if len(texts) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(texts))
	}
	for _, window := range []string{"last day", "last week", "last month"} {
		if !strings.Contains(texts[0], "`4` sayfa for "+window) {
			t.Errorf("expected stats reply to cover %s, got %q", window, texts[0])
		}
	}
}

func TestAudioHandler(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	handlers.NewAudioHandler(env.deps)(context.Background(), nil, messageUpdate(15, 15, "/audio"))

	if len(env.sink.actions) != 1 || env.sink.actions[0].Action != models.ChatActionUploadDocument {
		t.Errorf("expected one upload action, got %+v", env.sink.actions)
	}
	if len(env.sink.documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(env.sink.documents))
	}
	doc := env.sink.documents[0]
	if doc.Caption != "Hicranda gonlum" {
		t.Errorf("unexpected caption: %q", doc.Caption)
	}
	file, ok := doc.Document.(*models.InputFileString)
	if !ok || file.Data != config.DefaultAudioFileID {
		t.Errorf("expected the configured file id, got %+v", doc.Document)
	}
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	registered := handlers.RegisterAllCommands(env.deps)

	for _, key := range []string{"/start", "/books", "/stats", "/sayfa", "/mybook", "/checkpoint", "/audio"} {
		reg, ok := registered[key]
		if !ok {
			t.Errorf("expected %s to be registered", key)
			continue
		}
		if reg.MatchType != tgbot.MatchTypeCommandStartOnly {
			t.Errorf("expected %s to match as a command, got %v", key, reg.MatchType)
		}
	}

	text, ok := registered["/sb_text"]
	if !ok || text.MatchType != tgbot.MatchTypePrefix || text.HandlerType != tgbot.HandlerTypeMessageText {
		t.Errorf("unexpected text selection registration: %+v", text)
	}
	callback, ok := registered["/sb_callback"]
	if !ok || callback.MatchType != tgbot.MatchTypePrefix || callback.HandlerType != tgbot.HandlerTypeCallbackQueryData {
		t.Errorf("unexpected callback selection registration: %+v", callback)
	}
}
