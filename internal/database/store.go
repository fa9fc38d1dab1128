package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations. Methods accept
// context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// ResolveUser looks up a user by the Telegram profile id, creating the
	// row on first contact. With update set, changed profile fields are
	// persisted. The returned bool reports whether the row was created.
	ResolveUser(ctx context.Context, profile Profile, update bool) (*User, bool, error)

	// GetBook retrieves a book by id. Returns nil, nil if not found.
	GetBook(ctx context.Context, bookID int64) (*Book, error)

	// ListBooks retrieves the whole catalog ordered by id.
	ListBooks(ctx context.Context) ([]Book, error)

	// SetUserBook sets the user's current book.
	SetUserBook(ctx context.Context, userID, bookID int64) error

	// SaveEntry appends a reading entry, assigning created_at and id.
	SaveEntry(ctx context.Context, entry *ReadingEntry) error

	// SumEntriesSince sums entry counts for a user with created_at strictly
	// after since. Returns zero when no rows match.
	SumEntriesSince(ctx context.Context, userID int64, since time.Time) (int64, error)

	// EntriesWithBookSince lists a user's entries with created_at at or
	// after since, joined with book titles, ordered by insertion.
	EntriesWithBookSince(ctx context.Context, userID int64, since time.Time) ([]EntryWithBook, error)

	// LatestCheckpoint retrieves the user's most recent checkpoint.
	// Returns nil, nil when the user has none.
	LatestCheckpoint(ctx context.Context, userID int64) (*Checkpoint, error)

	// SaveCheckpoint appends a checkpoint, assigning created_at and id.
	SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) error

	// ActiveUserIDs lists ids of users with at least one entry after since.
	ActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error)

	// SeedCatalog inserts the given authors and books unless rows with the
	// same author name and book title already exist. Used at startup to
	// populate the shared catalog from configuration.
	SeedCatalog(ctx context.Context, books []CatalogBook) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ResolveUser implements the transactional get-or-create. The insert uses
// ON CONFLICT DO NOTHING so concurrent resolutions for the same id can
// never produce duplicate rows.
func (s *sqlxStore) ResolveUser(ctx context.Context, profile Profile, update bool) (*User, bool, error) {
	if profile.ID == 0 {
		return nil, false, fmt.Errorf("profile must have a non-zero id")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for user resolution", "user_id", profile.ID, "error", err)
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	result, err := tx.ExecContext(ctx, `
        INSERT INTO users (id, first_name, last_name, username, language_code)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id) DO NOTHING;
    `, profile.ID, profile.FirstName, profile.LastName, profile.Username, languageCodeOrDefault(profile.LanguageCode))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error inserting user", "user_id", profile.ID, "error", err)
		return nil, false, fmt.Errorf("failed to insert user %d: %w", profile.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected for user %d: %w", profile.ID, err)
	}
	created := affected == 1

	var user User
	if err := tx.GetContext(ctx, &user, `
        SELECT id, first_name, last_name, username, language_code, book_id
        FROM users WHERE id = ?;
    `, profile.ID); err != nil {
		// The row was just inserted or found present; not finding it here
		// is a programming invariant violation, not a user-facing case.
		s.logger.ErrorContext(ctx, "Error reading user after resolution", "user_id", profile.ID, "error", err)
		return nil, false, fmt.Errorf("failed to read user %d after resolution: %w", profile.ID, err)
	}

	if !created && update {
		changed := user.FirstName != profile.FirstName ||
			user.LastName != profile.LastName ||
			user.Username != profile.Username ||
			user.LanguageCode != languageCodeOrDefault(profile.LanguageCode)
		if changed {
			user.FirstName = profile.FirstName
			user.LastName = profile.LastName
			user.Username = profile.Username
			user.LanguageCode = languageCodeOrDefault(profile.LanguageCode)
			if _, err := tx.NamedExecContext(ctx, `
                UPDATE users SET
                    first_name = :first_name,
                    last_name = :last_name,
                    username = :username,
                    language_code = :language_code
                WHERE id = :id;
            `, user); err != nil {
				s.logger.ErrorContext(ctx, "Error updating user profile fields", "user_id", profile.ID, "error", err)
				return nil, false, fmt.Errorf("failed to update user %d: %w", profile.ID, err)
			}
			s.logger.DebugContext(ctx, "User profile fields updated", "user_id", profile.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit user resolution", "user_id", profile.ID, "error", err)
		return nil, false, fmt.Errorf("failed to commit user resolution: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "User resolved", "user_id", user.ID, "created", created)
	return &user, created, nil
}

func languageCodeOrDefault(code string) string {
	if code == "" {
		return "en"
	}
	return code
}

// GetBook retrieves a book by id. Returns nil, nil if not found.
func (s *sqlxStore) GetBook(ctx context.Context, bookID int64) (*Book, error) {
	var book Book
	err := s.db.GetContext(ctx, &book, `
        SELECT id, title, year, author_id FROM books WHERE id = ?;
    `, bookID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No book found", "book_id", bookID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting book", "book_id", bookID, "error", err)
		return nil, fmt.Errorf("failed to get book %d: %w", bookID, err)
	}

	return &book, nil
}

// ListBooks retrieves the whole catalog ordered by id.
func (s *sqlxStore) ListBooks(ctx context.Context) ([]Book, error) {
	var books []Book
	err := s.db.SelectContext(ctx, &books, `
        SELECT id, title, year, author_id FROM books ORDER BY id ASC;
    `)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing books", "error", err)
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	s.logger.DebugContext(ctx, "Fetched book catalog", "count", len(books))
	return books, nil
}

// SetUserBook sets the user's current book.
func (s *sqlxStore) SetUserBook(ctx context.Context, userID, bookID int64) error {
	result, err := s.db.ExecContext(ctx, `
        UPDATE users SET book_id = ? WHERE id = ?;
    `, bookID, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error setting user's current book", "user_id", userID, "book_id", bookID, "error", err)
		return fmt.Errorf("failed to set book %d for user %d: %w", bookID, userID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when setting current book",
			"user_id", userID, "book_id", bookID, "affected", affected)
	}

	s.logger.DebugContext(ctx, "User's current book set", "user_id", userID, "book_id", bookID)
	return nil
}

// SaveEntry appends a reading entry. created_at is server-assigned at
// insert; entries are immutable afterwards.
func (s *sqlxStore) SaveEntry(ctx context.Context, entry *ReadingEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot save nil entry")
	}
	if entry.Count < 0 {
		return fmt.Errorf("entry count must be non-negative, got %d", entry.Count)
	}
	if entry.UserID == 0 || entry.BookID == 0 {
		return fmt.Errorf("entry must reference a user and a book")
	}

	entry.CreatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
        INSERT INTO reading_entries (count, created_at, user_id, book_id)
        VALUES (:count, :created_at, :user_id, :book_id);
    `, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving reading entry", "user_id", entry.UserID, "book_id", entry.BookID, "error", err)
		return fmt.Errorf("failed to save reading entry (user %d, book %d): %w", entry.UserID, entry.BookID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert id for reading entry", "user_id", entry.UserID, "error", err)
	}

	s.logger.DebugContext(ctx, "Reading entry saved", "user_id", entry.UserID, "book_id", entry.BookID, "count", entry.Count, "entry_id", entry.ID)
	return nil
}

// SumEntriesSince sums entry counts for a user after the given instant.
// Absence of rows is not an error; the sum defaults to zero.
func (s *sqlxStore) SumEntriesSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
        SELECT COALESCE(SUM(count), 0) FROM reading_entries
        WHERE user_id = ? AND created_at > ?;
    `, userID, since.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error summing reading entries", "user_id", userID, "since", since, "error", err)
		return 0, fmt.Errorf("failed to sum entries for user %d: %w", userID, err)
	}

	return sum, nil
}

// EntriesWithBookSince lists a user's entries at or after since, joined with
// book titles, in insertion order.
func (s *sqlxStore) EntriesWithBookSince(ctx context.Context, userID int64, since time.Time) ([]EntryWithBook, error) {
	var entries []EntryWithBook
	err := s.db.SelectContext(ctx, &entries, `
        SELECT e.id, e.count, e.created_at, e.user_id, e.book_id, b.title AS book_title
        FROM reading_entries e
        JOIN books b ON b.id = e.book_id
        WHERE e.user_id = ? AND e.created_at >= ?
        ORDER BY e.created_at ASC, e.id ASC;
    `, userID, since.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing reading entries", "user_id", userID, "since", since, "error", err)
		return nil, fmt.Errorf("failed to list entries for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Fetched reading entries", "user_id", userID, "count", len(entries))
	return entries, nil
}

// LatestCheckpoint retrieves the user's most recent checkpoint, ties broken
// by insertion id. Returns nil, nil when the user has none.
func (s *sqlxStore) LatestCheckpoint(ctx context.Context, userID int64) (*Checkpoint, error) {
	var checkpoint Checkpoint
	err := s.db.GetContext(ctx, &checkpoint, `
        SELECT id, name, created_at, user_id FROM checkpoints
        WHERE user_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT 1;
    `, userID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "User has no checkpoints", "user_id", userID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting latest checkpoint", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get latest checkpoint for user %d: %w", userID, err)
	}

	return &checkpoint, nil
}

// SaveCheckpoint appends a checkpoint. created_at is server-assigned.
func (s *sqlxStore) SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) error {
	if checkpoint == nil {
		return fmt.Errorf("cannot save nil checkpoint")
	}
	if checkpoint.UserID == 0 {
		return fmt.Errorf("checkpoint must reference a user")
	}

	checkpoint.CreatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
        INSERT INTO checkpoints (name, created_at, user_id)
        VALUES (:name, :created_at, :user_id);
    `, checkpoint)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving checkpoint", "user_id", checkpoint.UserID, "error", err)
		return fmt.Errorf("failed to save checkpoint for user %d: %w", checkpoint.UserID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		checkpoint.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert id for checkpoint", "user_id", checkpoint.UserID, "error", err)
	}

	s.logger.DebugContext(ctx, "Checkpoint saved", "user_id", checkpoint.UserID, "name", checkpoint.Name, "checkpoint_id", checkpoint.ID)
	return nil
}

// ActiveUserIDs lists ids of users with at least one entry after since.
// Used by the weekly digest task.
func (s *sqlxStore) ActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `
        SELECT DISTINCT user_id FROM reading_entries
        WHERE created_at > ?
        ORDER BY user_id ASC;
    `, since.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing active users", "since", since, "error", err)
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	return ids, nil
}

// SeedCatalog inserts authors and books that are not present yet. Matching
// is by author name and by (title, author); existing rows are left alone so
// reseeding on every startup is idempotent.
func (s *sqlxStore) SeedCatalog(ctx context.Context, books []CatalogBook) error {
	if len(books) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for catalog seeding", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	seeded := 0
	for _, b := range books {
		if b.Author == "" || b.Title == "" {
			return fmt.Errorf("catalog book must have an author and a title")
		}

		var authorID int64
		err := tx.GetContext(ctx, &authorID, `SELECT id FROM authors WHERE name = ?;`, b.Author)
		if errors.Is(err, sql.ErrNoRows) {
			result, execErr := tx.ExecContext(ctx, `INSERT INTO authors (name) VALUES (?);`, b.Author)
			if execErr != nil {
				return fmt.Errorf("failed to insert author %q: %w", b.Author, execErr)
			}
			if authorID, execErr = result.LastInsertId(); execErr != nil {
				return fmt.Errorf("failed to read author id for %q: %w", b.Author, execErr)
			}
		} else if err != nil {
			return fmt.Errorf("failed to look up author %q: %w", b.Author, err)
		}

		var bookID int64
		err = tx.GetContext(ctx, &bookID, `SELECT id FROM books WHERE title = ? AND author_id = ?;`, b.Title, authorID)
		if errors.Is(err, sql.ErrNoRows) {
			year := sql.NullInt64{Int64: int64(b.Year), Valid: b.Year != 0}
			if _, execErr := tx.ExecContext(ctx, `INSERT INTO books (title, year, author_id) VALUES (?, ?, ?);`, b.Title, year, authorID); execErr != nil {
				return fmt.Errorf("failed to insert book %q: %w", b.Title, execErr)
			}
			seeded++
		} else if err != nil {
			return fmt.Errorf("failed to look up book %q: %w", b.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit catalog seeding", "error", err)
		return fmt.Errorf("failed to commit catalog seeding: %w", err)
	}
	tx = nil

	if seeded > 0 {
		s.logger.InfoContext(ctx, "Catalog seeded", "books_added", seeded)
	}
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
// VACUUM must run outside a transaction in SQLite.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed.")
	return nil
}
