package database

import (
	"database/sql"
	"strings"
	"time"
)

// Author represents a book author in the shared catalog.
type Author struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Book represents a book in the shared catalog. Year is optional.
type Book struct {
	ID       int64         `db:"id"`
	Title    string        `db:"title"`
	Year     sql.NullInt64 `db:"year"`
	AuthorID int64         `db:"author_id"`
}

// User represents a bot user. The id is assigned by Telegram and immutable;
// BookID points at the user's current book and is nullable.
type User struct {
	ID           int64         `db:"id"`
	FirstName    string        `db:"first_name"`
	LastName     string        `db:"last_name"`
	Username     string        `db:"username"`
	LanguageCode string        `db:"language_code"`
	BookID       sql.NullInt64 `db:"book_id"`
}

// FullName returns the non-empty join of first and last name.
func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{u.FirstName, u.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ReadingEntry is one logged unit of reading progress. The book id is the
// user's current book at logging time and does not move when the user later
// switches books. Rows are append-only.
type ReadingEntry struct {
	ID        int64     `db:"id"`
	Count     int64     `db:"count"`
	CreatedAt time.Time `db:"created_at"`
	UserID    int64     `db:"user_id"`
	BookID    int64     `db:"book_id"`
}

// EntryWithBook is a ReadingEntry joined with the title of its book, used
// for the monthly listing.
type EntryWithBook struct {
	ReadingEntry
	BookTitle string `db:"book_title"`
}

// Checkpoint is a named, timestamped progress marker for a user. Rows are
// append-only; the most recent one by (created_at, id) is the current
// checkpoint.
type Checkpoint struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UserID    int64     `db:"user_id"`
}

// CatalogBook describes one book of a catalog seed.
type CatalogBook struct {
	Author string
	Title  string
	Year   int
}

// Profile carries the upstream Telegram identity fields used for user
// resolution, keeping this package free of transport types.
type Profile struct {
	ID           int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}
