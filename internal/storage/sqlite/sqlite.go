// Package sqlite implements storage.Storage on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"booktracker/internal/models"
	"booktracker/internal/storage"
)

// MigrationsFS holds the embedded schema migrations, shared with the
// migrate CLI command.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// Store is a SQLite-backed implementation of storage.Storage. It is an
// explicitly owned handle: callers create it with Open and pass it where
// needed, there is no package-level connection.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and brings the schema up to
// date. Migrations are additive-only and recorded per version, so a second
// concurrent Open waits on SQLite's locking and observes the completed
// schema instead of re-running the upgrade.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &storage.ConnectionError{Err: fmt.Errorf("create db dir: %w", err)}
		}
	}

	// _txlock=immediate makes every transaction take the write lock up
	// front, so a read-modify-write never upgrades mid-transaction.
	dsn := "file:" + filepath.Clean(path) +
		"?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &storage.ConnectionError{Err: fmt.Errorf("open sqlite: %w", err)}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &storage.ConnectionError{Err: fmt.Errorf("ping sqlite: %w", err)}
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, &storage.ConnectionError{Err: fmt.Errorf("run migrations: %w", err)}
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(MigrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return goose.Up(db, "migrations")
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func storageErr(op string, err error) error {
	return &storage.StorageError{Op: op, Err: err}
}

// Timestamps are stored as unix milliseconds in UTC.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

// CreateBook persists a new book, stamping DateAdded and LastUpdated, and
// returns the assigned identifier.
func (s *Store) CreateBook(ctx context.Context, draft models.BookDraft) (int64, error) {
	now := toMillis(time.Now())

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO books (title, author, genre, status, cover_image, date_added, date_started, date_finished, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.Title, draft.Author, draft.Genre, string(draft.Status), draft.CoverImage,
		now, nullableMillis(draft.DateStarted), nullableMillis(draft.DateFinished), now,
	)
	if err != nil {
		return 0, storageErr("create book", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("create book", err)
	}
	return id, nil
}

const bookColumns = `id, title, author, genre, status, cover_image, date_added, date_started, date_finished, last_updated`

func scanBook(row interface{ Scan(...any) error }) (models.Book, error) {
	var (
		book              models.Book
		status            string
		added, updated    int64
		started, finished sql.NullInt64
	)
	if err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Genre, &status,
		&book.CoverImage, &added, &started, &finished, &updated); err != nil {
		return models.Book{}, err
	}
	book.Status = models.Status(status)
	book.DateAdded = fromMillis(added)
	book.DateStarted = millisPtr(started)
	book.DateFinished = millisPtr(finished)
	book.LastUpdated = fromMillis(updated)
	return book, nil
}

// GetAllBooks returns every book record. Order is unspecified.
func (s *Store) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books`)
	if err != nil {
		return nil, storageErr("list books", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, storageErr("scan book", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list books", err)
	}
	return books, nil
}

// GetBookByID returns the book with the given id, or (nil, nil) when absent.
func (s *Store) GetBookByID(ctx context.Context, id int64) (*models.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get book", err)
	}
	return &book, nil
}

// UpdateBook merges patch over the stored record inside a single immediate
// transaction and refreshes LastUpdated. Returns storage.ErrNotFound when no
// record has the given id; nothing is written in that case.
func (s *Store) UpdateBook(ctx context.Context, id int64, patch models.BookPatch) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("update book", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if err == sql.ErrNoRows {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, storageErr("update book", err)
	}

	applyPatch(&book, patch)
	book.LastUpdated = fromMillis(toMillis(time.Now()))

	_, err = tx.ExecContext(ctx, `
		UPDATE books
		SET title = ?, author = ?, genre = ?, status = ?, cover_image = ?,
		    date_started = ?, date_finished = ?, last_updated = ?
		WHERE id = ?`,
		book.Title, book.Author, book.Genre, string(book.Status), book.CoverImage,
		nullableMillis(book.DateStarted), nullableMillis(book.DateFinished),
		toMillis(book.LastUpdated), id,
	)
	if err != nil {
		return 0, storageErr("update book", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("update book", err)
	}
	return id, nil
}

func applyPatch(book *models.Book, patch models.BookPatch) {
	if patch.Title != nil {
		book.Title = *patch.Title
	}
	if patch.Author != nil {
		book.Author = *patch.Author
	}
	if patch.Genre != nil {
		book.Genre = *patch.Genre
	}
	if patch.Status != nil {
		book.Status = *patch.Status
	}
	if patch.CoverImage != nil {
		book.CoverImage = *patch.CoverImage
	}
	if patch.ClearDateStarted {
		book.DateStarted = nil
	} else if patch.DateStarted != nil {
		book.DateStarted = patch.DateStarted
	}
	if patch.ClearDateFinished {
		book.DateFinished = nil
	} else if patch.DateFinished != nil {
		book.DateFinished = patch.DateFinished
	}
}

// DeleteBook removes the book with the given id. Deleting an absent id is
// not an error. Quotes referencing the book are left in place.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return storageErr("delete book", err)
	}
	return nil
}

// CreateQuote persists a new quote, stamping Date, and returns the assigned
// identifier. The referenced book is not checked to exist.
func (s *Store) CreateQuote(ctx context.Context, draft models.QuoteDraft) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (book_id, text, date, photo_url, raw_ocr_text)
		VALUES (?, ?, ?, ?, ?)`,
		draft.BookID, draft.Text, toMillis(time.Now()), draft.PhotoURL, draft.RawOCRText,
	)
	if err != nil {
		return 0, storageErr("create quote", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("create quote", err)
	}
	return id, nil
}

const quoteColumns = `id, book_id, text, date, photo_url, raw_ocr_text`

func scanQuotes(rows *sql.Rows) ([]models.Quote, error) {
	var quotes []models.Quote
	for rows.Next() {
		var (
			quote models.Quote
			date  int64
		)
		if err := rows.Scan(&quote.ID, &quote.BookID, &quote.Text, &date,
			&quote.PhotoURL, &quote.RawOCRText); err != nil {
			return nil, err
		}
		quote.Date = fromMillis(date)
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

// GetAllQuotes returns every quote record. Order is unspecified.
func (s *Store) GetAllQuotes(ctx context.Context) ([]models.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+quoteColumns+` FROM quotes`)
	if err != nil {
		return nil, storageErr("list quotes", err)
	}
	defer rows.Close()

	quotes, err := scanQuotes(rows)
	if err != nil {
		return nil, storageErr("list quotes", err)
	}
	return quotes, nil
}

// GetQuotesByBook returns all quotes referencing the given book, served by
// the book_id index.
func (s *Store) GetQuotesByBook(ctx context.Context, bookID int64) ([]models.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE book_id = ?`, bookID)
	if err != nil {
		return nil, storageErr("list quotes by book", err)
	}
	defer rows.Close()

	quotes, err := scanQuotes(rows)
	if err != nil {
		return nil, storageErr("list quotes by book", err)
	}
	return quotes, nil
}

// DeleteQuote removes the quote with the given id. Deleting an absent id is
// not an error.
func (s *Store) DeleteQuote(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id); err != nil {
		return storageErr("delete quote", err)
	}
	return nil
}

// GetSetting returns the setting for key, or (nil, nil) when absent.
func (s *Store) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	row := s.db.QueryRowContext(ctx, `SELECT key, value FROM settings WHERE key = ?`, key)
	err := row.Scan(&setting.Key, &setting.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get setting", err)
	}
	return &setting, nil
}

// PutSetting inserts or replaces the setting for its key.
func (s *Store) PutSetting(ctx context.Context, setting models.Setting) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		setting.Key, setting.Value,
	)
	if err != nil {
		return storageErr("put setting", err)
	}
	return nil
}
