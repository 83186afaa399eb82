package storage

import (
	"context"

	"booktracker/internal/models"
)

// Storage defines the interface for data storage operations
type Storage interface {
	// Book operations
	CreateBook(ctx context.Context, draft models.BookDraft) (int64, error)
	GetAllBooks(ctx context.Context) ([]models.Book, error)

	// GetBookByID returns (nil, nil) when no book has the given id; absence
	// is not an error.
	GetBookByID(ctx context.Context, id int64) (*models.Book, error)

	// UpdateBook merges patch over the stored record and refreshes
	// LastUpdated. It fails with ErrNotFound when id does not exist. The
	// read-merge-write runs as a single atomic unit with respect to other
	// writers.
	UpdateBook(ctx context.Context, id int64, patch models.BookPatch) (int64, error)

	// DeleteBook is idempotent: deleting an absent id succeeds.
	DeleteBook(ctx context.Context, id int64) error

	// Quote operations. Quotes are immutable after creation; there is no
	// update. GetQuotesByBook must be served by the book_id index, not a
	// full scan.
	CreateQuote(ctx context.Context, draft models.QuoteDraft) (int64, error)
	GetAllQuotes(ctx context.Context) ([]models.Quote, error)
	GetQuotesByBook(ctx context.Context, bookID int64) ([]models.Quote, error)
	DeleteQuote(ctx context.Context, id int64) error

	// Settings operations (reserved preference storage)
	GetSetting(ctx context.Context, key string) (*models.Setting, error)
	PutSetting(ctx context.Context, setting models.Setting) error

	// Lifecycle
	Close() error
}
