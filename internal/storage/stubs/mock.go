package stubs

import (
	"context"
	"sync"
	"time"

	"booktracker/internal/models"
	"booktracker/internal/storage"
)

// MockStore is an in-memory implementation of the Storage interface for
// testing and for running without a database file.
type MockStore struct {
	mu       sync.RWMutex
	books    map[int64]models.Book
	quotes   map[int64]models.Quote
	settings map[string]models.Setting

	nextBookID  int64
	nextQuoteID int64
}

// NewMockStore creates a new empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		books:    make(map[int64]models.Book),
		quotes:   make(map[int64]models.Quote),
		settings: make(map[string]models.Setting),
	}
}

// CreateBook stores a new book and returns its identifier.
func (m *MockStore) CreateBook(ctx context.Context, draft models.BookDraft) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextBookID++
	now := time.Now().UTC()
	m.books[m.nextBookID] = models.Book{
		ID:           m.nextBookID,
		Title:        draft.Title,
		Author:       draft.Author,
		Genre:        draft.Genre,
		Status:       draft.Status,
		CoverImage:   draft.CoverImage,
		DateAdded:    now,
		DateStarted:  draft.DateStarted,
		DateFinished: draft.DateFinished,
		LastUpdated:  now,
	}
	return m.nextBookID, nil
}

// GetAllBooks returns all books in unspecified order.
func (m *MockStore) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var books []models.Book
	for _, book := range m.books {
		books = append(books, book)
	}
	return books, nil
}

// GetBookByID returns the book with the given id, or nil when absent.
func (m *MockStore) GetBookByID(ctx context.Context, id int64) (*models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	book, ok := m.books[id]
	if !ok {
		return nil, nil
	}
	return &book, nil
}

// UpdateBook merges patch over the stored book under the store lock.
func (m *MockStore) UpdateBook(ctx context.Context, id int64, patch models.BookPatch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[id]
	if !ok {
		return 0, storage.ErrNotFound
	}

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

	book.LastUpdated = time.Now().UTC()
	m.books[id] = book
	return id, nil
}

// DeleteBook removes the book with the given id; absent ids are ignored.
func (m *MockStore) DeleteBook(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.books, id)
	return nil
}

// CreateQuote stores a new quote and returns its identifier.
func (m *MockStore) CreateQuote(ctx context.Context, draft models.QuoteDraft) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextQuoteID++
	m.quotes[m.nextQuoteID] = models.Quote{
		ID:         m.nextQuoteID,
		BookID:     draft.BookID,
		Text:       draft.Text,
		Date:       time.Now().UTC(),
		PhotoURL:   draft.PhotoURL,
		RawOCRText: draft.RawOCRText,
	}
	return m.nextQuoteID, nil
}

// GetAllQuotes returns all quotes in unspecified order.
func (m *MockStore) GetAllQuotes(ctx context.Context) ([]models.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var quotes []models.Quote
	for _, quote := range m.quotes {
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// GetQuotesByBook returns all quotes referencing the given book.
func (m *MockStore) GetQuotesByBook(ctx context.Context, bookID int64) ([]models.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var quotes []models.Quote
	for _, quote := range m.quotes {
		if quote.BookID == bookID {
			quotes = append(quotes, quote)
		}
	}
	return quotes, nil
}

// DeleteQuote removes the quote with the given id; absent ids are ignored.
func (m *MockStore) DeleteQuote(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.quotes, id)
	return nil
}

// GetSetting returns the setting for key, or nil when absent.
func (m *MockStore) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	setting, ok := m.settings[key]
	if !ok {
		return nil, nil
	}
	return &setting, nil
}

// PutSetting inserts or replaces the setting for its key.
func (m *MockStore) PutSetting(ctx context.Context, setting models.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[setting.Key] = setting
	return nil
}

// Close does nothing for the mock store.
func (m *MockStore) Close() error {
	return nil
}
