package stubs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booktracker/internal/models"
	"booktracker/internal/storage"
)

// The mock must honor the same contract as the real store so tests built on
// it stay meaningful.

func TestMockStore_BookLifecycle(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	id, err := store.CreateBook(ctx, models.BookDraft{
		Title:  "Solaris",
		Author: "Stanislaw Lem",
		Genre:  "sci-fi",
		Status: models.StatusWishlist,
	})
	require.NoError(t, err)

	book, err := store.GetBookByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, "Solaris", book.Title)
	assert.False(t, book.DateAdded.IsZero())

	before := book.LastUpdated
	time.Sleep(time.Millisecond)

	status := models.StatusReading
	_, err = store.UpdateBook(ctx, id, models.BookPatch{Status: &status})
	require.NoError(t, err)

	book, err = store.GetBookByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReading, book.Status)
	assert.Equal(t, "Solaris", book.Title, "unpatched fields unchanged")
	assert.True(t, book.LastUpdated.After(before))

	require.NoError(t, store.DeleteBook(ctx, id))
	require.NoError(t, store.DeleteBook(ctx, id), "delete is idempotent")

	book, err = store.GetBookByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestMockStore_UpdateBook_NotFound(t *testing.T) {
	store := NewMockStore()

	title := "nope"
	_, err := store.UpdateBook(context.Background(), 404, models.BookPatch{Title: &title})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMockStore_QuotesByBook(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	bookID, err := store.CreateBook(ctx, models.BookDraft{Title: "b", Author: "a"})
	require.NoError(t, err)

	_, err = store.CreateQuote(ctx, models.QuoteDraft{BookID: bookID, Text: "mine"})
	require.NoError(t, err)
	_, err = store.CreateQuote(ctx, models.QuoteDraft{BookID: bookID + 1, Text: "other"})
	require.NoError(t, err)

	quotes, err := store.GetQuotesByBook(ctx, bookID)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "mine", quotes[0].Text)
}

func TestMockStore_Settings(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	setting, err := store.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, setting)

	require.NoError(t, store.PutSetting(ctx, models.Setting{Key: "lang", Value: "en"}))

	setting, err = store.GetSetting(ctx, "lang")
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, "en", setting.Value)
}
