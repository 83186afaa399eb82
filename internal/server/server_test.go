package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"booktracker/internal/models"
	"booktracker/internal/storage/stubs"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	mux := http.NewServeMux()
	New(stubs.NewMockStore(), zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createBook(t *testing.T, mux *http.ServeMux, draft models.BookDraft) int64 {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/api/books", draft)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func getBook(t *testing.T, mux *http.ServeMux, id int64) models.Book {
	t.Helper()

	rec := doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/books/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	return book
}

func TestServer_CreateAndGetBook(t *testing.T) {
	mux := newTestMux(t)

	id := createBook(t, mux, models.BookDraft{
		Title:  "Beloved",
		Author: "Toni Morrison",
		Genre:  "fiction",
		Status: models.StatusWishlist,
	})

	book := getBook(t, mux, id)
	assert.Equal(t, "Beloved", book.Title)
	assert.Equal(t, models.StatusWishlist, book.Status)
	assert.False(t, book.DateAdded.IsZero())
}

func TestServer_CreateBook_Validation(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/books", models.BookDraft{Author: "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/books", map[string]string{
		"title": "t", "author": "a", "status": "abandoned",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetBook_NotFound(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/books/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StartAndFinishBook(t *testing.T) {
	mux := newTestMux(t)
	id := createBook(t, mux, models.BookDraft{Title: "t", Author: "a"})

	rec := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/books/%d/start", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	book := getBook(t, mux, id)
	assert.Equal(t, models.StatusReading, book.Status)
	assert.NotNil(t, book.DateStarted)
	assert.Nil(t, book.DateFinished)

	rec = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/books/%d/finish", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	book = getBook(t, mux, id)
	assert.Equal(t, models.StatusFinished, book.Status)
	assert.NotNil(t, book.DateFinished)

	// Re-reading a finished book clears the finish date again.
	rec = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/books/%d/start", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	book = getBook(t, mux, id)
	assert.Equal(t, models.StatusReading, book.Status)
	assert.Nil(t, book.DateFinished)
}

func TestServer_PatchBook_OmittedVersusNull(t *testing.T) {
	mux := newTestMux(t)
	id := createBook(t, mux, models.BookDraft{Title: "t", Author: "a", Genre: "g"})

	rec := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/books/%d/finish", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Omitted fields stay put.
	rec = doJSON(t, mux, http.MethodPatch, fmt.Sprintf("/api/books/%d", id),
		map[string]any{"genre": "updated"})
	require.Equal(t, http.StatusOK, rec.Code)

	book := getBook(t, mux, id)
	assert.Equal(t, "updated", book.Genre)
	assert.NotNil(t, book.DateFinished, "omitted dateFinished is untouched")

	// An explicit null clears the field.
	rec = doJSON(t, mux, http.MethodPatch, fmt.Sprintf("/api/books/%d", id),
		map[string]any{"dateFinished": nil})
	require.Equal(t, http.StatusOK, rec.Code)

	book = getBook(t, mux, id)
	assert.Nil(t, book.DateFinished)
	assert.Equal(t, "updated", book.Genre)
}

func TestServer_PatchBook_NotFound(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPatch, "/api/books/404", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DeleteBook_Idempotent(t *testing.T) {
	mux := newTestMux(t)
	id := createBook(t, mux, models.BookDraft{Title: "t", Author: "a"})

	rec := doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/api/books/%d", id), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/api/books/%d", id), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_Quotes(t *testing.T) {
	mux := newTestMux(t)
	bookID := createBook(t, mux, models.BookDraft{Title: "t", Author: "a"})

	rec := doJSON(t, mux, http.MethodPost, "/api/quotes", models.QuoteDraft{
		BookID: bookID,
		Text:   "a fine sentence",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Quotes may reference books that do not exist.
	rec = doJSON(t, mux, http.MethodPost, "/api/quotes", models.QuoteDraft{
		BookID: 9999,
		Text:   "orphaned",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/quotes?book_id=%d", bookID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var quotes []models.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quotes))
	require.Len(t, quotes, 1)
	assert.Equal(t, "a fine sentence", quotes[0].Text)

	rec = doJSON(t, mux, http.MethodGet, "/api/quotes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quotes))
	assert.Len(t, quotes, 2)
}

func TestServer_CreateQuote_RequiresText(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/quotes", models.QuoteDraft{BookID: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Stats(t *testing.T) {
	mux := newTestMux(t)

	for i := 0; i < 2; i++ {
		createBook(t, mux, models.BookDraft{
			Title: "t", Author: "a", Genre: "sci-fi", Status: models.StatusFinished,
		})
	}
	createBook(t, mux, models.BookDraft{
		Title: "t", Author: "a", Genre: "poetry", Status: models.StatusReading,
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Statuses struct {
			Total    int `json:"total"`
			Reading  int `json:"reading"`
			Finished int `json:"finished"`
		} `json:"statuses"`
		Genres []struct {
			Genre string `json:"genre"`
			Count int    `json:"count"`
		} `json:"genres"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 3, resp.Statuses.Total)
	assert.Equal(t, 2, resp.Statuses.Finished)
	assert.Equal(t, 1, resp.Statuses.Reading)
	require.Len(t, resp.Genres, 2)
	assert.Equal(t, "sci-fi", resp.Genres[0].Genre)
	assert.Equal(t, 2, resp.Genres[0].Count)
}

func TestServer_ListBooks_EmptyIsArray(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String(), "an empty library encodes as [], not null")
}
