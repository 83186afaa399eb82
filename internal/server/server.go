// Package server exposes the store to UI clients as a JSON API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"booktracker/internal/models"
	"booktracker/internal/stats"
	"booktracker/internal/storage"
)

// Server handles the JSON API for books, quotes and stats.
type Server struct {
	db  storage.Storage
	log *zap.Logger
}

// New creates an API server backed by db.
func New(db storage.Storage, log *zap.Logger) *Server {
	return &Server{db: db, log: log}
}

// RegisterRoutes registers the API routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/books", s.handleListBooks)
	mux.HandleFunc("POST /api/books", s.handleCreateBook)
	mux.HandleFunc("GET /api/books/{id}", s.handleGetBook)
	mux.HandleFunc("PATCH /api/books/{id}", s.handlePatchBook)
	mux.HandleFunc("DELETE /api/books/{id}", s.handleDeleteBook)
	mux.HandleFunc("POST /api/books/{id}/start", s.handleStartBook)
	mux.HandleFunc("POST /api/books/{id}/finish", s.handleFinishBook)

	mux.HandleFunc("GET /api/quotes", s.handleListQuotes)
	mux.HandleFunc("POST /api/quotes", s.handleCreateQuote)
	mux.HandleFunc("DELETE /api/quotes/{id}", s.handleDeleteQuote)

	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeStorageError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error("storage operation failed", zap.String("op", op), zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "storage failure")
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.db.GetAllBooks(r.Context())
	if err != nil {
		s.writeStorageError(w, "list books", err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	s.writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var draft models.BookDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if draft.Title == "" || draft.Author == "" {
		s.writeError(w, http.StatusBadRequest, "title and author are required")
		return
	}
	if draft.Status == "" {
		draft.Status = models.StatusWishlist
	}
	if !draft.Status.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	id, err := s.db.CreateBook(r.Context(), draft)
	if err != nil {
		s.writeStorageError(w, "create book", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	book, err := s.db.GetBookByID(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, "get book", err)
		return
	}
	if book == nil {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.writeJSON(w, http.StatusOK, book)
}

// bookPatchBody distinguishes omitted fields from explicitly-null ones:
// a missing key leaves the field alone, null clears it where the model
// allows, and a value overwrites.
type bookPatchBody struct {
	Title        *string             `json:"title"`
	Author       *string             `json:"author"`
	Genre        *string             `json:"genre"`
	Status       *models.Status      `json:"status"`
	CoverImage   *string             `json:"coverImage"`
	DateStarted  optional[time.Time] `json:"dateStarted"`
	DateFinished optional[time.Time] `json:"dateFinished"`
}

// optional tracks JSON field presence alongside nullability.
type optional[T any] struct {
	set   bool
	value *T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		o.value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.value = &v
	return nil
}

func (b bookPatchBody) toPatch() (models.BookPatch, error) {
	patch := models.BookPatch{
		Title:      b.Title,
		Author:     b.Author,
		Genre:      b.Genre,
		CoverImage: b.CoverImage,
	}
	if b.Status != nil {
		if !b.Status.Valid() {
			return models.BookPatch{}, errors.New("invalid status")
		}
		patch.Status = b.Status
	}
	if b.DateStarted.set {
		if b.DateStarted.value == nil {
			patch.ClearDateStarted = true
		} else {
			patch.DateStarted = b.DateStarted.value
		}
	}
	if b.DateFinished.set {
		if b.DateFinished.value == nil {
			patch.ClearDateFinished = true
		} else {
			patch.DateFinished = b.DateFinished.value
		}
	}
	return patch, nil
}

func (s *Server) handlePatchBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var body bookPatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	patch, err := body.toPatch()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.applyBookPatch(w, r, id, patch)
}

func (s *Server) applyBookPatch(w http.ResponseWriter, r *http.Request, id int64, patch models.BookPatch) {
	if _, err := s.db.UpdateBook(r.Context(), id, patch); err != nil {
		s.writeStorageError(w, "update book", err)
		return
	}
	book, err := s.db.GetBookByID(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, "get book", err)
		return
	}
	s.writeJSON(w, http.StatusOK, book)
}

// handleStartBook marks a book as currently being read. Re-reading a
// finished book goes through here as well, which resets DateFinished.
func (s *Server) handleStartBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	now := time.Now().UTC()
	status := models.StatusReading
	s.applyBookPatch(w, r, id, models.BookPatch{
		Status:            &status,
		DateStarted:       &now,
		ClearDateFinished: true,
	})
}

func (s *Server) handleFinishBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	now := time.Now().UTC()
	status := models.StatusFinished
	s.applyBookPatch(w, r, id, models.BookPatch{
		Status:       &status,
		DateFinished: &now,
	})
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.db.DeleteBook(r.Context(), id); err != nil {
		s.writeStorageError(w, "delete book", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	var (
		quotes []models.Quote
		err    error
	)
	if raw := r.URL.Query().Get("book_id"); raw != "" {
		bookID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			s.writeError(w, http.StatusBadRequest, "invalid book_id")
			return
		}
		quotes, err = s.db.GetQuotesByBook(r.Context(), bookID)
	} else {
		quotes, err = s.db.GetAllQuotes(r.Context())
	}
	if err != nil {
		s.writeStorageError(w, "list quotes", err)
		return
	}
	if quotes == nil {
		quotes = []models.Quote{}
	}
	s.writeJSON(w, http.StatusOK, quotes)
}

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var draft models.QuoteDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if draft.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	// The book reference is deliberately not validated: quotes may point at
	// books that no longer exist and readers render those as "unknown book".

	id, err := s.db.CreateQuote(r.Context(), draft)
	if err != nil {
		s.writeStorageError(w, "create quote", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleDeleteQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.db.DeleteQuote(r.Context(), id); err != nil {
		s.writeStorageError(w, "delete quote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	books, err := s.db.GetAllBooks(r.Context())
	if err != nil {
		s.writeStorageError(w, "list books", err)
		return
	}

	s.writeJSON(w, http.StatusOK, struct {
		Statuses stats.StatusCounts `json:"statuses"`
		Genres   []stats.GenreCount `json:"genres"`
	}{
		Statuses: stats.CountByStatus(books),
		Genres:   stats.CountByGenre(books),
	})
}
