package models

import "time"

// Status describes where a book sits in the reading lifecycle.
type Status string

const (
	StatusWishlist Status = "wishlist"
	StatusReading  Status = "reading"
	StatusFinished Status = "finished"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusWishlist, StatusReading, StatusFinished:
		return true
	}
	return false
}

// Book represents a tracked book in the library.
type Book struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	Genre        string     `json:"genre"`
	Status       Status     `json:"status"`
	CoverImage   string     `json:"coverImage,omitempty"` // encoded image data, empty when absent
	DateAdded    time.Time  `json:"dateAdded"`
	DateStarted  *time.Time `json:"dateStarted"`
	DateFinished *time.Time `json:"dateFinished"`
	LastUpdated  time.Time  `json:"lastUpdated"`
}

// BookDraft holds the caller-supplied fields of a new book. Identifier and
// creation timestamps are assigned by the store.
type BookDraft struct {
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	Genre        string     `json:"genre"`
	Status       Status     `json:"status"`
	CoverImage   string     `json:"coverImage"`
	DateStarted  *time.Time `json:"dateStarted"`
	DateFinished *time.Time `json:"dateFinished"`
}

// BookPatch is a partial update for a book. A nil pointer leaves the field
// unchanged; a non-nil pointer overwrites it. Nullable fields additionally
// carry a Clear flag so that "set to null" is distinct from "not mentioned".
type BookPatch struct {
	Title      *string
	Author     *string
	Genre      *string
	Status     *Status
	CoverImage *string

	DateStarted      *time.Time
	ClearDateStarted bool

	DateFinished      *time.Time
	ClearDateFinished bool
}

// IsZero reports whether the patch changes nothing.
func (p BookPatch) IsZero() bool {
	return p.Title == nil && p.Author == nil && p.Genre == nil &&
		p.Status == nil && p.CoverImage == nil &&
		p.DateStarted == nil && !p.ClearDateStarted &&
		p.DateFinished == nil && !p.ClearDateFinished
}

// Quote represents a captured quote. BookID is a loose reference: the
// referenced book may have been deleted since, and readers must tolerate that.
type Quote struct {
	ID         int64     `json:"id"`
	BookID     int64     `json:"bookId"`
	Text       string    `json:"text"`
	Date       time.Time `json:"date"`
	PhotoURL   string    `json:"photoUrl,omitempty"`   // reserved, currently unused
	RawOCRText string    `json:"rawOcrText,omitempty"` // text as extracted, before any edits
}

// QuoteDraft holds the caller-supplied fields of a new quote.
type QuoteDraft struct {
	BookID     int64  `json:"bookId"`
	Text       string `json:"text"`
	PhotoURL   string `json:"photoUrl"`
	RawOCRText string `json:"rawOcrText"`
}

// Setting is a single key/value preference entry.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
