package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"booktracker/internal/models"
)

func book(genre string, status models.Status) models.Book {
	return models.Book{Genre: genre, Status: status}
}

func TestCountByStatus(t *testing.T) {
	tests := []struct {
		name  string
		books []models.Book
		want  StatusCounts
	}{
		{
			name: "empty library",
			want: StatusCounts{},
		},
		{
			name: "mixed statuses",
			books: []models.Book{
				book("sci-fi", models.StatusFinished),
				book("sci-fi", models.StatusFinished),
				book("fiction", models.StatusReading),
				book("poetry", models.StatusWishlist),
			},
			want: StatusCounts{Total: 4, Wishlist: 1, Reading: 1, Finished: 2},
		},
		{
			name:  "unknown status is only counted in total",
			books: []models.Book{{Status: "lost"}},
			want:  StatusCounts{Total: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountByStatus(tt.books))
		})
	}
}

func TestCountByGenre(t *testing.T) {
	books := []models.Book{
		book("sci-fi", models.StatusFinished),
		book("sci-fi", models.StatusReading),
		book("fiction", models.StatusReading),
		book("", models.StatusWishlist),
	}

	got := CountByGenre(books)

	assert.Equal(t, []GenreCount{
		{Genre: "sci-fi", Count: 2},
		{Genre: "fiction", Count: 1},
		{Genre: "other", Count: 1},
	}, got, "sorted by count, empty genre grouped under other")
}

func TestCountByGenre_Empty(t *testing.T) {
	assert.Empty(t, CountByGenre(nil))
}
