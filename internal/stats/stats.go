// Package stats computes library statistics from book records.
package stats

import (
	"sort"

	"booktracker/internal/models"
)

// StatusCounts holds how many books sit in each reading status.
type StatusCounts struct {
	Total    int `json:"total"`
	Wishlist int `json:"wishlist"`
	Reading  int `json:"reading"`
	Finished int `json:"finished"`
}

// GenreCount is the number of books in one genre.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// CountByStatus tallies books per reading status.
func CountByStatus(books []models.Book) StatusCounts {
	counts := StatusCounts{Total: len(books)}
	for _, book := range books {
		switch book.Status {
		case models.StatusWishlist:
			counts.Wishlist++
		case models.StatusReading:
			counts.Reading++
		case models.StatusFinished:
			counts.Finished++
		}
	}
	return counts
}

// CountByGenre tallies books per genre. Books without a genre are grouped
// under "other". Results are sorted by count descending, then by genre name
// so output is stable.
func CountByGenre(books []models.Book) []GenreCount {
	byGenre := make(map[string]int)
	for _, book := range books {
		genre := book.Genre
		if genre == "" {
			genre = "other"
		}
		byGenre[genre]++
	}

	counts := make([]GenreCount, 0, len(byGenre))
	for genre, count := range byGenre {
		counts = append(counts, GenreCount{Genre: genre, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Genre < counts[j].Genre
	})
	return counts
}
