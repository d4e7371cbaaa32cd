package books

import (
	"github.com/angelmondragon/bookloan-backend/pkg/db/models"
	"github.com/google/uuid"
)

// BookSummary is the descriptive part of a book embedded in loan views.
type BookSummary struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
	ISBN   string    `json:"isbn"`
}

func SummaryFromModel(b *models.Book) BookSummary {
	if b == nil {
		return BookSummary{}
	}
	return BookSummary{
		ID:     b.ID,
		Title:  b.Title,
		Author: b.Author,
		ISBN:   b.ISBN,
	}
}
