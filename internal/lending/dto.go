package lending

import (
	"time"

	"github.com/angelmondragon/bookloan-backend/internal/books"
	"github.com/angelmondragon/bookloan-backend/pkg/db/models"
	"github.com/google/uuid"
)

// BorrowInput describes a borrow request. HolderID defaults to the acting identity.
type BorrowInput struct {
	BookID   uuid.UUID
	HolderID *uuid.UUID
}

// LoanView is a checkout joined with the descriptive fields of its book.
type LoanView struct {
	CheckoutID   uuid.UUID         `json:"checkout_id"`
	BookID       uuid.UUID         `json:"book_id"`
	UserID       uuid.UUID         `json:"user_id"`
	CheckedOutAt time.Time         `json:"checked_out_at"`
	ReturnedAt   *time.Time        `json:"returned_at"`
	Book         books.BookSummary `json:"book"`
}

// IsActive reports whether the loan has not been returned yet.
func (v LoanView) IsActive() bool {
	return v.ReturnedAt == nil
}

func viewFromCheckout(c *models.Checkout, book books.BookSummary) *LoanView {
	return &LoanView{
		CheckoutID:   c.ID,
		BookID:       c.BookID,
		UserID:       c.UserID,
		CheckedOutAt: c.CheckedOutAt,
		ReturnedAt:   c.ReturnedAt,
		Book:         book,
	}
}

func viewsFromRows(rows []LoanRow) []LoanView {
	views := make([]LoanView, 0, len(rows))
	for _, row := range rows {
		views = append(views, LoanView{
			CheckoutID:   row.CheckoutID,
			BookID:       row.BookID,
			UserID:       row.UserID,
			CheckedOutAt: row.CheckedOutAt,
			ReturnedAt:   row.ReturnedAt,
			Book: books.BookSummary{
				ID:     row.BookID,
				Title:  row.Title,
				Author: row.Author,
				ISBN:   row.ISBN,
			},
		})
	}
	return views
}
