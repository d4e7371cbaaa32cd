package models

import (
	"time"

	"github.com/google/uuid"
)

// ActiveCheckoutIndex guarantees at most one unreturned checkout per book.
const ActiveCheckoutIndex = "checkouts_one_active_per_book"

// Checkout is one borrow-to-return cycle of a book. ReturnedAt is nil while the
// loan is active and is set exactly once.
type Checkout struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	BookID       uuid.UUID  `gorm:"column:book_id;type:uuid;not null;uniqueIndex:checkouts_one_active_per_book,where:returned_at IS NULL"`
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	CheckedOutAt time.Time  `gorm:"column:checked_out_at;not null"`
	ReturnedAt   *time.Time `gorm:"column:returned_at"`
}

func (Checkout) TableName() string { return "checkouts" }

// IsActive reports whether the book is still out on this checkout.
func (c Checkout) IsActive() bool {
	return c.ReturnedAt == nil
}
