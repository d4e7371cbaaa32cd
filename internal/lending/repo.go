package lending

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/bookloan-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanRow is a checkout joined with its book's descriptive columns.
type LoanRow struct {
	CheckoutID   uuid.UUID  `gorm:"column:checkout_id"`
	BookID       uuid.UUID  `gorm:"column:book_id"`
	UserID       uuid.UUID  `gorm:"column:user_id"`
	CheckedOutAt time.Time  `gorm:"column:checked_out_at"`
	ReturnedAt   *time.Time `gorm:"column:returned_at"`
	Title        string     `gorm:"column:title"`
	Author       string     `gorm:"column:author"`
	ISBN         string     `gorm:"column:isbn"`
}

// Repository is the State Store for checkouts. Write-path methods must be called on
// a repository bound to a transaction via WithTx.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindActiveByBook(ctx context.Context, bookID uuid.UUID) (*models.Checkout, error)
	LockByID(ctx context.Context, checkoutID uuid.UUID) (*models.Checkout, error)
	HolderExists(ctx context.Context, userID uuid.UUID) (bool, error)
	Create(ctx context.Context, checkout *models.Checkout) error
	MarkReturned(ctx context.Context, checkoutID uuid.UUID, at time.Time) (int64, error)

	ListActive(ctx context.Context) ([]LoanRow, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]LoanRow, error)
	ListHistoryByBook(ctx context.Context, bookID uuid.UUID) ([]LoanRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindActiveByBook returns the unreturned checkout for bookID, or nil when the book
// is available.
func (r *repository) FindActiveByBook(ctx context.Context, bookID uuid.UUID) (*models.Checkout, error) {
	var checkout models.Checkout
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND returned_at IS NULL", bookID).
		Order("checked_out_at DESC").
		Take(&checkout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

// LockByID loads a checkout with a row lock. Missing rows yield gorm.ErrRecordNotFound.
func (r *repository) LockByID(ctx context.Context, checkoutID uuid.UUID) (*models.Checkout, error) {
	var checkout models.Checkout
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", checkoutID).
		Take(&checkout).Error
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (r *repository) HolderExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, checkout *models.Checkout) error {
	return r.db.WithContext(ctx).Create(checkout).Error
}

// MarkReturned stamps returned_at only while the checkout is still active and reports
// how many rows changed.
func (r *repository) MarkReturned(ctx context.Context, checkoutID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Checkout{}).
		Where("id = ? AND returned_at IS NULL", checkoutID).
		UpdateColumn("returned_at", at)
	return res.RowsAffected, res.Error
}

func (r *repository) ListActive(ctx context.Context) ([]LoanRow, error) {
	return r.listLoans(r.joined(ctx).Where("c.returned_at IS NULL"))
}

func (r *repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]LoanRow, error) {
	return r.listLoans(r.joined(ctx).Where("c.returned_at IS NULL AND c.user_id = ?", userID))
}

func (r *repository) ListHistoryByBook(ctx context.Context, bookID uuid.UUID) ([]LoanRow, error) {
	return r.listLoans(r.joined(ctx).Where("c.book_id = ?", bookID))
}

func (r *repository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("checkouts AS c").
		Select("c.id AS checkout_id, c.book_id, c.user_id, c.checked_out_at, c.returned_at, b.title, b.author, b.isbn").
		Joins("JOIN books AS b ON b.id = c.book_id")
}

func (r *repository) listLoans(query *gorm.DB) ([]LoanRow, error) {
	rows := []LoanRow{}
	if err := query.Order("c.checked_out_at ASC").Order("c.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
