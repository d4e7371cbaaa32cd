package lending

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the derived lending state of a book.
type Status string

const (
	StatusAvailable Status = "available"
	StatusOnLoan    Status = "on_loan"
)

// CheckoutState is Available, or OnLoan with the active checkout and its holder.
type CheckoutState struct {
	Status     Status
	CheckoutID uuid.UUID
	HolderID   uuid.UUID
}

func (s CheckoutState) IsAvailable() bool {
	return s.Status == StatusAvailable
}

var errNoTransaction = errors.New("current state must be evaluated inside a transaction")

// StateEvaluator derives a book's current state from its unreturned checkout.
type StateEvaluator struct {
	repo Repository
}

func NewStateEvaluator(repo Repository) *StateEvaluator {
	return &StateEvaluator{repo: repo}
}

// CurrentState reads through tx, the same handle the caller's subsequent write uses.
func (e *StateEvaluator) CurrentState(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) (CheckoutState, error) {
	if tx == nil {
		return CheckoutState{}, errNoTransaction
	}
	active, err := e.repo.WithTx(tx).FindActiveByBook(ctx, bookID)
	if err != nil {
		return CheckoutState{}, err
	}
	if active == nil {
		return CheckoutState{Status: StatusAvailable}, nil
	}
	return CheckoutState{
		Status:     StatusOnLoan,
		CheckoutID: active.ID,
		HolderID:   active.UserID,
	}, nil
}
