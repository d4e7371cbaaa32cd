package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/bookloan-backend/internal/books"
	"github.com/angelmondragon/bookloan-backend/internal/identity"
	"github.com/angelmondragon/bookloan-backend/pkg/clock"
	"github.com/angelmondragon/bookloan-backend/pkg/db"
	"github.com/angelmondragon/bookloan-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookloan-backend/pkg/errors"
	"github.com/angelmondragon/bookloan-backend/pkg/logger"
	"github.com/angelmondragon/bookloan-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service executes the borrow and return transitions.
type Service interface {
	Borrow(ctx context.Context, actor identity.Identity, input BorrowInput) (*LoanView, error)
	Return(ctx context.Context, actor identity.Identity, checkoutID uuid.UUID) (*LoanView, error)
}

// ServiceParams groups the optional knobs of the command handler.
type ServiceParams struct {
	TxTimeout time.Duration
	Clock     clock.Clock
	Metrics   *metrics.LendingMetrics
}

type service struct {
	tx        txRunner
	repo      Repository
	catalog   books.Repository
	state     *StateEvaluator
	policy    Policy
	clock     clock.Clock
	metrics   *metrics.LendingMetrics
	logg      *logger.Logger
	txTimeout time.Duration
}

// NewService builds the lending command handler.
func NewService(tx txRunner, repo Repository, catalog books.Repository, policy Policy, logg *logger.Logger, params ServiceParams) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if policy == nil {
		return nil, fmt.Errorf("authorization policy required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &service{
		tx:        tx,
		repo:      repo,
		catalog:   catalog,
		state:     NewStateEvaluator(repo),
		policy:    policy,
		clock:     clk,
		metrics:   params.Metrics,
		logg:      logg,
		txTimeout: params.TxTimeout,
	}, nil
}

// Borrow opens a new checkout for input.BookID. Preconditions are checked in order:
// the book exists, the actor may borrow for the holder, the holder exists, and the
// book has no active checkout. The book row stays locked until commit.
func (s *service) Borrow(ctx context.Context, actor identity.Identity, input BorrowInput) (view *LoanView, err error) {
	started := time.Now()
	defer func() { s.observe(metrics.CommandBorrow, started, err) }()

	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	if input.BookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book_id is required")
	}
	holderID := actor.UserID
	if input.HolderID != nil {
		if *input.HolderID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "user_id must not be the nil uuid")
		}
		holderID = *input.HolderID
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"book_id":   input.BookID.String(),
		"holder_id": holderID.String(),
		"actor_id":  actor.UserID.String(),
	})
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		book, err := s.catalog.WithTx(tx).LockByID(ctx, input.BookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return err
		}

		if !s.policy.Permit(actor, ActionBorrow, Target{HolderID: holderID}) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to borrow on behalf of another user")
		}

		repo := s.repo.WithTx(tx)
		if holderID != actor.UserID {
			exists, err := repo.HolderExists(ctx, holderID)
			if err != nil {
				return err
			}
			if !exists {
				return pkgerrors.New(pkgerrors.CodeNotFound, "holder not found")
			}
		}

		state, err := s.state.CurrentState(ctx, tx, book.ID)
		if err != nil {
			return err
		}
		if !state.IsAvailable() {
			return pkgerrors.New(pkgerrors.CodeConflict, "book is already checked out").
				WithDetails(map[string]any{"checkout_id": state.CheckoutID})
		}

		checkout := &models.Checkout{
			ID:           uuid.New(),
			BookID:       book.ID,
			UserID:       holderID,
			CheckedOutAt: s.now(),
		}
		if err := repo.Create(ctx, checkout); err != nil {
			return err
		}
		view = viewFromCheckout(checkout, books.SummaryFromModel(book))
		return nil
	})
	if err != nil {
		return nil, s.classify(ctx, err, "book is already checked out")
	}

	s.logg.Info(s.logg.WithCheckoutID(ctx, view.CheckoutID.String()), "loan.borrowed")
	return view, nil
}

// Return closes an active checkout. Preconditions are checked in order: the checkout
// exists, it is still active, and the actor is its holder or an administrator.
func (s *service) Return(ctx context.Context, actor identity.Identity, checkoutID uuid.UUID) (view *LoanView, err error) {
	started := time.Now()
	defer func() { s.observe(metrics.CommandReturn, started, err) }()

	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	if checkoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout id is required")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"checkout_id": checkoutID.String(),
		"actor_id":    actor.UserID.String(),
	})
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		checkout, err := repo.LockByID(ctx, checkoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found")
			}
			return err
		}
		if !checkout.IsActive() {
			return pkgerrors.New(pkgerrors.CodeConflict, "checkout already returned")
		}
		if !s.policy.Permit(actor, ActionReturn, Target{HolderID: checkout.UserID}) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the holder or an administrator may return this book")
		}

		// returned_at stays strictly after checked_out_at even when the clock stalls
		returnedAt := s.now()
		if !returnedAt.After(checkout.CheckedOutAt) {
			returnedAt = checkout.CheckedOutAt.Add(time.Microsecond)
		}
		affected, err := repo.MarkReturned(ctx, checkout.ID, returnedAt)
		if err != nil {
			return err
		}
		if affected != 1 {
			return pkgerrors.New(pkgerrors.CodeConflict, "checkout already returned")
		}
		checkout.ReturnedAt = &returnedAt

		book, err := s.catalog.WithTx(tx).FindByID(ctx, checkout.BookID)
		if err != nil {
			return err
		}
		view = viewFromCheckout(checkout, books.SummaryFromModel(book))
		return nil
	})
	if err != nil {
		return nil, s.classify(ctx, err, "checkout already returned")
	}

	s.logg.Info(s.logg.WithBookID(ctx, view.BookID.String()), "loan.returned")
	return view, nil
}

func (s *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.txTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.txTimeout)
}

// now is truncated to the precision postgres stores.
func (s *service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// classify maps transaction failures onto the lending taxonomy. Typed errors raised
// inside the transaction pass through; lost races become conflicts; everything else
// is a storage failure and is never retried here.
func (s *service) classify(ctx context.Context, err error, conflictMsg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsUniqueViolation(err, models.ActiveCheckoutIndex) || db.IsSerializationFailure(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, conflictMsg)
	}

	wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage unavailable")
	fields := pkgerrors.Dump(wrapped).Fields()
	fields["timeout"] = db.IsTimeout(err)
	s.logg.Error(s.logg.WithFields(ctx, fields), "loan.storage_unavailable", err)
	return wrapped
}

func (s *service) observe(command string, started time.Time, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = string(pkgerrors.CodeOf(err))
	}
	s.metrics.Observe(command, outcome, time.Since(started))
}
