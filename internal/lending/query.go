package lending

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bookloan-backend/internal/books"
	pkgerrors "github.com/angelmondragon/bookloan-backend/pkg/errors"
	"github.com/angelmondragon/bookloan-backend/pkg/logger"
	"github.com/google/uuid"
)

// QueryService serves the read views over checkouts. Views are ordered by
// checked_out_at ascending, ties broken by checkout id.
type QueryService interface {
	ActiveLoans(ctx context.Context) ([]LoanView, error)
	ActiveLoansFor(ctx context.Context, userID uuid.UUID) ([]LoanView, error)
	HistoryFor(ctx context.Context, bookID uuid.UUID) ([]LoanView, error)
}

type queryService struct {
	repo    Repository
	catalog books.Repository
	logg    *logger.Logger
}

// NewQueryService builds the loan query service. Reads run outside explicit
// transactions and take no locks.
func NewQueryService(repo Repository, catalog books.Repository, logg *logger.Logger) (QueryService, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &queryService{repo: repo, catalog: catalog, logg: logg}, nil
}

func (q *queryService) ActiveLoans(ctx context.Context) ([]LoanView, error) {
	rows, err := q.repo.ListActive(ctx)
	if err != nil {
		return nil, q.storageFailure(ctx, err, "list active loans")
	}
	return viewsFromRows(rows), nil
}

func (q *queryService) ActiveLoansFor(ctx context.Context, userID uuid.UUID) ([]LoanView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := q.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, q.storageFailure(ctx, err, "list active loans for user")
	}
	return viewsFromRows(rows), nil
}

// HistoryFor returns every checkout of bookID, most recent last. Unknown books are
// NotFound rather than an empty history.
func (q *queryService) HistoryFor(ctx context.Context, bookID uuid.UUID) ([]LoanView, error) {
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	exists, err := q.catalog.Exists(ctx, bookID)
	if err != nil {
		return nil, q.storageFailure(ctx, err, "lookup book")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
	}
	rows, err := q.repo.ListHistoryByBook(ctx, bookID)
	if err != nil {
		return nil, q.storageFailure(ctx, err, "list book history")
	}
	return viewsFromRows(rows), nil
}

func (q *queryService) storageFailure(ctx context.Context, err error, op string) error {
	wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage unavailable")
	ctx = q.logg.WithFields(ctx, pkgerrors.Dump(wrapped).Fields())
	q.logg.Error(q.logg.WithField(ctx, "op", op), "loan.query_failed", err)
	return wrapped
}
