package lending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/bookloan-backend/pkg/clock"
	pkgerrors "github.com/angelmondragon/bookloan-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryForOrdersByCheckoutTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, withClock(clock.NewStepping(start, 10*time.Minute)))
	ctx := context.Background()

	loans := []struct {
		holder   uuid.UUID
		giveBack bool
	}{
		{holder: f.alice.UserID, giveBack: true},
		{holder: f.bob.UserID, giveBack: true},
		{holder: f.alice.UserID, giveBack: false},
	}
	var expected []uuid.UUID
	for _, l := range loans {
		loan, err := f.svc.Borrow(ctx, f.admin, BorrowInput{BookID: f.book.ID, HolderID: ptr(l.holder)})
		require.NoError(t, err)
		expected = append(expected, loan.CheckoutID)
		if l.giveBack {
			_, err := f.svc.Return(ctx, f.admin, loan.CheckoutID)
			require.NoError(t, err)
		}
	}

	history, err := f.query.HistoryFor(ctx, f.book.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, view := range history {
		assert.Equal(t, expected[i], view.CheckoutID)
		assert.Equal(t, f.book.Title, view.Book.Title)
		if i > 0 {
			assert.True(t, history[i-1].CheckedOutAt.Before(view.CheckedOutAt))
		}
	}
	assert.NotNil(t, history[0].ReturnedAt)
	assert.NotNil(t, history[1].ReturnedAt)
	assert.True(t, history[2].IsActive())
}

func TestActiveLoanViews(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, withClock(clock.NewStepping(start, time.Minute)))
	ctx := context.Background()
	second := f.seedBook(t, "Site Reliability Engineering")
	third := f.seedBook(t, "The Go Programming Language")

	a, err := f.svc.Borrow(ctx, f.alice, BorrowInput{BookID: f.book.ID})
	require.NoError(t, err)
	b, err := f.svc.Borrow(ctx, f.bob, BorrowInput{BookID: second.ID})
	require.NoError(t, err)
	c, err := f.svc.Borrow(ctx, f.alice, BorrowInput{BookID: third.ID})
	require.NoError(t, err)
	_, err = f.svc.Return(ctx, f.alice, c.CheckoutID)
	require.NoError(t, err)

	all, err := f.query.ActiveLoans(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.CheckoutID, all[0].CheckoutID)
	assert.Equal(t, b.CheckoutID, all[1].CheckoutID)
	assert.Equal(t, "Site Reliability Engineering", all[1].Book.Title)
	assert.Equal(t, second.ID, all[1].Book.ID)

	mine, err := f.query.ActiveLoansFor(ctx, f.alice.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.CheckoutID, mine[0].CheckoutID)
	assert.Equal(t, f.alice.UserID, mine[0].UserID)

	none, err := f.query.ActiveLoansFor(ctx, f.admin.UserID)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestHistoryForUnknownBook(t *testing.T) {
	f := newFixture(t)
	_, err := f.query.HistoryFor(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.query.HistoryFor(context.Background(), uuid.Nil)
	requireCode(t, err, pkgerrors.CodeValidation)

	history, err := f.query.HistoryFor(context.Background(), f.book.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

type failingRepo struct {
	Repository
}

func (failingRepo) ListActive(context.Context) ([]LoanRow, error) {
	return nil, errors.New("connection refused")
}

func TestQueryStorageFailure(t *testing.T) {
	f := newFixture(t)
	query, err := NewQueryService(failingRepo{Repository: f.repo}, f.catalog, testLogger())
	require.NoError(t, err)

	_, err = query.ActiveLoans(context.Background())
	requireCode(t, err, pkgerrors.CodeDependency)
}
