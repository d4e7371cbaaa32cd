package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookloan-backend/api/middleware"
	"github.com/angelmondragon/bookloan-backend/api/responses"
	"github.com/angelmondragon/bookloan-backend/api/validators"
	"github.com/angelmondragon/bookloan-backend/internal/lending"
	pkgerrors "github.com/angelmondragon/bookloan-backend/pkg/errors"
	"github.com/angelmondragon/bookloan-backend/pkg/logger"
)

type borrowRequest struct {
	BookID string  `json:"book_id" validate:"required,uuid"`
	UserID *string `json:"user_id,omitempty" validate:"omitempty,uuid"`
}

func (r borrowRequest) toInput() (lending.BorrowInput, error) {
	bookID, err := uuid.Parse(strings.TrimSpace(r.BookID))
	if err != nil {
		return lending.BorrowInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid book_id")
	}
	input := lending.BorrowInput{BookID: bookID}
	if r.UserID != nil {
		holderID, err := uuid.Parse(strings.TrimSpace(*r.UserID))
		if err != nil {
			return lending.BorrowInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id")
		}
		input.HolderID = &holderID
	}
	return input, nil
}

// LoanBorrow opens a checkout for the requested book.
func LoanBorrow(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity missing"))
			return
		}

		var body borrowRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Borrow(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// LoanReturn closes the checkout named in the path.
func LoanReturn(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lending service unavailable"))
			return
		}

		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity missing"))
			return
		}

		checkoutID, err := validators.ParseUUIDParam(r, "checkoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Return(r.Context(), actor, checkoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// LoansActive lists every active loan.
func LoansActive(svc lending.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan query service unavailable"))
			return
		}
		views, err := svc.ActiveLoans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// LoansMine lists the active loans held by the caller.
func LoansMine(svc lending.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan query service unavailable"))
			return
		}

		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity missing"))
			return
		}

		views, err := svc.ActiveLoansFor(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// BookLoanHistory lists every checkout of a book, oldest first.
func BookLoanHistory(svc lending.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan query service unavailable"))
			return
		}

		bookID, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.HistoryFor(r.Context(), bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}
