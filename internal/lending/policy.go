package lending

import (
	"github.com/angelmondragon/bookloan-backend/internal/identity"
	"github.com/google/uuid"
)

// Action is a lending transition subject to authorization.
type Action string

const (
	ActionBorrow Action = "borrow"
	ActionReturn Action = "return"
)

// Target carries the holder an action applies to: the intended holder for a borrow,
// the current holder for a return.
type Target struct {
	HolderID uuid.UUID
}

// Policy decides whether an identity may perform an action.
type Policy interface {
	Permit(actor identity.Identity, action Action, target Target) bool
}

// RolePolicy lets identities act on their own loans and administrators act on anyone's.
type RolePolicy struct{}

func NewRolePolicy() RolePolicy {
	return RolePolicy{}
}

func (RolePolicy) Permit(actor identity.Identity, action Action, target Target) bool {
	if actor.IsZero() || !actor.Role.IsValid() {
		return false
	}
	switch action {
	case ActionBorrow, ActionReturn:
		return actor.IsAdmin() || actor.UserID == target.HolderID
	default:
		return false
	}
}
