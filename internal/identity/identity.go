package identity

import (
	"github.com/angelmondragon/bookloan-backend/pkg/enums"
	"github.com/google/uuid"
)

// Identity is the resolved caller of a lending operation.
type Identity struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsAdmin reports whether the identity carries the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == enums.RoleAdmin
}

// IsZero reports whether no identity was resolved.
func (i Identity) IsZero() bool {
	return i.UserID == uuid.Nil
}
