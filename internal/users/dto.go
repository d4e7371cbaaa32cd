package users

import (
	"strings"

	"github.com/angelmondragon/bookloan-backend/pkg/db/models"
	"github.com/angelmondragon/bookloan-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape of a user.
type UserDTO struct {
	ID    uuid.UUID  `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  enums.Role `json:"role"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name  string
	Email string
	Role  enums.Role
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.RoleUser
	}
	return &models.User{
		ID:    uuid.New(),
		Name:  strings.TrimSpace(c.Name),
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Role:  role,
	}
}
