package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgauth "github.com/angelmondragon/bookloan-backend/pkg/auth"
	"github.com/angelmondragon/bookloan-backend/pkg/auth/session"
	"github.com/angelmondragon/bookloan-backend/pkg/config"
	"github.com/angelmondragon/bookloan-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookloan-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Resolved is an identity together with the access session it was resolved from.
type Resolved struct {
	Identity
	AccessID string
}

// Resolver turns a bearer token into an Identity. The token must verify, its session
// must still exist and point at the same user, and the user row must exist; the role
// comes from the user row.
type Resolver struct {
	cfg      config.JWTConfig
	sessions session.AccessSessionChecker
	users    userLoader
}

// NewResolver wires the identity resolver.
func NewResolver(cfg config.JWTConfig, sessions session.AccessSessionChecker, users userLoader) (*Resolver, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session checker required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	return &Resolver{cfg: cfg, sessions: sessions, users: users}, nil
}

// Resolve returns CodeUnauthorized for any credential problem and CodeDependency
// when a backing store cannot be reached.
func (r *Resolver) Resolve(ctx context.Context, token string) (Resolved, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Resolved{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgauth.ParseAccessToken(r.cfg, token)
	if err != nil {
		return Resolved{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	owner, err := r.sessions.Lookup(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return Resolved{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
		return Resolved{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if owner != claims.UserID {
		return Resolved{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session does not match token")
	}

	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Resolved{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user no longer exists")
		}
		return Resolved{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.Role.IsValid() {
		return Resolved{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user has no valid role")
	}

	return Resolved{
		Identity: Identity{UserID: user.ID, Role: user.Role},
		AccessID: claims.ID,
	}, nil
}
