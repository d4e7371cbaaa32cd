package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/bookloan-backend/internal/identity"
	"github.com/angelmondragon/bookloan-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookloan-backend/pkg/errors"
	"github.com/google/uuid"
)

type stubResolver struct {
	resolved identity.Resolved
	err      error
	gotToken string
}

func (s *stubResolver) Resolve(ctx context.Context, token string) (identity.Resolved, error) {
	s.gotToken = token
	return s.resolved, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	resolver := &stubResolver{}
	handler := Auth(resolver, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if resolver.gotToken != "" {
		t.Fatal("resolver should not run without a token")
	}
}

func TestAuthMapsResolverErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token"), http.StatusUnauthorized},
		{"session store down", pkgerrors.New(pkgerrors.CodeDependency, "validate session"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(&stubResolver{err: tt.err}, nil)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer abc")
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d got %d", tt.want, resp.Code)
			}
		})
	}
}

func TestAuthSeedsIdentity(t *testing.T) {
	userID := uuid.New()
	resolver := &stubResolver{resolved: identity.Resolved{
		Identity: identity.Identity{UserID: userID, Role: enums.RoleAdmin},
		AccessID: "jti-1",
	}}

	var (
		captured identity.Identity
		found    bool
		access   string
	)
	handler := Auth(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, found = IdentityFromContext(r.Context())
		access = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer  token-value ")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resolver.gotToken != "token-value" {
		t.Fatalf("expected trimmed token, got %q", resolver.gotToken)
	}
	if !found || captured.UserID != userID || !captured.IsAdmin() {
		t.Fatalf("unexpected identity %+v (found=%v)", captured, found)
	}
	if access != "jti-1" {
		t.Fatalf("expected access id jti-1, got %q", access)
	}
}

func TestIdentityFromContextWithoutAuth(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity on a bare context")
	}
	if UserIDFromContext(context.Background()) != "" {
		t.Fatal("expected empty user id on a bare context")
	}
}
