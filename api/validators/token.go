package validators

import (
	"strings"

	pkgerrors "github.com/angelmondragon/bookloan-backend/pkg/errors"
)

// BearerToken extracts the token from an Authorization header value. The "Bearer"
// scheme is optional; an empty result is an authentication failure.
func BearerToken(header string) (string, error) {
	fields := strings.Fields(header)
	switch {
	case len(fields) == 1 && !strings.EqualFold(fields[0], "bearer"):
		return fields[0], nil
	case len(fields) == 2 && strings.EqualFold(fields[0], "bearer"):
		return fields[1], nil
	}
	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}
