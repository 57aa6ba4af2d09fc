package httputil

import (
	"context"
	"net/http"

	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal adds the authenticated principal to the request context
func WithPrincipal(r *http.Request, p models.Principal) *http.Request {
	ctx := context.WithValue(r.Context(), principalKey, p)
	return r.WithContext(ctx)
}

// GetPrincipal retrieves the principal from the context.
// The zero value (anonymous) is returned when none is set.
func GetPrincipal(r *http.Request) models.Principal {
	p, _ := r.Context().Value(principalKey).(models.Principal)
	return p
}
