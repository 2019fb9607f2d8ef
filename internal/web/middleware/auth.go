package middleware

import (
	"net/http"
	"strings"

	"github.com/geomd/metaschema/internal/web/auth"
	webcontext "github.com/geomd/metaschema/internal/web/context"
	"github.com/geomd/metaschema/internal/web/response"
)

// Auth requires a valid bearer token carrying every scope listed.
// The token's subject and scopes are stored in the request context.
func Auth(service *auth.Service, scopes ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.RenderUnauthorized(w, "")
				return
			}

			claims, err := service.ValidateToken(token)
			if err != nil {
				response.RenderUnauthorized(w, "Invalid token")
				return
			}

			for _, scope := range scopes {
				if !claims.HasScope(scope) {
					response.RenderForbidden(w, "Token lacks scope "+scope)
					return
				}
			}

			ctx := webcontext.SetSubject(r.Context(), claims.Subject)
			ctx = webcontext.SetScopes(ctx, claims.Scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
