package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/af-corp/aegis-admin/internal/httputil"
)

// Middleware returns a chi middleware that authenticates requests via Bearer token.
func Middleware(store KeyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteAuthError(w, reqID, "Missing Authorization header. Use: Authorization: Bearer <admin-key>")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				httputil.WriteAuthError(w, reqID, "Invalid Authorization format. Use: Authorization: Bearer <admin-key>")
				return
			}
			if token == "" {
				httputil.WriteAuthError(w, reqID, "Empty API key")
				return
			}

			meta, err := store.Lookup(r.Context(), HashKey(token))
			if err != nil {
				slog.Error("key lookup failed", "error", err, "key_prefix", KeyPrefix(token))
				httputil.WriteInternalError(w, reqID, "Internal error during authentication")
				return
			}
			if meta == nil {
				slog.Warn("auth failed: key not found", "key_prefix", KeyPrefix(token))
				httputil.WriteAuthError(w, reqID, "Invalid API key")
				return
			}

			info := &AuthInfo{
				KeyID:    meta.ID,
				Name:     meta.Name,
				Role:     meta.Role,
				TeamID:   meta.TeamID,
				RPMLimit: meta.RPMLimit,
			}

			ctx := ContextWithAuth(r.Context(), info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose key role is below role. It must run
// after Middleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")
			info, ok := AuthFromContext(r.Context())
			if !ok {
				httputil.WriteAuthError(w, reqID, "Authentication required")
				return
			}
			if !info.HasRole(role) {
				slog.Warn("insufficient role", "key_id", info.KeyID, "role", info.Role, "required", role)
				httputil.WriteForbiddenError(w, reqID, "This action requires the "+role+" role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
