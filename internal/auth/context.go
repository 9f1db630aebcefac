package auth

import "context"

type contextKey string

const authContextKey contextKey = "aegis_admin_auth"

// AuthInfo holds the identity of the admin key behind a request.
type AuthInfo struct {
	KeyID    string
	Name     string
	Role     string
	TeamID   string
	RPMLimit *int
}

// HasRole reports whether the key's role is at least role.
func (a *AuthInfo) HasRole(role string) bool {
	return roleRank[a.Role] >= roleRank[role] && roleRank[role] > 0
}

func ContextWithAuth(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authContextKey, info)
}

func AuthFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authContextKey).(*AuthInfo)
	return info, ok
}
