package httpapi

import (
	"context"
	"net/http"

	"accounthub/internal/auth"
	"accounthub/internal/domain"
)

type authCtxKey int

const sessionViewKey authCtxKey = iota

// requireAuth gates a handler on a valid session artifact. The check
// is stateless: no user row is read here, the handler works from the
// claims (or re-reads when freshness matters).
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(auth.SessionCookieName)
		if err != nil || c.Value == "" {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		claims, err := a.sessions.Validate(c.Value)
		if err != nil {
			// Absent and expired artifacts look identical to the
			// caller.
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionViewKey, claims.View())
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func CurrentSession(ctx context.Context) (auth.SessionView, bool) {
	v, ok := ctx.Value(sessionViewKey).(auth.SessionView)
	return v, ok
}
