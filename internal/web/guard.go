package web

import (
	"net/http"
	"net/url"
	"strings"

	"accounthub/internal/auth"
)

// RouteClass is the static categorization the guard enforces. Anything
// not explicitly protected or auth-only is public, so new routes must
// be added to the protected list to be guarded.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteProtected
	RouteAuthOnly
)

var protectedPrefixes = []string{"/dashboard", "/profile", "/settings"}

var authOnlyPaths = map[string]bool{
	"/login":  true,
	"/signup": true,
}

func Classify(path string) RouteClass {
	for _, prefix := range protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return RouteProtected
		}
	}
	if authOnlyPaths[path] {
		return RouteAuthOnly
	}
	return RoutePublic
}

// Guard applies the session validity policy at the edge of every page
// request: protected pages bounce anonymous visitors to login with a
// callback back to where they were, and login/signup bounce
// authenticated visitors to the dashboard.
func (h *Handlers) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view, loggedIn := h.currentSession(r)

		switch Classify(r.URL.Path) {
		case RouteProtected:
			if !loggedIn {
				h.redirectToLogin(w, r)
				return
			}
		case RouteAuthOnly:
			if loggedIn {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
				return
			}
		}

		if loggedIn {
			r = r.WithContext(withPageSession(r.Context(), view))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) currentSession(r *http.Request) (auth.SessionView, bool) {
	c, err := r.Cookie(auth.SessionCookieName)
	if err != nil || c.Value == "" {
		return auth.SessionView{}, false
	}
	claims, err := h.sessions.Validate(c.Value)
	if err != nil {
		return auth.SessionView{}, false
	}
	return claims.View(), true
}

func (h *Handlers) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	callback := r.URL.Path
	if r.URL.RawQuery != "" {
		callback += "?" + r.URL.RawQuery
	}

	q := url.Values{}
	q.Set("callbackUrl", callback)
	// A session cookie that failed validation means the session
	// expired rather than never existed; the login page says so.
	if c, err := r.Cookie(auth.SessionCookieName); err == nil && c.Value != "" {
		q.Set("expired", "true")
	}

	http.Redirect(w, r, "/login?"+q.Encode(), http.StatusFound)
}
