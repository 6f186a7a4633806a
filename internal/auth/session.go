package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"accounthub/internal/domain"
)

const SessionCookieName = "accounthub_session"

var ErrSessionInvalid = errors.New("session invalid")

// SessionClaims is the signed session artifact carried by the client.
// It is validated per request without a store lookup, so profile edits
// do not show up in it until the next sign-in.
type SessionClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	// Expires mirrors the exp claim as an RFC3339 string. Both are
	// checked on validation; if they disagree the earlier one wins.
	Expires string `json:"sexp,omitempty"`
	jwt.RegisteredClaims
}

// SessionView is the read-only projection handlers consume.
type SessionView struct {
	UserID    string
	Email     string
	Name      string
	AvatarURL string
	ExpiresAt time.Time
}

func (c SessionClaims) View() SessionView {
	v := SessionView{
		UserID:    c.Subject,
		Email:     c.Email,
		Name:      c.Name,
		AvatarURL: c.Picture,
	}
	if c.ExpiresAt != nil {
		v.ExpiresAt = c.ExpiresAt.Time
	}
	return v
}

type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionCodec(secret []byte, ttl time.Duration) SessionCodec {
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)
	return SessionCodec{secret: secretCopy, ttl: ttl, now: time.Now}
}

// WithNow returns a copy of the codec using the given clock.
func (c SessionCodec) WithNow(now func() time.Time) SessionCodec {
	c.now = now
	return c
}

func (c SessionCodec) TTL() time.Duration { return c.ttl }

// Issue signs a new session artifact for the user. The subject fields
// are copied from the account as it is right now; they are not
// refreshed afterwards.
func (c SessionCodec) Issue(u domain.User) (string, error) {
	now := c.now()
	expires := now.Add(c.ttl)

	claims := SessionClaims{
		Email:   u.Email,
		Name:    u.Name,
		Picture: u.AvatarURL,
		Expires: expires.UTC().Format(time.RFC3339),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a session artifact. It rejects the
// artifact if the signature fails, the exp claim is in the past, or
// the mirrored RFC3339 expiry is in the past.
func (c SessionCodec) Validate(tokenString string) (SessionClaims, error) {
	if tokenString == "" {
		return SessionClaims{}, ErrSessionInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	var claims SessionClaims
	token, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return SessionClaims{}, ErrSessionInvalid
	}

	if claims.Expires != "" {
		mirror, err := time.Parse(time.RFC3339, claims.Expires)
		if err != nil || mirror.Before(c.now()) {
			return SessionClaims{}, ErrSessionInvalid
		}
	}

	return claims, nil
}

func SetSessionCookie(w http.ResponseWriter, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
