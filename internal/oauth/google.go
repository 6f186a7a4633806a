package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"accounthub/internal/auth"
)

// Google drives the browser redirect flow: a signed state is handed to
// the client, Google calls back with a code, and the exchanged
// id_token is verified against the client id.
type Google struct {
	cfg      *oauth2.Config
	stateKey []byte
}

func NewGoogle(clientID, clientSecret, redirectURL string, stateSecret []byte) *Google {
	keyCopy := make([]byte, len(stateSecret))
	copy(keyCopy, stateSecret)
	return &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleoauth.Endpoint,
		},
		stateKey: keyCopy,
	}
}

func (g *Google) Enabled() bool { return g != nil && g.cfg.ClientID != "" }

// AuthURL returns the consent-screen URL and the state value the
// callback must present.
func (g *Google) AuthURL() (string, string) {
	state := g.signState(uuid.NewString())
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), state
}

// Exchange trades the callback code for tokens and returns the
// verified identity from the id_token. The state must verify first.
func (g *Google) Exchange(ctx context.Context, state, code string) (*auth.ExternalIdentity, error) {
	if !g.verifyState(state) {
		return nil, errors.New("oauth state mismatch")
	}
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("missing oauth code")
	}

	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("token response has no id_token")
	}

	return auth.VerifyGoogleIDToken(ctx, rawIDToken, g.cfg.ClientID)
}

func (g *Google) signState(nonce string) string {
	mac := hmac.New(sha256.New, g.stateKey)
	_, _ = mac.Write([]byte(nonce))
	return nonce + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (g *Google) verifyState(state string) bool {
	nonce, sigB64, ok := strings.Cut(state, ".")
	if !ok || nonce == "" || sigB64 == "" {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, g.stateKey)
	_, _ = mac.Write([]byte(nonce))
	return hmac.Equal(mac.Sum(nil), sig)
}
