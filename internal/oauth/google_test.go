package oauth

import (
	"context"
	"strings"
	"testing"
)

func TestGoogleEnabled(t *testing.T) {
	var unset *Google
	if unset.Enabled() {
		t.Fatalf("nil receiver must be disabled")
	}
	if NewGoogle("", "", "", nil).Enabled() {
		t.Fatalf("missing client id must be disabled")
	}
	if !NewGoogle("client-id", "secret", "https://app.example.com/cb", []byte("key")).Enabled() {
		t.Fatalf("configured client must be enabled")
	}
}

func TestGoogleAuthURLAndState(t *testing.T) {
	g := NewGoogle("client-id", "secret", "https://app.example.com/cb", []byte("state-key"))

	authURL, state := g.AuthURL()
	if !strings.Contains(authURL, "state="+strings.Split(state, ".")[0]) {
		t.Fatalf("auth url must carry the state: %s", authURL)
	}
	if !g.verifyState(state) {
		t.Fatalf("freshly minted state must verify")
	}

	// Tampered or foreign states fail.
	if g.verifyState(state + "x") {
		t.Fatalf("tampered state must not verify")
	}
	if g.verifyState("nonce-without-signature") {
		t.Fatalf("unsigned state must not verify")
	}
	other := NewGoogle("client-id", "secret", "https://app.example.com/cb", []byte("other-key"))
	if other.verifyState(state) {
		t.Fatalf("state signed with another key must not verify")
	}
}

func TestGoogleExchangeRejectsBadState(t *testing.T) {
	g := NewGoogle("client-id", "secret", "https://app.example.com/cb", []byte("state-key"))

	if _, err := g.Exchange(context.Background(), "forged", "code"); err == nil {
		t.Fatalf("forged state must be rejected before any network call")
	}

	_, state := g.AuthURL()
	if _, err := g.Exchange(context.Background(), state, "  "); err == nil {
		t.Fatalf("blank code must be rejected")
	}
}
