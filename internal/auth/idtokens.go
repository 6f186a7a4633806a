package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

// ExternalIdentity is the subset of provider claims the signup path
// needs. Provider identities are trusted as email-verified.
type ExternalIdentity struct {
	Issuer  string
	Subject string
	Email   string
	Name    string
	Picture string
}

func VerifyGoogleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalIdentity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return nil, errors.New("missing google client id")
	}

	payload, err := idtoken.Validate(ctx, tokenString, expectedAud)
	if err != nil {
		return nil, err
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	id := &ExternalIdentity{
		Issuer:  payload.Issuer,
		Subject: payload.Subject,
		Email:   strings.TrimSpace(strings.ToLower(stringClaim(payload.Claims, "email"))),
		Name:    stringClaim(payload.Claims, "name"),
		Picture: stringClaim(payload.Claims, "picture"),
	}
	if id.Email == "" {
		return nil, errors.New("id token has no email claim")
	}
	return id, nil
}

func VerifyAppleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalIdentity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return nil, errors.New("missing apple service id")
	}

	client := validator.NewClient()
	idTok, err := client.VerifyIdToken(expectedAud, tokenString)
	if err != nil {
		return nil, err
	}
	if idTok.Iss != "https://appleid.apple.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", idTok.Iss)
	}

	email := strings.TrimSpace(strings.ToLower(idTok.Email))
	if email == "" {
		return nil, errors.New("id token has no email claim")
	}

	_ = ctx
	return &ExternalIdentity{
		Issuer:  idTok.Iss,
		Subject: idTok.Sub,
		Email:   email,
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	if raw, ok := claims[key]; ok {
		if v, ok := raw.(string); ok {
			return v
		}
	}
	return ""
}
