package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"accounthub/internal/auth"
	"accounthub/internal/domain"
	"accounthub/internal/service"
)

// memStore is an in-memory users+tokens store for exercising the full
// handler stack without Postgres.
type memStore struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*domain.UserWithPassword // keyed by email
	tokens map[string]domain.AuthToken         // keyed by token hash
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]*domain.UserWithPassword),
		tokens: make(map[string]domain.AuthToken),
	}
}

func (m *memStore) CreateUser(_ context.Context, email, name, passwordHash string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	m.nextID++
	u := &domain.UserWithPassword{
		User:         domain.User{ID: fmt.Sprintf("user-%d", m.nextID), Email: email, Name: name},
		PasswordHash: passwordHash,
	}
	m.users[email] = u
	return u.User, nil
}

func (m *memStore) CreateOAuthUser(_ context.Context, email, name, avatarURL string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	m.nextID++
	now := time.Now()
	u := &domain.UserWithPassword{
		User: domain.User{
			ID:              fmt.Sprintf("user-%d", m.nextID),
			Email:           email,
			Name:            name,
			AvatarURL:       avatarURL,
			EmailVerifiedAt: &now,
		},
	}
	m.users[email] = u
	return u.User, nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u.User, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (domain.UserWithPassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	return *u, nil
}

func (m *memStore) GetUserWithPasswordByID(_ context.Context, id string) (domain.UserWithPassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return *u, nil
		}
	}
	return domain.UserWithPassword{}, domain.ErrNotFound
}

func (m *memStore) SetEmailVerified(_ context.Context, email string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return domain.ErrNotFound
	}
	u.EmailVerifiedAt = &when
	return nil
}

func (m *memStore) SetPasswordHash(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) UpdateName(_ context.Context, userID, name string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			u.Name = name
			return u.User, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memStore) CreateToken(_ context.Context, token domain.AuthToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *memStore) GetToken(_ context.Context, tokenHash string, purpose domain.TokenPurpose) (domain.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tokenHash]
	if !ok || token.Purpose != purpose {
		return domain.AuthToken{}, domain.ErrNotFound
	}
	return token, nil
}

func (m *memStore) ClaimToken(_ context.Context, tokenHash string, purpose domain.TokenPurpose, now time.Time) (domain.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tokenHash]
	if !ok || token.Purpose != purpose || !token.ExpiresAt.After(now) {
		return domain.AuthToken{}, domain.ErrNotFound
	}
	delete(m.tokens, tokenHash)
	return token, nil
}

func (m *memStore) DeleteToken(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, tokenHash)
	return nil
}

func (m *memStore) DeleteTokensForIdentifier(_ context.Context, identifier string, purpose domain.TokenPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, token := range m.tokens {
		if token.Identifier == identifier && token.Purpose == purpose {
			delete(m.tokens, hash)
		}
	}
	return nil
}

func testSessionCodec() auth.SessionCodec {
	return auth.NewSessionCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
}

func newTestRouter(t *testing.T) (http.Handler, *memStore) {
	t.Helper()
	store := newMemStore()

	tokenSvc := &service.TokenService{Tokens: store, TokenTTL: 24 * time.Hour}
	authSvc := &service.AuthService{Users: store, Tokens: tokenSvc}

	return NewRouter(RouterOpts{
		Auth:         authSvc,
		Profile:      &service.ProfileService{Users: store},
		Mail:         &service.MailService{},
		Sessions:     testSessionCodec(),
		ExposeTokens: true,
	}), store
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestSignupVerifyLoginFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	// Signup.
	rr := doJSON(t, router, http.MethodPost, "/v1/auth/signup",
		`{"name":"Jane","email":"Jane@Example.com","password":"Valid1Pass!"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status: %d body: %s", rr.Code, rr.Body.String())
	}
	var signup struct {
		Success             bool   `json:"success"`
		VerificationPending bool   `json:"verification_pending"`
		EmailSent           bool   `json:"email_sent"`
		VerificationToken   string `json:"verification_token"`
		User                struct {
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
		} `json:"user"`
	}
	decodeBody(t, rr, &signup)
	if !signup.Success || !signup.VerificationPending || signup.EmailSent {
		t.Fatalf("unexpected signup response: %+v", signup)
	}
	if signup.User.Email != "jane@example.com" {
		t.Fatalf("email must be normalized, got %s", signup.User.Email)
	}
	if signup.User.EmailVerified {
		t.Fatalf("new accounts start unverified")
	}
	if signup.VerificationToken == "" {
		t.Fatalf("dev mode must expose the verification token")
	}

	// Login before verification is refused, with its own message.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/login",
		`{"email":"jane@example.com","password":"Valid1Pass!"}`, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unverified login status: %d", rr.Code)
	}
	var envelope errorEnvelope
	decodeBody(t, rr, &envelope)
	if envelope.Code != "email_not_verified" {
		t.Fatalf("unexpected error code: %s", envelope.Code)
	}

	// Verify.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/verify-email",
		fmt.Sprintf(`{"token":%q}`, signup.VerificationToken), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("verify status: %d body: %s", rr.Code, rr.Body.String())
	}

	// The token is single-use.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/verify-email",
		fmt.Sprintf(`{"token":%q}`, signup.VerificationToken), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("second verify status: %d", rr.Code)
	}

	// Login now succeeds and sets the session cookie.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/login",
		`{"email":"jane@example.com","password":"Valid1Pass!"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status: %d body: %s", rr.Code, rr.Body.String())
	}
	cookie := sessionCookie(t, rr)
	if !cookie.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly")
	}

	// The cookie authenticates /v1/users/me.
	rr = doJSON(t, router, http.MethodGet, "/v1/users/me", "", []*http.Cookie{cookie})
	if rr.Code != http.StatusOK {
		t.Fatalf("users/me status: %d", rr.Code)
	}
	var me userResponse
	decodeBody(t, rr, &me)
	if me.Email != "jane@example.com" || !me.EmailVerified {
		t.Fatalf("unexpected me response: %+v", me)
	}

	// Logout clears the cookie.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/logout", "", []*http.Cookie{cookie})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("logout status: %d", rr.Code)
	}
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("logout must expire the session cookie")
	}
}

func TestSignupValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing fields", `{"email":"jane@example.com"}`, "validation_error"},
		{"bad email", `{"name":"Jane","email":"not-an-email","password":"Valid1Pass!"}`, "validation_error"},
		{"weak password", `{"name":"Jane","email":"jane@example.com","password":"weak"}`, "weak_password"},
		{"bad json", `{"name":`, "bad_json"},
		{"unknown field", `{"name":"Jane","email":"jane@example.com","password":"Valid1Pass!","admin":true}`, "bad_json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPost, "/v1/auth/signup", tt.body, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: %d", rr.Code)
			}
			var envelope errorEnvelope
			decodeBody(t, rr, &envelope)
			if envelope.Code != tt.code {
				t.Fatalf("code: %s want %s", envelope.Code, tt.code)
			}
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"name":"Jane","email":"jane@example.com","password":"Valid1Pass!"}`
	if rr := doJSON(t, router, http.MethodPost, "/v1/auth/signup", body, nil); rr.Code != http.StatusCreated {
		t.Fatalf("first signup status: %d", rr.Code)
	}
	rr := doJSON(t, router, http.MethodPost, "/v1/auth/signup", body, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status: %d", rr.Code)
	}
}

func TestLoginIndistinguishableFailures(t *testing.T) {
	router, store := newTestRouter(t)

	// A verified credentials account and a password-less OAuth one.
	signupAndVerify(t, router, "jane@example.com", "Valid1Pass!")
	if _, err := store.CreateOAuthUser(context.Background(), "oauth@example.com", "O", ""); err != nil {
		t.Fatalf("seed oauth user: %v", err)
	}

	cases := []string{
		`{"email":"nobody@example.com","password":"Valid1Pass!"}`,
		`{"email":"jane@example.com","password":"WrongPass1!"}`,
		`{"email":"oauth@example.com","password":"Valid1Pass!"}`,
	}

	var bodies []string
	for _, body := range cases {
		rr := doJSON(t, router, http.MethodPost, "/v1/auth/login", body, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status for %s: %d", body, rr.Code)
		}
		bodies = append(bodies, rr.Body.String())
	}
	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Fatalf("login failures must be indistinguishable:\n%s\n%s", bodies[0], bodies[i])
		}
	}
}

func TestForgotResetPasswordFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	signupAndVerify(t, router, "jane@example.com", "Valid1Pass!")

	// Known and unknown emails get the same response body modulo the
	// dev-exposed token.
	rr := doJSON(t, router, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"jane@example.com"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("forgot status: %d", rr.Code)
	}
	var forgot messageResponse
	decodeBody(t, rr, &forgot)
	if forgot.Message != genericResetMsg || forgot.ResetToken == "" {
		t.Fatalf("unexpected forgot response: %+v", forgot)
	}

	rr = doJSON(t, router, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"nobody@example.com"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("forgot unknown status: %d", rr.Code)
	}
	var forgotUnknown messageResponse
	decodeBody(t, rr, &forgotUnknown)
	if forgotUnknown.Message != genericResetMsg || forgotUnknown.ResetToken != "" {
		t.Fatalf("unknown email must get the same message and no token: %+v", forgotUnknown)
	}

	// Weak replacement password is rejected before the token is spent.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/reset-password",
		fmt.Sprintf(`{"token":%q,"password":"weak"}`, forgot.ResetToken), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("weak reset status: %d", rr.Code)
	}

	// Reset.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/reset-password",
		fmt.Sprintf(`{"token":%q,"password":"NewValid1Pass!"}`, forgot.ResetToken), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status: %d body: %s", rr.Code, rr.Body.String())
	}

	// The token is spent.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/reset-password",
		fmt.Sprintf(`{"token":%q,"password":"OtherValid1Pass!"}`, forgot.ResetToken), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("reused reset status: %d", rr.Code)
	}

	// Old password is gone, new one works.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/login",
		`{"email":"jane@example.com","password":"Valid1Pass!"}`, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("old password login status: %d", rr.Code)
	}
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/login",
		`{"email":"jane@example.com","password":"NewValid1Pass!"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("new password login status: %d", rr.Code)
	}
}

func TestForgotPasswordReissueInvalidatesPrior(t *testing.T) {
	router, _ := newTestRouter(t)
	signupAndVerify(t, router, "jane@example.com", "Valid1Pass!")

	first := requestResetToken(t, router, "jane@example.com")
	second := requestResetToken(t, router, "jane@example.com")

	rr := doJSON(t, router, http.MethodPost, "/v1/auth/reset-password",
		fmt.Sprintf(`{"token":%q,"password":"NewValid1Pass!"}`, first), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("superseded token status: %d", rr.Code)
	}

	rr = doJSON(t, router, http.MethodPost, "/v1/auth/reset-password",
		fmt.Sprintf(`{"token":%q,"password":"NewValid1Pass!"}`, second), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("latest token status: %d body: %s", rr.Code, rr.Body.String())
	}
}

func TestResendVerification(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/v1/auth/signup",
		`{"name":"Jane","email":"jane@example.com","password":"Valid1Pass!"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status: %d", rr.Code)
	}
	var signup struct {
		VerificationToken string `json:"verification_token"`
	}
	decodeBody(t, rr, &signup)

	// Reissue invalidates the signup token.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/resend-verification",
		`{"email":"jane@example.com"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("resend status: %d body: %s", rr.Code, rr.Body.String())
	}
	var resend messageResponse
	decodeBody(t, rr, &resend)
	if resend.VerificationToken == "" {
		t.Fatalf("dev mode must expose the reissued token")
	}

	rr = doJSON(t, router, http.MethodPost, "/v1/auth/verify-email",
		fmt.Sprintf(`{"token":%q}`, signup.VerificationToken), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("superseded verification token status: %d", rr.Code)
	}
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/verify-email",
		fmt.Sprintf(`{"token":%q}`, resend.VerificationToken), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reissued verification token status: %d", rr.Code)
	}

	// Already verified now.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/resend-verification",
		`{"email":"jane@example.com"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("resend verified status: %d", rr.Code)
	}
	var verified messageResponse
	decodeBody(t, rr, &verified)
	if verified.Message != "This email is already verified. You can login now." {
		t.Fatalf("unexpected message: %s", verified.Message)
	}

	// Unknown email stays generic.
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/resend-verification",
		`{"email":"nobody@example.com"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("resend unknown status: %d", rr.Code)
	}
	var unknown messageResponse
	decodeBody(t, rr, &unknown)
	if unknown.Message != genericResendMsg || unknown.VerificationToken != "" {
		t.Fatalf("unexpected response for unknown email: %+v", unknown)
	}
}

func TestProtectedEndpointsRequireSession(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, tt := range []struct {
		method string
		target string
	}{
		{http.MethodGet, "/v1/users/me"},
		{http.MethodPatch, "/v1/users/me"},
		{http.MethodPost, "/v1/auth/change-password"},
	} {
		rr := doJSON(t, router, tt.method, tt.target, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s status: %d", tt.method, tt.target, rr.Code)
		}
	}

	// A garbage cookie is no better.
	bad := &http.Cookie{Name: auth.SessionCookieName, Value: "not-a-session"}
	rr := doJSON(t, router, http.MethodGet, "/v1/users/me", "", []*http.Cookie{bad})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage cookie status: %d", rr.Code)
	}
}

func TestGoogleEndpointsUnconfigured(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/v1/auth/google", `{"id_token":"x"}`, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("google login status: %d", rr.Code)
	}
	rr = doJSON(t, router, http.MethodGet, "/v1/auth/google/start", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("google start status: %d", rr.Code)
	}
	rr = doJSON(t, router, http.MethodPost, "/v1/auth/apple", `{"id_token":"x"}`, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("apple login status: %d", rr.Code)
	}
}

func TestV1UnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/v1/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rr.Code)
	}
}

// signupAndVerify drives the public endpoints to a verified account.
func signupAndVerify(t *testing.T, router http.Handler, email, password string) {
	t.Helper()

	rr := doJSON(t, router, http.MethodPost, "/v1/auth/signup",
		fmt.Sprintf(`{"name":"Jane","email":%q,"password":%q}`, email, password), nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status: %d body: %s", rr.Code, rr.Body.String())
	}
	var signup struct {
		VerificationToken string `json:"verification_token"`
	}
	decodeBody(t, rr, &signup)

	rr = doJSON(t, router, http.MethodPost, "/v1/auth/verify-email",
		fmt.Sprintf(`{"token":%q}`, signup.VerificationToken), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("verify status: %d body: %s", rr.Code, rr.Body.String())
	}
}

func requestResetToken(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	rr := doJSON(t, router, http.MethodPost, "/v1/auth/forgot-password",
		fmt.Sprintf(`{"email":%q}`, email), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("forgot status: %d", rr.Code)
	}
	var resp messageResponse
	decodeBody(t, rr, &resp)
	if resp.ResetToken == "" {
		t.Fatalf("expected an exposed reset token")
	}
	return resp.ResetToken
}

func loginFor(t *testing.T, router http.Handler, email, password string) *http.Cookie {
	t.Helper()
	rr := doJSON(t, router, http.MethodPost, "/v1/auth/login",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status: %d body: %s", rr.Code, rr.Body.String())
	}
	return sessionCookie(t, rr)
}
