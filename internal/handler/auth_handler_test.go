package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/bookswap/internal/middleware"
	"github.com/hitoshi/bookswap/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signupFn      func(ctx context.Context, email, password, fullName string) (*model.AuthUser, error)
	loginFn       func(ctx context.Context, email, password string) (*model.AuthUser, *model.Session, error)
	logoutFn      func(ctx context.Context, token string) error
	currentUserFn func(ctx context.Context, token string) (*model.AuthUser, error)
	refreshFn     func(ctx context.Context, refreshToken string) (*model.Session, error)
}

func (m *mockAuthService) Signup(ctx context.Context, email, password, fullName string) (*model.AuthUser, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, password, fullName)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.AuthUser, *model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, token string) (*model.AuthUser, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, token)
	}
	return nil, nil
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return nil, nil
}

// withIdentity はリクエストコンテキストに認証済みユーザーを注入する。
func withIdentity(req *http.Request, identity *model.Identity) *http.Request {
	return req.WithContext(middleware.ContextWithIdentity(req.Context(), identity))
}

// jsonBody はJSONエンコードしたリクエストボディを生成する。
func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	return buf
}

// decodeErrorBody はエラーレスポンスボディをデコードする。
func decodeErrorBody(t *testing.T, resp *http.Response) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// --- POST /auth/signup テスト ---

func TestAuthHandler_Signup_Success(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(_ context.Context, email, password, fullName string) (*model.AuthUser, error) {
			if email != "gmason@gmu.edu" {
				t.Errorf("email = %q, want gmason@gmu.edu", email)
			}
			if password != "secret123" {
				t.Errorf("password = %q, want secret123", password)
			}
			if fullName != "George Mason" {
				t.Errorf("fullName = %q, want George Mason", fullName)
			}
			return &model.AuthUser{ID: "user-1", Email: email, FullName: fullName}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", jsonBody(t, signupRequest{
		Email:    "gmason@gmu.edu",
		Password: "secret123",
		FullName: "George Mason",
	}))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body signupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.UserID != "user-1" {
		t.Errorf("user_id = %q, want user-1", body.UserID)
	}
	if body.EmailConfirmed {
		t.Error("email_confirmed = true, want false")
	}
}

func TestAuthHandler_Signup_RejectsNonGMUEmail(t *testing.T) {
	called := false
	svc := &mockAuthService{
		signupFn: func(_ context.Context, _, _, _ string) (*model.AuthUser, error) {
			called = true
			return nil, nil
		},
	}
	h := NewAuthHandler(svc)

	tests := []string{
		"someone@gmail.com",
		"someone@gmu.edu.evil.com",
		"someone@GMU.EDU",
		"",
	}
	for _, email := range tests {
		req := httptest.NewRequest(http.MethodPost, "/auth/signup", jsonBody(t, signupRequest{
			Email:    email,
			Password: "secret123",
			FullName: "Someone",
		}))
		w := httptest.NewRecorder()
		h.Signup(w, req)

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("email %q: status = %d, want %d", email, w.Result().StatusCode, http.StatusBadRequest)
		}
	}
	if called {
		t.Error("service should not be called for invalid email")
	}
}

func TestAuthHandler_Signup_RejectsShortPassword(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", jsonBody(t, signupRequest{
		Email:    "gmason@gmu.edu",
		Password: "12345",
		FullName: "George Mason",
	}))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if body := decodeErrorBody(t, resp); body.Code != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeValidation)
	}
}

func TestAuthHandler_Signup_PasswordLengthCountsRunes(t *testing.T) {
	called := false
	svc := &mockAuthService{
		signupFn: func(_ context.Context, _, _, _ string) (*model.AuthUser, error) {
			called = true
			return &model.AuthUser{ID: "user-1"}, nil
		},
	}
	h := NewAuthHandler(svc)

	// 5文字のマルチバイトパスワード（15バイト）はバイト数では6を超えるが拒否される
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", jsonBody(t, signupRequest{
		Email:    "gmason@gmu.edu",
		Password: "ぱすわーど",
		FullName: "George Mason",
	}))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if called {
		t.Error("service should not be called for short password")
	}

	// 6文字ちょうどのマルチバイトパスワードは通る
	req = httptest.NewRequest(http.MethodPost, "/auth/signup", jsonBody(t, signupRequest{
		Email:    "gmason@gmu.edu",
		Password: "ぱすわーど六",
		FullName: "George Mason",
	}))
	w = httptest.NewRecorder()
	h.Signup(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestAuthHandler_Signup_FullNameLengthCountsRunes(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(_ context.Context, _, _, _ string) (*model.AuthUser, error) {
			return &model.AuthUser{ID: "user-1"}, nil
		},
	}
	h := NewAuthHandler(svc)

	// 100文字のマルチバイト氏名（300バイト）は文字数では上限内
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", jsonBody(t, signupRequest{
		Email:    "gmason@gmu.edu",
		Password: "secret123",
		FullName: strings.Repeat("名", 100),
	}))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("100-rune name: status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	// 101文字は拒否される
	req = httptest.NewRequest(http.MethodPost, "/auth/signup", jsonBody(t, signupRequest{
		Email:    "gmason@gmu.edu",
		Password: "secret123",
		FullName: strings.Repeat("名", 101),
	}))
	w = httptest.NewRecorder()
	h.Signup(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("101-rune name: status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_Signup_DuplicateEmailReturns400(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(_ context.Context, _, _, _ string) (*model.AuthUser, error) {
			return nil, model.NewDuplicateEmailError()
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", jsonBody(t, signupRequest{
		Email:    "gmason@gmu.edu",
		Password: "secret123",
		FullName: "George Mason",
	}))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if body := decodeErrorBody(t, resp); body.Code != model.ErrCodeConflict {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeConflict)
	}
}

func TestAuthHandler_Signup_MalformedBodyReturns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- POST /auth/login テスト ---

func TestAuthHandler_Login_ReturnsTokenPair(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, email, password string) (*model.AuthUser, *model.Session, error) {
			return &model.AuthUser{ID: "user-1", Email: email, FullName: "George Mason", EmailConfirmed: true},
				&model.Session{AccessToken: "access-abc", RefreshToken: "refresh-xyz", ExpiresIn: 3600},
				nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(t, loginRequest{
		Email:    "gmason@gmu.edu",
		Password: "secret123",
	}))
	w := httptest.NewRecorder()
	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.AccessToken != "access-abc" {
		t.Errorf("access_token = %q, want access-abc", body.AccessToken)
	}
	if body.RefreshToken != "refresh-xyz" {
		t.Errorf("refresh_token = %q, want refresh-xyz", body.RefreshToken)
	}
	if body.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", body.TokenType)
	}
}

func TestAuthHandler_Login_InvalidCredentialsReturns401(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, _, _ string) (*model.AuthUser, *model.Session, error) {
			return nil, nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(t, loginRequest{
		Email:    "gmason@gmu.edu",
		Password: "wrong",
	}))
	w := httptest.NewRecorder()
	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if body := decodeErrorBody(t, resp); body.Message != "Invalid email or password" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestAuthHandler_Login_UnverifiedEmailReturns403(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, _, _ string) (*model.AuthUser, *model.Session, error) {
			return nil, nil, model.NewEmailNotVerifiedError()
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(t, loginRequest{
		Email:    "gmason@gmu.edu",
		Password: "secret123",
	}))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestAuthHandler_Login_MissingFieldsReturns400(t *testing.T) {
	called := false
	svc := &mockAuthService{
		loginFn: func(_ context.Context, _, _ string) (*model.AuthUser, *model.Session, error) {
			called = true
			return nil, nil, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(t, loginRequest{Email: "gmason@gmu.edu"}))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if called {
		t.Error("service should not be called with missing fields")
	}
}

// --- POST /auth/logout テスト ---

func TestAuthHandler_Logout_Success(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(_ context.Context, token string) error {
			if token != "access-abc" {
				t.Errorf("token = %q, want access-abc", token)
			}
			return nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = withIdentity(req, &model.Identity{UserID: "user-1", Email: "gmason@gmu.edu", Token: "access-abc"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["message"] != "Logged out successfully" {
		t.Errorf("message = %q", body["message"])
	}
	if body["user_id"] != "user-1" {
		t.Errorf("user_id = %q, want user-1", body["user_id"])
	}
}

func TestAuthHandler_Logout_WithoutIdentityReturns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- GET /auth/me テスト ---

func TestAuthHandler_Me_ReturnsCurrentUser(t *testing.T) {
	svc := &mockAuthService{
		currentUserFn: func(_ context.Context, token string) (*model.AuthUser, error) {
			return &model.AuthUser{
				ID:             "user-1",
				Email:          "gmason@gmu.edu",
				FullName:       "George Mason",
				EmailConfirmed: true,
				CreatedAt:      "2025-08-01T12:00:00Z",
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = withIdentity(req, &model.Identity{UserID: "user-1", Email: "gmason@gmu.edu", Token: "access-abc"})
	w := httptest.NewRecorder()
	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.UserID != "user-1" || !body.EmailConfirmed {
		t.Errorf("unexpected body: %+v", body)
	}
}

// --- POST /auth/refresh テスト ---

func TestAuthHandler_Refresh_ReturnsNewTokenPair(t *testing.T) {
	svc := &mockAuthService{
		refreshFn: func(_ context.Context, refreshToken string) (*model.Session, error) {
			if refreshToken != "refresh-xyz" {
				t.Errorf("refreshToken = %q, want refresh-xyz", refreshToken)
			}
			return &model.Session{AccessToken: "access-new", RefreshToken: "refresh-new", ExpiresIn: 3600}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", jsonBody(t, refreshRequest{RefreshToken: "refresh-xyz"}))
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.AccessToken != "access-new" {
		t.Errorf("access_token = %q, want access-new", body.AccessToken)
	}
}

func TestAuthHandler_Refresh_MissingTokenReturns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", jsonBody(t, refreshRequest{}))
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_Refresh_InvalidTokenReturns401(t *testing.T) {
	svc := &mockAuthService{
		refreshFn: func(_ context.Context, _ string) (*model.Session, error) {
			return nil, model.NewInvalidRefreshTokenError()
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", jsonBody(t, refreshRequest{RefreshToken: "stale"}))
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
