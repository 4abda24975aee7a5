// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/bookswap/internal/middleware"
	"github.com/hitoshi/bookswap/internal/model"
)

const (
	passwordMinLength = 6
	fullNameMaxLength = 100
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, email, password, fullName string) (*model.AuthUser, error)
	Login(ctx context.Context, email, password string) (*model.AuthUser, *model.Session, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*model.AuthUser, error)
	Refresh(ctx context.Context, refreshToken string) (*model.Session, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
// 認証情報の管理はすべてホスティングされた認証基盤に委譲する。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// signupRequest はサインアップリクエストのボディ。
type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// signupResponse はサインアップ成功時のレスポンス。
type signupResponse struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	EmailConfirmed bool   `json:"email_confirmed"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。トークンペアをそのまま受け渡す。
type loginResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// refreshRequest はトークンリフレッシュリクエストのボディ。
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse はリフレッシュ成功時のレスポンス。
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// userResponse は現在ユーザー情報のレスポンス。
type userResponse struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	EmailConfirmed bool   `json:"email_confirmed"`
	CreatedAt      string `json:"created_at"`
}

// Signup は新規アカウントを登録する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	if !model.IsGMUEmail(req.Email) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("email", "must be a valid @gmu.edu address"))
		return
	}
	// 長さはバイト数ではなく文字数で数える
	if utf8.RuneCountInString(req.Password) < passwordMinLength {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("password", "must be at least 6 characters"))
		return
	}
	if req.FullName == "" || utf8.RuneCountInString(req.FullName) > fullNameMaxLength {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("full_name", "must be between 1 and 100 characters"))
		return
	}

	user, err := h.service.Signup(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, signupResponse{
		Message:        "Account created. Check your email to confirm your address.",
		UserID:         user.ID,
		Email:          user.Email,
		EmailConfirmed: user.EmailConfirmed,
	})
}

// Login はメールアドレスとパスワードでログインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("credentials", "email and password are required"))
		return
	}

	user, session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, loginResponse{
		UserID:       user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		TokenType:    "bearer",
	})
}

// Logout は現在のアクセストークンを失効させる。
// POST /auth/logout（要認証）
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewMissingCredentialsError())
		return
	}

	if err := h.service.Logout(r.Context(), identity.Token); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
		"user_id": identity.UserID,
	})
}

// Me は現在の認証済みユーザー情報を返す。
// GET /auth/me（要認証）
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewMissingCredentialsError())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), identity.Token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, userResponse{
		UserID:         user.ID,
		Email:          user.Email,
		FullName:       user.FullName,
		EmailConfirmed: user.EmailConfirmed,
		CreatedAt:      user.CreatedAt,
	})
}

// Refresh はリフレッシュトークンで新しいトークンペアを取得する。
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	if req.RefreshToken == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("refresh_token", "is required"))
		return
	}

	session, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		TokenType:    "bearer",
	})
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeInvalidBodyResponse はリクエストボディ解析失敗時のレスポンスを書き込む。
func writeInvalidBodyResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     model.ErrCodeValidation,
		Message:  "Request body could not be parsed",
		Category: "validation",
		Action:   "Send a well-formed JSON body.",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, middleware.StatusForAPIError(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
