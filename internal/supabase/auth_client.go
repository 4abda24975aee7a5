package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bookswap/internal/model"
)

// UpstreamRecorder は外部サービス呼び出しの結果を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。nilの場合は記録しない。
type UpstreamRecorder interface {
	RecordUpstreamRequest(service, outcome string)
}

// AuthClient はGoTrue互換の認証APIクライアント。
// サインアップ、パスワード認証、サインアウト、ユーザー取得、
// セッションリフレッシュの各エンドポイントを呼び出す。
type AuthClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
	apiKey     string
	recorder   UpstreamRecorder
}

// NewAuthClient はAuthClientの新しいインスタンスを生成する。
// baseURLにはSupabaseプロジェクトURL（例: https://xyz.supabase.co）を指定する。
func NewAuthClient(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey string, recorder UpstreamRecorder) *AuthClient {
	return &AuthClient{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		apiKey:     apiKey,
		recorder:   recorder,
	}
}

// authUserPayload はGoTrueが返すユーザーオブジェクト。
type authUserPayload struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	EmailConfirmedAt string `json:"email_confirmed_at"`
	CreatedAt        string `json:"created_at"`
	UserMetadata     struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

// sessionPayload はGoTrueが返すセッションオブジェクト。
// メール確認が不要な設定ではサインアップ応答にも含まれる。
type sessionPayload struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int              `json:"expires_in"`
	User         *authUserPayload `json:"user"`
}

// signUpPayload はサインアップ応答。メール確認が必要な設定では
// ユーザーオブジェクトがトップレベルに返り、不要な設定ではセッションに包まれる。
type signUpPayload struct {
	authUserPayload
	AccessToken string           `json:"access_token"`
	User        *authUserPayload `json:"user"`
}

// authErrorPayload はGoTrueのエラー応答。バージョンによりフィールド名が異なる。
type authErrorPayload struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

// SignUp は新規ユーザーを登録する。full_nameはユーザーメタデータとして保存される。
func (c *AuthClient) SignUp(ctx context.Context, email, password, fullName string) (*model.AuthUser, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data": map[string]string{
			"full_name": fullName,
		},
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body)
	if err != nil {
		return nil, err
	}

	var payload signUpPayload
	if err := json.Unmarshal(resp, &payload); err != nil {
		return nil, fmt.Errorf("サインアップ応答のパースに失敗しました: %w", err)
	}

	user := payload.authUserPayload
	if payload.AccessToken != "" && payload.User != nil {
		user = *payload.User
	}
	return toAuthUser(&user), nil
}

// SignInWithPassword はメールアドレスとパスワードで認証し、セッションを発行する。
func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*model.AuthUser, *model.Session, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body)
	if err != nil {
		return nil, nil, err
	}

	var payload sessionPayload
	if err := json.Unmarshal(resp, &payload); err != nil {
		return nil, nil, fmt.Errorf("ログイン応答のパースに失敗しました: %w", err)
	}
	if payload.User == nil {
		return nil, nil, fmt.Errorf("ログイン応答にユーザーが含まれていません")
	}

	return toAuthUser(payload.User), toSession(&payload), nil
}

// SignOut は指定トークンのセッションを失効させる。
func (c *AuthClient) SignOut(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", token, nil)
	return err
}

// GetUser はアクセストークンを検証し、対応するユーザーを返す。
// 無効なトークンにはAPIStatusError(401)が返る。
func (c *AuthClient) GetUser(ctx context.Context, token string) (*model.AuthUser, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/v1/user", token, nil)
	if err != nil {
		return nil, err
	}

	var payload authUserPayload
	if err := json.Unmarshal(resp, &payload); err != nil {
		return nil, fmt.Errorf("ユーザー応答のパースに失敗しました: %w", err)
	}
	return toAuthUser(&payload), nil
}

// RefreshSession はリフレッシュトークンを新しいセッションに交換する。
func (c *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	body := map[string]string{
		"refresh_token": refreshToken,
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body)
	if err != nil {
		return nil, err
	}

	var payload sessionPayload
	if err := json.Unmarshal(resp, &payload); err != nil {
		return nil, fmt.Errorf("リフレッシュ応答のパースに失敗しました: %w", err)
	}
	return toSession(&payload), nil
}

// do は認証APIへのHTTPリクエストを実行し、2xxの場合にボディを返す。
// userTokenが空でない場合はAuthorizationヘッダーに設定する。
func (c *AuthClient) do(ctx context.Context, method, path, userToken string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userToken != "" {
		req.Header.Set("Authorization", "Bearer "+userToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record("auth", "network_error")
		c.logger.Error("認証APIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record("auth", "read_error")
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.record("auth", fmt.Sprintf("status_%d", resp.StatusCode))
		c.logger.Warn("認証APIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, decodeAuthError(resp.StatusCode, raw)
	}

	c.record("auth", "ok")
	return raw, nil
}

func (c *AuthClient) record(service, outcome string) {
	if c.recorder != nil {
		c.recorder.RecordUpstreamRequest(service, outcome)
	}
}

// decodeAuthError はGoTrueのエラー応答をAPIStatusErrorに変換する。
func decodeAuthError(statusCode int, raw []byte) *APIStatusError {
	var payload authErrorPayload
	msg := string(raw)
	errorCode := ""
	if err := json.Unmarshal(raw, &payload); err == nil {
		errorCode = payload.ErrorCode
		switch {
		case payload.Msg != "":
			msg = payload.Msg
		case payload.ErrorDescription != "":
			msg = payload.ErrorDescription
		case payload.Message != "":
			msg = payload.Message
		}
	}
	return &APIStatusError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Msg:        msg,
	}
}

func toAuthUser(p *authUserPayload) *model.AuthUser {
	return &model.AuthUser{
		ID:             p.ID,
		Email:          p.Email,
		FullName:       p.UserMetadata.FullName,
		EmailConfirmed: p.EmailConfirmedAt != "",
		CreatedAt:      p.CreatedAt,
	}
}

func toSession(p *sessionPayload) *model.Session {
	return &model.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
	}
}
