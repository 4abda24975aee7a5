// Package auth は認証基盤への委譲とベアラートークンの解決を提供する。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/bookswap/internal/model"
	"github.com/hitoshi/bookswap/internal/supabase"
)

// IdentityAPI は認証基盤が提供する操作のインターフェース。
// supabase.AuthClientの部分集合として定義する。
type IdentityAPI interface {
	SignUp(ctx context.Context, email, password, fullName string) (*model.AuthUser, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.AuthUser, *model.Session, error)
	SignOut(ctx context.Context, token string) error
	GetUser(ctx context.Context, token string) (*model.AuthUser, error)
	RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// JWTSecret はアクセストークンの署名検証キー。
	// 空の場合はローカル検証をスキップし、認証基盤への問い合わせのみで検証する。
	JWTSecret string
}

// Service は認証に関するビジネスロジックを提供する。
// トークンの真正性の最終判断は常に認証基盤に委譲する。
type Service struct {
	api       IdentityAPI
	jwtParser *jwt.Parser
	jwtSecret []byte
}

// NewService はServiceを生成する。
func NewService(api IdentityAPI, config ServiceConfig) *Service {
	var secret []byte
	if config.JWTSecret != "" {
		secret = []byte(config.JWTSecret)
	}
	return &Service{
		api:       api,
		jwtParser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		jwtSecret: secret,
	}
}

// Resolve はベアラートークンを認証済みユーザーに解決する。
// トークン欠落と無効トークンは別メッセージのUNAUTHENTICATEDとして区別される。
// 署名キーが設定されている場合は認証基盤へ問い合わせる前に
// 署名と有効期限をローカル検証して明らかに無効なトークンを弾く。
func (s *Service) Resolve(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, model.NewMissingCredentialsError()
	}

	if s.jwtSecret != nil {
		if err := s.verifyLocally(token); err != nil {
			slog.Debug("token rejected by local verification",
				slog.String("error", err.Error()),
			)
			return nil, model.NewInvalidTokenError()
		}
	}

	user, err := s.api.GetUser(ctx, token)
	if err != nil {
		var statusErr *supabase.APIStatusError
		if errors.As(err, &statusErr) && statusErr.IsClientError() {
			return nil, model.NewInvalidTokenError()
		}
		return nil, model.NewUpstreamError("authentication", err)
	}

	return &model.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Token:  token,
	}, nil
}

// ResolveOptional はトークンを解決するが、失敗してもエラーを返さない。
// 匿名アクセスを許可するエンドポイントで使用する。
func (s *Service) ResolveOptional(ctx context.Context, token string) *model.Identity {
	if token == "" {
		return nil
	}
	identity, err := s.Resolve(ctx, token)
	if err != nil {
		return nil
	}
	return identity
}

// verifyLocally はトークンの署名と有効期限を認証基盤に問い合わせずに検証する。
func (s *Service) verifyLocally(token string) error {
	_, err := s.jwtParser.Parse(token, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	})
	return err
}

// Signup は新規ユーザーを登録する。確認メールは認証基盤が自動送信する。
func (s *Service) Signup(ctx context.Context, email, password, fullName string) (*model.AuthUser, error) {
	user, err := s.api.SignUp(ctx, email, password, fullName)
	if err != nil {
		var statusErr *supabase.APIStatusError
		if errors.As(err, &statusErr) && statusErr.IsClientError() {
			if isDuplicateEmail(statusErr) {
				return nil, model.NewDuplicateEmailError()
			}
			return nil, model.NewSignupRejectedError(statusErr.Msg)
		}
		return nil, model.NewUpstreamError("signup", err)
	}
	if user == nil || user.ID == "" {
		return nil, model.NewSignupRejectedError("Email may already be registered.")
	}

	slog.Info("user signed up",
		slog.String("user_id", user.ID),
	)
	return user, nil
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
// メール未確認ユーザーは正しい資格情報でも拒否される。
func (s *Service) Login(ctx context.Context, email, password string) (*model.AuthUser, *model.Session, error) {
	user, session, err := s.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		var statusErr *supabase.APIStatusError
		if errors.As(err, &statusErr) && statusErr.IsClientError() {
			if isEmailNotConfirmed(statusErr) {
				return nil, nil, model.NewEmailNotVerifiedError()
			}
			return nil, nil, model.NewInvalidCredentialsError()
		}
		return nil, nil, model.NewUpstreamError("login", err)
	}
	if user == nil || session == nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	// 基盤側の設定によらずメール確認を必須にする
	if !user.EmailConfirmed {
		return nil, nil, model.NewEmailNotVerifiedError()
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)
	return user, session, nil
}

// Logout は現在のセッションを失効させる。
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.api.SignOut(ctx, token); err != nil {
		return model.NewUpstreamError("logout", err)
	}
	return nil
}

// CurrentUser はトークンから現在のユーザー情報を再取得する。
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.AuthUser, error) {
	user, err := s.api.GetUser(ctx, token)
	if err != nil {
		var statusErr *supabase.APIStatusError
		if errors.As(err, &statusErr) && statusErr.IsClientError() {
			return nil, model.NewInvalidTokenError()
		}
		return nil, model.NewUpstreamError("fetching user", err)
	}
	return user, nil
}

// Refresh はリフレッシュトークンを新しいセッションに交換する。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	session, err := s.api.RefreshSession(ctx, refreshToken)
	if err != nil {
		var statusErr *supabase.APIStatusError
		if errors.As(err, &statusErr) && statusErr.IsClientError() {
			return nil, model.NewInvalidRefreshTokenError()
		}
		return nil, model.NewUpstreamError("token refresh", err)
	}
	if session == nil || session.AccessToken == "" {
		return nil, model.NewInvalidRefreshTokenError()
	}
	return session, nil
}

// isDuplicateEmail はサインアップ拒否がメールアドレス重複によるものかを判定する。
func isDuplicateEmail(err *supabase.APIStatusError) bool {
	if err.ErrorCode == "user_already_exists" || err.ErrorCode == "email_exists" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Msg), "already registered")
}

// isEmailNotConfirmed はログイン拒否がメール未確認によるものかを判定する。
func isEmailNotConfirmed(err *supabase.APIStatusError) bool {
	if err.ErrorCode == "email_not_confirmed" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Msg), "not confirmed")
}

// AuthClientが本インターフェースを満たすことをコンパイル時に確認する。
var _ IdentityAPI = (*supabase.AuthClient)(nil)
