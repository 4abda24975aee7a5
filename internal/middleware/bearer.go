package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/bookswap/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenResolver はベアラートークンの解決に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*model.Identity, error)
	ResolveOptional(ctx context.Context, token string) *model.Identity
}

// ExtractBearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// ヘッダーが無い、またはBearer形式でない場合は空文字列を返す。
func ExtractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// NewAuthMiddleware はベアラートークンを必須とする認証ミドルウェアを返す。
// ヘッダー欠落と無効トークンは別メッセージの401として区別される。
// 解決した認証済みユーザーをリクエストコンテキストに注入する。
func NewAuthMiddleware(resolver TokenResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r)

			identity, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
					return
				}
				WriteInternalServerError(w)
				return
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalAuthMiddleware は認証を任意とするミドルウェアを返す。
// トークンが無い・無効な場合もリクエストを拒否せず、匿名として通す。
func NewOptionalAuthMiddleware(resolver TokenResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r)

			if identity := resolver.ResolveOptional(r.Context(), token); identity != nil {
				r = r.WithContext(ContextWithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
