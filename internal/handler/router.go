package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bookswap/internal/metrics"
	"github.com/hitoshi/bookswap/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenResolver      middleware.TokenResolver
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	Logger             *slog.Logger

	// メトリクス（nilの場合は/metricsルートとメトリクス収集を省略する）
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer

	// サービス
	AuthService AuthServiceInterface
	BookService BookServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → CORS → Logging → Metrics
//
// 認証ミドルウェアはルートグループ単位で適用する。
// 閲覧系（GET /books）は匿名アクセス可、変更系と/auth/me・/auth/logoutは要認証。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}

	authHandler := NewAuthHandler(deps.AuthService)
	bookHandler := NewBookHandler(deps.BookService)

	requireAuth := middleware.NewAuthMiddleware(deps.TokenResolver)
	optionalAuth := middleware.NewOptionalAuthMiddleware(deps.TokenResolver)

	// --- 稼働確認 ---

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{
			"message": "Welcome to BookSwap API",
		})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証ルート ---

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})
	})

	// --- 出品ルート ---

	r.Route("/books", func(r chi.Router) {
		// 閲覧系は匿名アクセス可。認証済みならレート制限をユーザー単位で集計する。
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.GeneralMiddleware())
			}
			r.Get("/", bookHandler.ListBooks)
			r.Get("/{id}", bookHandler.GetBook)
		})

		// 変更系は要認証
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.GeneralMiddleware())
				r.With(deps.RateLimiter.CreateListingMiddleware()).Post("/", bookHandler.CreateBook)
			} else {
				r.Post("/", bookHandler.CreateBook)
			}
			r.Put("/{id}", bookHandler.UpdateBook)
			r.Delete("/{id}", bookHandler.DeleteBook)
		})
	})

	return r
}
