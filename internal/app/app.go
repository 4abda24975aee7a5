// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bookswap/internal/auth"
	"github.com/hitoshi/bookswap/internal/book"
	"github.com/hitoshi/bookswap/internal/config"
	"github.com/hitoshi/bookswap/internal/handler"
	"github.com/hitoshi/bookswap/internal/logger"
	"github.com/hitoshi/bookswap/internal/metrics"
	"github.com/hitoshi/bookswap/internal/middleware"
	"github.com/hitoshi/bookswap/internal/security"
	"github.com/hitoshi/bookswap/internal/supabase"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// Supabaseクライアントと全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. Supabaseクライアントの初期化
	// ローカルにDBは持たず、認証もデータもホスティング基盤に委譲する
	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	authClient := supabase.NewAuthClient(httpClient, slog.Default(), cfg.SupabaseURL, cfg.SupabaseKey, collector)
	bookClient := supabase.NewBookClient(httpClient, slog.Default(), cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseServiceRole, collector)

	// 3. ドメインサービスの初期化
	authService := auth.NewService(authClient, auth.ServiceConfig{
		JWTSecret: cfg.SupabaseJWTSecret,
	})

	sanitizer := security.NewListingSanitizer()
	bookService := book.NewService(bookClient, sanitizer)

	// 4. レートリミッターの初期化
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitCreate),
	)
	defer rateLimiter.Stop()

	// 5. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		TokenResolver:      authService,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		Logger:             slog.Default(),

		Metrics:  collector,
		Gatherer: registry,

		AuthService: authService,
		BookService: bookService,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
