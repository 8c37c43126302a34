// Package app はアプリケーションの初期化と起動を提供する。
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
	"golang.org/x/time/rate"

	"github.com/hitoshi/altscope/internal/altscore"
	"github.com/hitoshi/altscope/internal/config"
	"github.com/hitoshi/altscope/internal/database"
	"github.com/hitoshi/altscope/internal/handler"
	"github.com/hitoshi/altscope/internal/logger"
	"github.com/hitoshi/altscope/internal/lookup"
	"github.com/hitoshi/altscope/internal/metrics"
	"github.com/hitoshi/altscope/internal/middleware"
	"github.com/hitoshi/altscope/internal/presence"
	"github.com/hitoshi/altscope/internal/repository"
	"github.com/hitoshi/altscope/internal/roblox"
	"github.com/hitoshi/altscope/internal/security"
	"github.com/hitoshi/altscope/internal/servermatch"
	"github.com/hitoshi/altscope/internal/worker/scan"
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

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DATABASE_URLが設定されている場合のみDB接続を開き、履歴機能を有効化する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. 履歴リポジトリの初期化（DATABASE_URL未設定の場合は無効）
	var historyRepo repository.LookupHistoryRepository
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		historyRepo = repository.NewPostgresLookupRepo(db)
		slog.Info("database connection established")
	} else {
		slog.Info("DATABASE_URL is not set, lookup history is disabled")
	}

	// 2. メトリクスコレクタの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	// 4. プラットフォームAPIクライアントの初期化
	httpClient := ssrfGuard.NewSafeClient(cfg.UpstreamListTimeout)
	limiter := rate.NewLimiter(rate.Limit(cfg.UpstreamRate), cfg.UpstreamBurst)
	client := roblox.NewClient(httpClient, limiter, log, roblox.ClientConfig{
		Endpoints: roblox.DefaultEndpoints(),
		Timeouts: roblox.Timeouts{
			Primary: cfg.UpstreamTimeout,
			Aux:     cfg.UpstreamAuxTimeout,
			List:    cfg.UpstreamListTimeout,
		},
		Metrics: collector,
	})

	// 5. ドメインサービスの初期化
	engine := altscore.NewEngine(client, log, collector, altscore.Config{
		SampleLimit:    cfg.AltSampleLimit,
		ScoreThreshold: cfg.AltScoreThreshold,
		MaxResults:     cfg.AltMaxResults,
		Concurrency:    cfg.AltFetchConcurrency,
	})
	resolver := presence.NewResolver(client, log)
	matcher := servermatch.NewMatcher(resolver, client, log, cfg.ServerShortlistLimit)
	service := lookup.NewService(client, engine, matcher, sanitizer, ssrfGuard, historyRepo, log, lookup.Config{
		FriendsLimit:    cfg.AltSampleLimit,
		ServerPageLimit: cfg.ServerPageLimit,
	})

	// 6. スキャンランナーの初期化
	runner := scan.NewRunner(service, log, 2, cfg.ScanQueueLimit, cfg.ScanTTL)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ScanRate = rate.Limit(float64(cfg.RateLimitScan) / 60.0)
	rateLimiterCfg.ScanBurst = cfg.RateLimitScan
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		ProfileService: service,
		ServerService:  service,
		ServerMetrics:  collector,

		ScanRunner:     runner,
		HistoryService: service,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	runnerCtx, cancelRunner := context.WithCancel(context.Background())
	defer cancelRunner()
	go runner.Start(runnerCtx, time.Minute)

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

	cancelRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migration")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
