package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/altscope/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// プロフィール・サーバー検索
	ProfileService ProfileServiceInterface
	ServerService  ServerSearchServiceInterface
	ServerMetrics  ServerSearchMetrics

	// スキャンジョブ
	ScanRunner ScanRunnerInterface

	// 履歴
	HistoryService HistoryServiceInterface

	// Prometheusスクレイプ用。nilの場合/metricsは公開しない。
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → RateLimit(General)
//
// /healthと/metricsはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	profileHandler := NewProfileHandler(deps.ProfileService)
	serverHandler := NewServerHandler(deps.ServerService, deps.ServerMetrics)
	scanHandler := NewScanHandler(deps.ScanRunner)
	historyHandler := NewHistoryHandler(deps.HistoryService)

	// --- レート制限の外のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- レート制限下のAPIルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィールルックアップ
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/lookup", profileHandler.Lookup)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", profileHandler.GetProfile)
				r.Get("/alts", profileHandler.GetAlts)
				r.Get("/servers/{universeID}", serverHandler.Search)
			})
		})

		// 非同期スキャンジョブ
		r.Route("/api/scans", func(r chi.Router) {
			// POST /api/scans - スキャン登録（登録専用レート制限を追加）
			r.With(deps.RateLimiter.ScanMiddleware()).Post("/", scanHandler.Create)
			r.Get("/{id}", scanHandler.Get)
		})

		// ルックアップ履歴
		r.Get("/api/lookups/recent", historyHandler.Recent)
	})

	return r
}
