package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yieldman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	MetricsSink       middleware.MetricsSink

	// サービス
	AccountService  AccountServiceInterface
	InvestService   InvestServiceInterface
	PlatformService PlatformServiceInterface
	AccrualRunner   AccrualRunnerInterface

	// Prometheusエクスポジション（/metrics）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// /healthと/metricsはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.MetricsSink != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsSink))
	}

	accountHandler := NewAccountHandler(deps.AccountService)
	investHandler := NewInvestHandler(deps.InvestService)
	platformHandler := NewPlatformHandler(deps.PlatformService, deps.AccrualRunner)

	// --- レート制限の外のルート ---

	r.Get("/health", platformHandler.Health)

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	// API全般のレート制限を適用し、投資作成には専用のレート制限を追加する
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/register", accountHandler.Register)
		r.Post("/login", accountHandler.Login)
		r.Get("/user/{userId}", accountHandler.GetUser)

		r.With(deps.RateLimiter.InvestMiddleware()).Post("/invest", investHandler.Invest)
		r.Post("/calculate", investHandler.Calculate)

		r.Get("/wallet-address", platformHandler.WalletAddress)
		r.Post("/accrue", platformHandler.Accrue)
	})

	return r
}
