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

	"github.com/hitoshi/yieldman/internal/accrual"
	"github.com/hitoshi/yieldman/internal/config"
	"github.com/hitoshi/yieldman/internal/handler"
	"github.com/hitoshi/yieldman/internal/ledger"
	"github.com/hitoshi/yieldman/internal/logger"
	"github.com/hitoshi/yieldman/internal/metrics"
	"github.com/hitoshi/yieldman/internal/middleware"
	"github.com/hitoshi/yieldman/internal/store"
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
		slog.String("accrual_period", cfg.AccrualPeriod),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandAccrue:
		return runAccrue(cfg)
	default:
		return runServe(cfg)
	}
}

// newStore は設定に応じた永続化コラボレーターを返す。
// STORE_PATHが空の場合はメモリ上のみに保持するデプロイ変種を使用する。
func newStore(cfg *config.Config) store.Store {
	if cfg.StorePath == "" {
		slog.Info("using in-memory store (data is lost on restart)")
		return store.NewMemoryStore()
	}
	slog.Info("using JSON file store",
		slog.String("path", cfg.StorePath),
	)
	return store.NewJSONFileStore(cfg.StorePath, slog.Default())
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. 台帳サービスの初期化
	svc, err := ledger.NewService(
		newStore(cfg),
		ledger.ServiceConfig{MaxAccounts: cfg.MaxAccounts},
		collector,
		cfg.WalletAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger service: %w", err)
	}

	// 3. 利息配分エンジンの初期化（serveモードでは手動トリガーのみ）
	engine := accrual.NewEngine(svc, cfg.AccrualFraction, slog.Default())

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitInvest),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		MetricsSink:       collector,

		AccountService:  svc,
		InvestService:   svc,
		PlatformService: svc,
		AccrualRunner:   engine,

		MetricsHandler: metrics.SetupMetricsRoute(registry),
	})

	// 5. HTTPサーバーの起動
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

// runWorker は利息配分ワーカーモードで起動する。
// 設定された間隔で配分パスを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	svc, err := ledger.NewService(
		newStore(cfg),
		ledger.ServiceConfig{MaxAccounts: cfg.MaxAccounts},
		collector,
		cfg.WalletAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger service: %w", err)
	}

	engine := accrual.NewEngine(svc, cfg.AccrualFraction, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("accrual_interval", cfg.AccrualInterval),
		slog.Float64("period_fraction", cfg.AccrualFraction),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	engine.Start(ctx, cfg.AccrualInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runAccrue は利息配分パスを1回だけ実行して終了する。
// cronなどの外部スケジューラから呼び出す運用向け。
func runAccrue(cfg *config.Config) error {
	svc, err := ledger.NewService(
		newStore(cfg),
		ledger.ServiceConfig{MaxAccounts: cfg.MaxAccounts},
		nil,
		cfg.WalletAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger service: %w", err)
	}

	engine := accrual.NewEngine(svc, cfg.AccrualFraction, slog.Default())

	if _, err := engine.RunOnce(context.Background()); err != nil {
		return fmt.Errorf("accrual pass failed: %w", err)
	}
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
