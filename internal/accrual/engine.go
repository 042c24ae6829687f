package accrual

import (
	"context"
	"log/slog"
	"time"
)

// Accruer は全口座への利息配分の実行インターフェース。
// 台帳サービスが実装する。1回のパスは全ドキュメント書き換え単位でall-or-nothing。
type Accruer interface {
	// AccrueAll は全アクティブ投資に1期間分の利息を配分する。
	AccrueAll(ctx context.Context, fraction float64) (*Result, error)
}

// Engine は利息配分パスの定期実行と手動実行を提供する。
// ワーカーモードではティッカーで定期実行し、APIサーバーモードでは
// 手動トリガーのエンドポイントからRunOnceを呼び出す。
type Engine struct {
	ledger   Accruer
	fraction float64
	logger   *slog.Logger
}

// NewEngine はEngineの新しいインスタンスを生成する。
// fractionが0以下の場合はデフォルトの日次按分（1/365）を使用する。
func NewEngine(ledger Accruer, fraction float64, logger *slog.Logger) *Engine {
	if fraction <= 0 {
		fraction = DailyFraction
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ledger:   ledger,
		fraction: fraction,
		logger:   logger,
	}
}

// Start は指定間隔のティッカーで配分パスを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (e *Engine) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("利息配分スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Float64("period_fraction", e.fraction),
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("利息配分スケジューラを停止しました")
			return
		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				e.logger.Error("利息配分パスの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は利息配分パスを1回実行する。
func (e *Engine) RunOnce(ctx context.Context) (*Result, error) {
	start := time.Now()

	result, err := e.ledger.AccrueAll(ctx, e.fraction)
	if err != nil {
		return nil, err
	}

	e.logger.Info("利息配分パスが完了しました",
		slog.Int("users_affected", result.UsersAffected),
		slog.Int("investments_affected", result.InvestmentsAffected),
		slog.Float64("total_accrued", result.TotalAccrued),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return result, nil
}
