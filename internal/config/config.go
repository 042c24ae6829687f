// Package config はアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// 利息配分の期間種別。
const (
	AccrualPeriodDaily  = "daily"
	AccrualPeriodWeekly = "weekly"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Wallet
	WalletAddress string

	// Store
	StorePath string // 空の場合はメモリ上のみに保持するデプロイ変種

	// Ledger
	MaxAccounts int // 口座数の上限。0は無制限。

	// Accrual
	AccrualPeriod   string        // daily | weekly
	AccrualFraction float64       // 1期間が1年に占める割合（AccrualPeriodから導出）
	AccrualInterval time.Duration // ワーカーモードの配分パス間隔

	// Rate Limit
	RateLimitGeneral int // API全般（req/min/クライアント）
	RateLimitInvest  int // 投資作成（req/min/クライアント）

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.WalletAddress = os.Getenv("WALLET_ADDRESS")
	if cfg.WalletAddress == "" {
		missing = append(missing, "WALLET_ADDRESS")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.StorePath = getEnvString("STORE_PATH", "")
	cfg.MaxAccounts = getEnvInt("MAX_ACCOUNTS", 0)
	cfg.AccrualPeriod = getEnvString("ACCRUAL_PERIOD", AccrualPeriodDaily)
	cfg.AccrualInterval = getEnvDuration("ACCRUAL_INTERVAL", 24*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitInvest = getEnvInt("RATE_LIMIT_INVEST", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	switch cfg.AccrualPeriod {
	case AccrualPeriodDaily:
		cfg.AccrualFraction = 1.0 / 365
	case AccrualPeriodWeekly:
		cfg.AccrualFraction = 1.0 / 52
	default:
		return nil, fmt.Errorf("invalid ACCRUAL_PERIOD: %q (must be daily or weekly)", cfg.AccrualPeriod)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
