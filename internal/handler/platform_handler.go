package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/yieldman/internal/accrual"
)

// AccrualRunnerInterface は手動トリガーの利息配分インターフェース。
type AccrualRunnerInterface interface {
	// RunOnce は利息配分パスを1回実行する。
	RunOnce(ctx context.Context) (*accrual.Result, error)
}

// PlatformServiceInterface はプラットフォームハンドラーが必要とするサービスインターフェース。
type PlatformServiceInterface interface {
	// WalletAddress は入金先ウォレットアドレスを返す。
	WalletAddress() string
}

// PlatformHandler は入金先アドレス照会・手動配分・ヘルスチェックのHTTPハンドラー。
type PlatformHandler struct {
	service PlatformServiceInterface
	accrual AccrualRunnerInterface
}

// NewPlatformHandler はPlatformHandlerを生成する。
func NewPlatformHandler(service PlatformServiceInterface, accrualRunner AccrualRunnerInterface) *PlatformHandler {
	return &PlatformHandler{
		service: service,
		accrual: accrualRunner,
	}
}

// walletAddressResponse は入金先アドレスのレスポンス。
type walletAddressResponse struct {
	Address string `json:"address"`
}

// accrueResponse は手動配分の結果レスポンス。
type accrueResponse struct {
	Success       bool    `json:"success"`
	UsersAffected int     `json:"usersAffected"`
	TotalAccrued  float64 `json:"totalAccrued"`
}

// WalletAddress は入金先ウォレットアドレスを返す。
// GET /api/wallet-address
func (h *PlatformHandler) WalletAddress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(walletAddressResponse{
		Address: h.service.WalletAddress(),
	})
}

// Accrue は利息配分パスを手動で1回実行する。
// POST /api/accrue
func (h *PlatformHandler) Accrue(w http.ResponseWriter, r *http.Request) {
	result, err := h.accrual.RunOnce(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accrueResponse{
		Success:       true,
		UsersAffected: result.UsersAffected,
		TotalAccrued:  result.TotalAccrued,
	})
}

// Health はヘルスチェックに応答する。
// GET /health
func (h *PlatformHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
