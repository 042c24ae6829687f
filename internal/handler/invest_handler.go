package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/yieldman/internal/model"
	"github.com/hitoshi/yieldman/internal/yield"
)

// InvestServiceInterface は投資ハンドラーが必要とするサービスインターフェース。
type InvestServiceInterface interface {
	// CreateInvestment は新規投資を作成し、投資と更新後の口座残高を返す。
	CreateInvestment(ctx context.Context, accountID string, amount float64, lockPeriod int, mode model.CompoundMode, txRef string) (*model.Investment, float64, error)
	// Project は投資のプレビュー計算を行う。口座の状態は変更しない。
	Project(amount float64, lockPeriod int, mode model.CompoundMode) (float64, yield.Projection, error)
}

// InvestHandler は投資作成と収益予測のHTTPハンドラー。
type InvestHandler struct {
	service InvestServiceInterface
}

// NewInvestHandler はInvestHandlerを生成する。
func NewInvestHandler(service InvestServiceInterface) *InvestHandler {
	return &InvestHandler{
		service: service,
	}
}

// investRequest は投資作成リクエストのボディ。
type investRequest struct {
	UserID          string  `json:"userId"`
	Amount          float64 `json:"amount"`
	LockPeriod      int     `json:"lockPeriod"`
	CompoundType    string  `json:"compoundType"`
	TransactionHash string  `json:"transactionHash"`
}

// investResponse は投資作成成功レスポンス。
type investResponse struct {
	Success    bool               `json:"success"`
	Investment investmentResponse `json:"investment"`
	NewBalance float64            `json:"newBalance"`
}

// calculateRequest は収益予測リクエストのボディ。
type calculateRequest struct {
	Amount       float64 `json:"amount"`
	LockPeriod   int     `json:"lockPeriod"`
	CompoundType string  `json:"compoundType"`
}

// calculateResponse は収益予測レスポンス。APYはパーセント表記。
type calculateResponse struct {
	Success     bool    `json:"success"`
	APY         float64 `json:"apy"`
	FinalAmount float64 `json:"finalAmount"`
	Interest    float64 `json:"interest"`
	LockPeriod  int     `json:"lockPeriod"`
}

// Invest は新規投資を作成する。
// POST /api/invest
func (h *InvestHandler) Invest(w http.ResponseWriter, r *http.Request) {
	var req investRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました。")
		return
	}

	if req.UserID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "必須フィールドが指定されていません: userId")
		return
	}

	investment, newBalance, err := h.service.CreateInvestment(
		r.Context(),
		req.UserID,
		req.Amount,
		req.LockPeriod,
		model.CompoundMode(req.CompoundType),
		req.TransactionHash,
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(investResponse{
		Success:    true,
		Investment: newInvestmentResponse(investment),
		NewBalance: newBalance,
	})
}

// Calculate は投資の収益予測を返す。口座の状態は変更しない。
// POST /api/calculate
func (h *InvestHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました。")
		return
	}

	rate, projection, err := h.service.Project(req.Amount, req.LockPeriod, model.CompoundMode(req.CompoundType))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(calculateResponse{
		Success:     true,
		APY:         rate * 100,
		FinalAmount: projection.FinalAmount,
		Interest:    projection.Interest,
		LockPeriod:  req.LockPeriod,
	})
}
