package handler

import (
	"time"

	"github.com/hitoshi/yieldman/internal/model"
)

// investmentResponse は投資情報のAPIレスポンス。
// APYは内部では小数（0.30 = 30%）で保持するが、レスポンスではパーセント表記に変換する。
type investmentResponse struct {
	ID              string                `json:"id"`
	Amount          float64               `json:"amount"`
	LockPeriod      int                   `json:"lockPeriod"`
	CompoundType    string                `json:"compoundType"`
	APY             float64               `json:"apy"`
	TransactionHash string                `json:"transactionHash"`
	Status          string                `json:"status"`
	TotalEarned     float64               `json:"totalEarned"`
	EarningsHistory []model.EarningRecord `json:"earningsHistory"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// newInvestmentResponse はInvestmentからAPIレスポンスを生成する。
func newInvestmentResponse(inv *model.Investment) investmentResponse {
	history := inv.EarningsHistory
	if history == nil {
		history = []model.EarningRecord{}
	}
	return investmentResponse{
		ID:              inv.ID,
		Amount:          inv.Amount,
		LockPeriod:      inv.LockPeriod,
		CompoundType:    string(inv.CompoundType),
		APY:             inv.APY * 100,
		TransactionHash: inv.TransactionHash,
		Status:          string(inv.Status),
		TotalEarned:     inv.TotalEarned,
		EarningsHistory: history,
		CreatedAt:       inv.CreatedAt,
	}
}

// userResponse は口座情報のAPIレスポンス。資格情報は含まない。
type userResponse struct {
	ID            string               `json:"id"`
	Email         string               `json:"email"`
	Balance       float64              `json:"balance"`
	TotalEarnings float64              `json:"totalEarnings"`
	Investments   []investmentResponse `json:"investments"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// newUserResponse はAccountからAPIレスポンスを生成する。
func newUserResponse(account *model.Account) userResponse {
	investments := make([]investmentResponse, 0, len(account.Investments))
	for _, inv := range account.Investments {
		investments = append(investments, newInvestmentResponse(inv))
	}
	return userResponse{
		ID:            account.ID,
		Email:         account.Email,
		Balance:       account.Balance,
		TotalEarnings: account.TotalEarnings,
		Investments:   investments,
		CreatedAt:     account.CreatedAt,
	}
}

// registeredUserResponse は登録直後の口座情報。投資を持たないため残高のみ返す。
type registeredUserResponse struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Balance float64 `json:"balance"`
}
