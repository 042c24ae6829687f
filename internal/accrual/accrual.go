// Package accrual は投資への利息配分を提供する。
// 1期間分の配分計算の純粋関数と、全口座への配分を定期実行するエンジンを含む。
package accrual

import (
	"github.com/hitoshi/yieldman/internal/model"
)

// 1期間が1年に占める割合。日次ティックは1/365、週次ティックは1/52。
const (
	DailyFraction  = 1.0 / 365
	WeeklyFraction = 1.0 / 52
)

// PeriodEarning は1期間分の利息額を算出する。
//
//	earned = principal * apy * fraction
//
// 固定年率の按分のみで複利方式は参照しない。statusがactive以外の投資は0を返す。
// 同一期間内の二重実行の抑止はエンジンでは行わず、呼び出し側の責務。
func PeriodEarning(inv *model.Investment, fraction float64) float64 {
	if inv.Status != model.InvestmentActive {
		return 0
	}
	return inv.Amount * inv.APY * fraction
}

// WeeklyGains は口座の全アクティブ投資の週次利息見込み合計を返す。
// 口座照会のレスポンス表示用。
func WeeklyGains(investments []*model.Investment) float64 {
	var total float64
	for _, inv := range investments {
		total += PeriodEarning(inv, WeeklyFraction)
	}
	return total
}

// Result は1回の配分パスの集計を表す。
type Result struct {
	UsersAffected       int
	InvestmentsAffected int
	TotalAccrued        float64
}
