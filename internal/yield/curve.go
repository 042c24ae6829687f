// Package yield はAPYカーブと収益予測の純粋関数を提供する。
// ここでの計算結果は投資作成時に確定され、以後再計算されない。
package yield

// カーブと投資金額の境界値。
const (
	MinTermMonths = 3.0
	MaxTermMonths = 24.0
	MinRate       = 0.30
	MaxRate       = 2.00
	MinAmount     = 500.0
	MaxAmount     = 1_000_000.0
)

// Rate はロック期間（月数）から年率（小数表記、0.30 = 30%）を線形補間で算出する。
// 範囲外の期間は[3,24]にクランプしてから補間する。拒否はしない。
// 保存する期間の妥当性検証は呼び出し側（投資作成）の責務。
func Rate(termMonths float64) float64 {
	t := termMonths
	if t < MinTermMonths {
		t = MinTermMonths
	}
	if t > MaxTermMonths {
		t = MaxTermMonths
	}
	return MinRate + (t-MinTermMonths)/(MaxTermMonths-MinTermMonths)*(MaxRate-MinRate)
}
