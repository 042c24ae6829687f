package yield

import (
	"math"

	"github.com/hitoshi/yieldman/internal/model"
)

// Projection は収益予測の結果を表す。
type Projection struct {
	FinalAmount float64
	Interest    float64
}

// Project は元本・ロック期間・年率・複利方式から満期時の金額を算出する。
//
// monthly方式は年率をそのまま月次指数として適用する:
//
//	final = principal * (1 + rate) ^ termMonths
//
// 実効月利への変換は仕様上行わない。simple方式は期間按分の単利:
//
//	final = principal * (1 + rate * termMonths / 12)
//
// 元本が非有限または[500, 1,000,000]の範囲外の場合はInvalidAmount、
// 期間が正でない場合はInvalidTermを返す。期間の上限クランプはRateの責務。
func Project(principal float64, termMonths int, rate float64, mode model.CompoundMode) (Projection, error) {
	if math.IsNaN(principal) || math.IsInf(principal, 0) || principal < MinAmount || principal > MaxAmount {
		return Projection{}, model.NewInvalidAmountError(principal)
	}
	if termMonths <= 0 {
		return Projection{}, model.NewInvalidTermError(termMonths)
	}

	var final float64
	switch mode {
	case model.CompoundMonthly:
		final = principal * math.Pow(1+rate, float64(termMonths))
	case model.CompoundSimple:
		final = principal * (1 + rate*float64(termMonths)/12)
	default:
		return Projection{}, model.NewInvalidCompoundModeError(string(mode))
	}

	return Projection{
		FinalAmount: final,
		Interest:    final - principal,
	}, nil
}
