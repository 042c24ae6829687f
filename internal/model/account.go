// Package model はドメインモデルを定義する。
package model

import "time"

// CompoundMode は投資の複利方式を表す。
type CompoundMode string

const (
	// CompoundMonthly は年率をそのまま月次指数として適用する方式。
	CompoundMonthly CompoundMode = "monthly"
	// CompoundSimple は年率を期間で按分する単利方式。
	CompoundSimple CompoundMode = "simple"
)

// Valid は既知の複利方式かどうかを返す。
func (m CompoundMode) Valid() bool {
	return m == CompoundMonthly || m == CompoundSimple
}

// InvestmentStatus は投資の状態を表す。
type InvestmentStatus string

const (
	// InvestmentActive は利息配分の対象となる状態。
	InvestmentActive InvestmentStatus = "active"
	// InvestmentClosed は解約済みの状態。利息配分の対象外。
	InvestmentClosed InvestmentStatus = "closed"
)

// EarningRecord は1期間分の利息配分を表す不変レコード。
// 一度追記された後は変更しない。
type EarningRecord struct {
	Period    int       `json:"period"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Investment はロック期間付きの投資を表す。
// APYは作成時にカーブから一度だけ確定し、以後は再計算しない（小数表記、0.30 = 30%）。
type Investment struct {
	ID              string           `json:"id"`
	AccountID       string           `json:"accountId"`
	Amount          float64          `json:"amount"`
	LockPeriod      int              `json:"lockPeriod"`
	CompoundType    CompoundMode     `json:"compoundType"`
	APY             float64          `json:"apy"`
	TransactionHash string           `json:"transactionHash"`
	Status          InvestmentStatus `json:"status"`
	TotalEarned     float64          `json:"totalEarned"`
	EarningsHistory []EarningRecord  `json:"earningsHistory"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// Clone はInvestmentの深いコピーを返す。
func (i *Investment) Clone() *Investment {
	dup := *i
	dup.EarningsHistory = make([]EarningRecord, len(i.EarningsHistory))
	copy(dup.EarningsHistory, i.EarningsHistory)
	return &dup
}

// Account はサービス利用者の口座を表す。
// Balanceは入金済み元本と配分済み利息の合計を保持する（出金可能額ではない）。
type Account struct {
	ID            string        `json:"id"`
	Email         string        `json:"email"`
	PasswordHash  string        `json:"passwordHash"`
	Balance       float64       `json:"balance"`
	TotalEarnings float64       `json:"totalEarnings"`
	Investments   []*Investment `json:"investments"`
	Active        bool          `json:"active"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Clone はAccountの深いコピーを返す。
func (a *Account) Clone() *Account {
	dup := *a
	dup.Investments = make([]*Investment, len(a.Investments))
	for idx, inv := range a.Investments {
		dup.Investments[idx] = inv.Clone()
	}
	return &dup
}

// Sanitized は資格情報を取り除いたコピーを返す。
// サービス層の外にAccountを返すときは必ずこれを経由する。
func (a *Account) Sanitized() *Account {
	dup := a.Clone()
	dup.PasswordHash = ""
	return dup
}

// Settings はストア全体で1つだけ保持する設定を表す。
type Settings struct {
	WalletAddress string `json:"wallet_address"`
}

// Document は永続化コラボレーターが読み書きする全ドキュメントを表す。
type Document struct {
	Accounts []*Account `json:"accounts"`
	Settings Settings   `json:"settings"`
}

// NewDocument は空の有効なドキュメントを返す。
// 破損した保存データからの復旧時にも使用する。
func NewDocument() *Document {
	return &Document{Accounts: []*Account{}}
}

// Clone はDocumentの深いコピーを返す。
func (d *Document) Clone() *Document {
	dup := &Document{
		Accounts: make([]*Account, len(d.Accounts)),
		Settings: d.Settings,
	}
	for idx, acc := range d.Accounts {
		dup.Accounts[idx] = acc.Clone()
	}
	return dup
}

// FindAccount はIDで口座を検索する。見つからない場合はnilを返す。
func (d *Document) FindAccount(id string) *Account {
	for _, acc := range d.Accounts {
		if acc.ID == id {
			return acc
		}
	}
	return nil
}

// FindAccountByEmail はメールアドレスで口座を検索する（大文字小文字を区別する）。
// 見つからない場合はnilを返す。
func (d *Document) FindAccountByEmail(email string) *Account {
	for _, acc := range d.Accounts {
		if acc.Email == email {
			return acc
		}
	}
	return nil
}
