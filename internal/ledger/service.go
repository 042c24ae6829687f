// Package ledger は口座台帳のビジネスロジックを提供する。
// 登録・認証・投資作成・口座照会・利息配分のすべての変更操作は
// サービス内の単一ロックで直列化され、残高の読み書きで更新が失われることはない。
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/yieldman/internal/accrual"
	"github.com/hitoshi/yieldman/internal/model"
	"github.com/hitoshi/yieldman/internal/store"
	"github.com/hitoshi/yieldman/internal/yield"
)

// MetricsRecorder はメトリクス収集のインターフェース。
type MetricsRecorder interface {
	RecordRegistration()
	RecordInvestmentCreated(amount float64)
	RecordAccrualRun(usersAffected int, totalAccrued float64)
}

// ServiceConfig は台帳サービスの設定。
type ServiceConfig struct {
	MaxAccounts int // 口座数の上限。0は無制限。
}

// Service は口座台帳のサービス層。
// 注入された永続化コラボレーターを所有し、ドキュメント全体をメモリ上に保持する。
// すべての変更はコピーに適用してから保存し、保存成功後にのみメモリへ反映する。
// 保存に失敗した場合、メモリ上の状態は一切変化しない。
type Service struct {
	mu      sync.Mutex
	store   store.Store
	doc     *model.Document
	config  ServiceConfig
	metrics MetricsRecorder
}

// NewService はServiceを生成する。
// 永続化コラボレーターからドキュメントを読み込み、
// ウォレットアドレスが未設定の場合は指定値で初期化する。
func NewService(st store.Store, config ServiceConfig, metrics MetricsRecorder, walletAddress string) (*Service, error) {
	doc, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load store document: %w", err)
	}
	if doc == nil {
		doc = model.NewDocument()
	}
	if doc.Settings.WalletAddress == "" {
		doc.Settings.WalletAddress = walletAddress
	}

	return &Service{
		store:   st,
		doc:     doc,
		config:  config,
		metrics: metrics,
	}, nil
}

// Register は新規口座を作成する。
// メールアドレスの重複（大文字小文字を区別する）と口座数上限を検査し、
// パスワードはbcryptハッシュとしてのみ保存する。
func (s *Service) Register(ctx context.Context, email, password string) (*model.Account, error) {
	if email == "" {
		return nil, model.NewMissingFieldError("email")
	}
	if password == "" {
		return nil, model.NewMissingFieldError("password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.FindAccountByEmail(email) != nil {
		return nil, model.NewDuplicateEmailError(email)
	}
	if s.config.MaxAccounts > 0 && len(s.doc.Accounts) >= s.config.MaxAccounts {
		return nil, model.NewCapacityExceededError(s.config.MaxAccounts)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Balance:      0,
		Investments:  []*model.Investment{},
		Active:       true,
		CreatedAt:    time.Now(),
	}

	next := s.doc.Clone()
	next.Accounts = append(next.Accounts, account.Clone())
	if err := s.commit(next); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	slog.Info("口座を登録しました",
		slog.String("account_id", account.ID),
	)

	return account.Sanitized(), nil
}

// Authenticate はメールアドレスとパスワードで口座を認証する。
// 該当口座なし、ハッシュ不一致、無効化済みをそれぞれ区別して返す。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Account, error) {
	if email == "" {
		return nil, model.NewMissingFieldError("email")
	}
	if password == "" {
		return nil, model.NewMissingFieldError("password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account := s.doc.FindAccountByEmail(email)
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialError()
	}
	if !account.Active {
		return nil, model.NewAccountDisabledError()
	}

	return account.Sanitized(), nil
}

// CreateInvestment は新規投資を作成し、口座残高に元本を加算する。
// APYは作成時点のカーブから一度だけ確定する。トランザクションハッシュは
// 外部台帳との照合を行わず、不透明な監査用文字列として保存する。
func (s *Service) CreateInvestment(ctx context.Context, accountID string, amount float64, lockPeriod int, mode model.CompoundMode, txRef string) (*model.Investment, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.FindAccount(accountID) == nil {
		return nil, 0, model.NewAccountNotFoundError()
	}

	// 保存する期間はカーブと違いクランプせず、範囲外を拒否する
	if lockPeriod < int(yield.MinTermMonths) || lockPeriod > int(yield.MaxTermMonths) {
		return nil, 0, model.NewInvalidTermError(lockPeriod)
	}
	if !mode.Valid() {
		return nil, 0, model.NewInvalidCompoundModeError(string(mode))
	}
	// 金額検証はプロジェクターと同一規則（両端含み）
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < yield.MinAmount || amount > yield.MaxAmount {
		return nil, 0, model.NewInvalidAmountError(amount)
	}
	if txRef == "" {
		return nil, 0, model.NewMissingReferenceError()
	}

	investment := &model.Investment{
		ID:              uuid.New().String(),
		AccountID:       accountID,
		Amount:          amount,
		LockPeriod:      lockPeriod,
		CompoundType:    mode,
		APY:             yield.Rate(float64(lockPeriod)),
		TransactionHash: txRef,
		Status:          model.InvestmentActive,
		EarningsHistory: []model.EarningRecord{},
		CreatedAt:       time.Now(),
	}

	next := s.doc.Clone()
	account := next.FindAccount(accountID)
	account.Investments = append(account.Investments, investment.Clone())
	account.Balance += amount

	if err := s.commit(next); err != nil {
		return nil, 0, err
	}

	if s.metrics != nil {
		s.metrics.RecordInvestmentCreated(amount)
	}
	slog.Info("投資を作成しました",
		slog.String("account_id", accountID),
		slog.String("investment_id", investment.ID),
		slog.Float64("amount", amount),
		slog.Int("lock_period", lockPeriod),
		slog.Float64("apy", investment.APY),
	)

	return investment.Clone(), account.Balance, nil
}

// Project は投資のプレビュー計算を行う。口座の状態は変更しない。
// 期間はカーブ側でクランプされるため、保存時と違い範囲外でも受け付ける。
func (s *Service) Project(amount float64, lockPeriod int, mode model.CompoundMode) (float64, yield.Projection, error) {
	rate := yield.Rate(float64(lockPeriod))
	projection, err := yield.Project(amount, lockPeriod, rate, mode)
	if err != nil {
		return 0, yield.Projection{}, err
	}
	return rate, projection, nil
}

// GetAccount は口座を照会する。返される口座に資格情報は含まれない。
func (s *Service) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := s.doc.FindAccount(accountID)
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account.Sanitized(), nil
}

// WalletAddress は入金先ウォレットアドレスを返す。設定値そのままの静的な文字列。
func (s *Service) WalletAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Settings.WalletAddress
}

// AccrueAll は全口座のアクティブ投資に1期間分の利息を配分する。
// 配分ごとに投資の履歴へ不変レコードを追記し、投資の累計利息、
// 口座残高、累計収益を同額ずつ増やす。パス全体はドキュメント1回の
// 書き換え単位でall-or-nothingであり、保存失敗時は何も反映されない。
// 同一期間内の重複実行の抑止は行わない。
func (s *Service) AccrueAll(ctx context.Context, fraction float64) (*accrual.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	result := &accrual.Result{}
	now := time.Now()

	for _, account := range next.Accounts {
		var accountTotal float64
		for _, inv := range account.Investments {
			delta := accrual.PeriodEarning(inv, fraction)
			if delta <= 0 {
				continue
			}
			inv.TotalEarned += delta
			inv.EarningsHistory = append(inv.EarningsHistory, model.EarningRecord{
				Period:    len(inv.EarningsHistory) + 1,
				Amount:    delta,
				Timestamp: now,
			})
			accountTotal += delta
			result.InvestmentsAffected++
		}
		if accountTotal > 0 {
			account.Balance += accountTotal
			account.TotalEarnings += accountTotal
			result.TotalAccrued += accountTotal
			result.UsersAffected++
		}
	}

	if result.InvestmentsAffected == 0 {
		return result, nil
	}

	if err := s.commit(next); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordAccrualRun(result.UsersAffected, result.TotalAccrued)
	}

	return result, nil
}

// commit はドキュメントを保存し、成功した場合のみメモリへ反映する。
// 呼び出し側でロックを保持していること。
func (s *Service) commit(next *model.Document) error {
	if err := s.store.Save(next); err != nil {
		slog.Error("ストアへの保存に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.NewPersistenceError(err)
	}
	s.doc = next
	return nil
}
