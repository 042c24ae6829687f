package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/hitoshi/yieldman/internal/accrual"
	"github.com/hitoshi/yieldman/internal/model"
	"github.com/hitoshi/yieldman/internal/store"
	"github.com/hitoshi/yieldman/internal/yield"
)

// --- モック ---

// failingStore は保存が常に失敗するストア。保存失敗時のロールバック検証用。
type failingStore struct {
	loadFn func() (*model.Document, error)
}

func (f *failingStore) Load() (*model.Document, error) {
	if f.loadFn != nil {
		return f.loadFn()
	}
	return model.NewDocument(), nil
}

func (f *failingStore) Save(doc *model.Document) error {
	return errors.New("disk full")
}

// --- テストヘルパー ---

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(store.NewMemoryStore(), ServiceConfig{}, nil, "0xWALLET")
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func registerTestAccount(t *testing.T, svc *Service) *model.Account {
	t.Helper()
	acc, err := svc.Register(context.Background(), "test@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return acc
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected APIError with code %s, got nil", code)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %s, want %s", apiErr.Code, code)
	}
}

// --- 登録 ---

// TestRegister_Success は登録された口座の初期状態を検証する。
func TestRegister_Success(t *testing.T) {
	svc := newTestService(t)

	acc := registerTestAccount(t, svc)
	if acc.ID == "" {
		t.Error("expected non-empty account ID")
	}
	if acc.Email != "test@example.com" {
		t.Errorf("email = %q, want %q", acc.Email, "test@example.com")
	}
	if acc.Balance != 0 || acc.TotalEarnings != 0 {
		t.Errorf("balance = %v, totalEarnings = %v, want 0, 0", acc.Balance, acc.TotalEarnings)
	}
	if !acc.Active {
		t.Error("expected new account to be active")
	}
	if acc.PasswordHash != "" {
		t.Error("returned account must not include the password credential")
	}
}

// TestRegister_DuplicateEmail は同一メールアドレスの二重登録が拒否され、
// 口座数が変化しないことを検証する。
func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	registerTestAccount(t, svc)

	_, err := svc.Register(context.Background(), "test@example.com", "another")
	assertErrorCode(t, err, model.ErrCodeDuplicateEmail)

	if n := len(svc.doc.Accounts); n != 1 {
		t.Errorf("account count = %d, want 1", n)
	}
}

// TestRegister_EmailCaseSensitive はメールアドレスの比較が大文字小文字を区別することを検証する。
func TestRegister_EmailCaseSensitive(t *testing.T) {
	svc := newTestService(t)
	registerTestAccount(t, svc)

	if _, err := svc.Register(context.Background(), "TEST@example.com", "secret123"); err != nil {
		t.Errorf("expected differently-cased email to register, got %v", err)
	}
}

// TestRegister_CapacityExceeded は設定された口座数上限で登録が拒否されることを検証する。
func TestRegister_CapacityExceeded(t *testing.T) {
	svc, err := NewService(store.NewMemoryStore(), ServiceConfig{MaxAccounts: 2}, nil, "0xWALLET")
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	ctx := context.Background()
	if _, err := svc.Register(ctx, "a@example.com", "pw123456"); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	if _, err := svc.Register(ctx, "b@example.com", "pw123456"); err != nil {
		t.Fatalf("second Register returned error: %v", err)
	}

	_, err = svc.Register(ctx, "c@example.com", "pw123456")
	assertErrorCode(t, err, model.ErrCodeCapacityExceeded)
}

// TestRegister_MissingFields は空のメールアドレス・パスワードが拒否されることを検証する。
func TestRegister_MissingFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "secret123")
	assertErrorCode(t, err, model.ErrCodeMissingField)
	_, err = svc.Register(ctx, "a@example.com", "")
	assertErrorCode(t, err, model.ErrCodeMissingField)
}

// TestRegister_SaveFailureLeavesNoAccount は保存失敗時に口座が作成されないことを検証する。
func TestRegister_SaveFailureLeavesNoAccount(t *testing.T) {
	svc, err := NewService(&failingStore{}, ServiceConfig{}, nil, "0xWALLET")
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	_, err = svc.Register(context.Background(), "test@example.com", "secret123")
	assertErrorCode(t, err, model.ErrCodePersistence)

	if n := len(svc.doc.Accounts); n != 0 {
		t.Errorf("account count = %d, want 0 after failed save", n)
	}
}

// --- 認証 ---

// TestAuthenticate_Success は正しい資格情報でサニタイズ済み口座が返ることを検証する。
func TestAuthenticate_Success(t *testing.T) {
	svc := newTestService(t)
	registered := registerTestAccount(t, svc)

	acc, err := svc.Authenticate(context.Background(), "test@example.com", "secret123")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if acc.ID != registered.ID {
		t.Errorf("account ID = %q, want %q", acc.ID, registered.ID)
	}
	if acc.PasswordHash != "" {
		t.Error("authenticated account must not include the password credential")
	}
}

// TestAuthenticate_UnknownEmail は未登録メールアドレスでAccountNotFoundになることを検証する。
func TestAuthenticate_UnknownEmail(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "secret123")
	assertErrorCode(t, err, model.ErrCodeAccountNotFound)
}

// TestAuthenticate_WrongPassword はハッシュ不一致でInvalidCredentialになることを検証する。
func TestAuthenticate_WrongPassword(t *testing.T) {
	svc := newTestService(t)
	registerTestAccount(t, svc)

	_, err := svc.Authenticate(context.Background(), "test@example.com", "wrong-password")
	assertErrorCode(t, err, model.ErrCodeInvalidCredential)
}

// TestAuthenticate_DisabledAccount は無効化された口座へのログインが拒否されることを検証する。
func TestAuthenticate_DisabledAccount(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)

	svc.doc.FindAccount(acc.ID).Active = false

	_, err := svc.Authenticate(context.Background(), "test@example.com", "secret123")
	assertErrorCode(t, err, model.ErrCodeAccountDisabled)
}

// --- 投資作成 ---

// TestCreateInvestment_Success は投資作成の基本動作を検証する。
// 残高は元本分だけ増え、APYは作成時点のカーブから確定する。
func TestCreateInvestment_Success(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)

	inv, newBalance, err := svc.CreateInvestment(context.Background(), acc.ID, 1000, 12, model.CompoundMonthly, "0xdeadbeef")
	if err != nil {
		t.Fatalf("CreateInvestment returned error: %v", err)
	}

	if inv.Status != model.InvestmentActive {
		t.Errorf("status = %q, want %q", inv.Status, model.InvestmentActive)
	}
	if inv.APY != yield.Rate(12) {
		t.Errorf("apy = %v, want %v", inv.APY, yield.Rate(12))
	}
	if inv.TransactionHash != "0xdeadbeef" {
		t.Errorf("transactionHash = %q, want %q", inv.TransactionHash, "0xdeadbeef")
	}
	if newBalance != 1000 {
		t.Errorf("newBalance = %v, want 1000", newBalance)
	}
	if inv.TotalEarned != 0 || len(inv.EarningsHistory) != 0 {
		t.Errorf("new investment must start with no earnings: %+v", inv)
	}
}

// TestCreateInvestment_AmountBounds は金額境界が両端含みであることを検証する。
func TestCreateInvestment_AmountBounds(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)
	ctx := context.Background()

	_, _, err := svc.CreateInvestment(ctx, acc.ID, 499, 12, model.CompoundSimple, "0x1")
	assertErrorCode(t, err, model.ErrCodeInvalidAmount)
	_, _, err = svc.CreateInvestment(ctx, acc.ID, 1_000_001, 12, model.CompoundSimple, "0x2")
	assertErrorCode(t, err, model.ErrCodeInvalidAmount)

	if _, _, err := svc.CreateInvestment(ctx, acc.ID, 500, 12, model.CompoundSimple, "0x3"); err != nil {
		t.Errorf("amount 500 must be accepted, got %v", err)
	}
	if _, _, err := svc.CreateInvestment(ctx, acc.ID, 1_000_000, 12, model.CompoundSimple, "0x4"); err != nil {
		t.Errorf("amount 1,000,000 must be accepted, got %v", err)
	}
}

// TestCreateInvestment_NonFiniteAmount は非有限の金額が拒否されることを検証する。
func TestCreateInvestment_NonFiniteAmount(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)

	_, _, err := svc.CreateInvestment(context.Background(), acc.ID, math.NaN(), 12, model.CompoundSimple, "0x1")
	assertErrorCode(t, err, model.ErrCodeInvalidAmount)
}

// TestCreateInvestment_TermRejectedNotClamped は範囲外の期間が
// （カーブと違い）クランプではなく拒否されることを検証する。
func TestCreateInvestment_TermRejectedNotClamped(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)
	ctx := context.Background()

	for _, term := range []int{0, 2, 25, -3} {
		_, _, err := svc.CreateInvestment(ctx, acc.ID, 1000, term, model.CompoundSimple, "0x1")
		assertErrorCode(t, err, model.ErrCodeInvalidTerm)
	}

	for _, term := range []int{3, 24} {
		if _, _, err := svc.CreateInvestment(ctx, acc.ID, 1000, term, model.CompoundSimple, "0x1"); err != nil {
			t.Errorf("term %d must be accepted, got %v", term, err)
		}
	}
}

// TestCreateInvestment_MissingReference は空のトランザクション参照が拒否されることを検証する。
func TestCreateInvestment_MissingReference(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)

	_, _, err := svc.CreateInvestment(context.Background(), acc.ID, 1000, 12, model.CompoundMonthly, "")
	assertErrorCode(t, err, model.ErrCodeMissingReference)
}

// TestCreateInvestment_InvalidMode は未知の複利方式が拒否されることを検証する。
func TestCreateInvestment_InvalidMode(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)

	_, _, err := svc.CreateInvestment(context.Background(), acc.ID, 1000, 12, model.CompoundMode("hourly"), "0x1")
	assertErrorCode(t, err, model.ErrCodeInvalidCompoundMode)
}

// TestCreateInvestment_AccountNotFound は存在しない口座への投資が拒否されることを検証する。
func TestCreateInvestment_AccountNotFound(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.CreateInvestment(context.Background(), "no-such-id", 1000, 12, model.CompoundMonthly, "0x1")
	assertErrorCode(t, err, model.ErrCodeAccountNotFound)
}

// TestCreateInvestment_SaveFailureRollsBack は保存失敗時に投資も残高増加も
// 反映されないことを検証する。
func TestCreateInvestment_SaveFailureRollsBack(t *testing.T) {
	seeded := model.NewDocument()
	seeded.Accounts = append(seeded.Accounts, &model.Account{
		ID:          "acc-1",
		Email:       "test@example.com",
		Active:      true,
		Investments: []*model.Investment{},
	})
	svc, err := NewService(&failingStore{loadFn: func() (*model.Document, error) {
		return seeded, nil
	}}, ServiceConfig{}, nil, "0xWALLET")
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	_, _, err = svc.CreateInvestment(context.Background(), "acc-1", 1000, 12, model.CompoundMonthly, "0x1")
	assertErrorCode(t, err, model.ErrCodePersistence)

	acc := svc.doc.FindAccount("acc-1")
	if acc.Balance != 0 {
		t.Errorf("balance = %v, want 0 after failed save", acc.Balance)
	}
	if len(acc.Investments) != 0 {
		t.Errorf("investments = %d, want 0 after failed save", len(acc.Investments))
	}
}

// TestCreateInvestment_APYNeverDrifts は作成時に確定したAPYが照会時も
// 独立に計算したカーブの値と一致することを検証する。
func TestCreateInvestment_APYNeverDrifts(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)
	ctx := context.Background()

	for _, term := range []int{3, 7, 12, 18, 24} {
		if _, _, err := svc.CreateInvestment(ctx, acc.ID, 1000, term, model.CompoundMonthly, "0x1"); err != nil {
			t.Fatalf("CreateInvestment(term=%d) returned error: %v", term, err)
		}
	}

	got, err := svc.GetAccount(ctx, acc.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	for _, inv := range got.Investments {
		if want := yield.Rate(float64(inv.LockPeriod)); inv.APY != want {
			t.Errorf("apy for %d months = %v, want %v", inv.LockPeriod, inv.APY, want)
		}
	}
}

// TestCreateInvestment_ConcurrentNoLostUpdate は同一口座への並行投資で
// 残高更新が失われないことを検証する。
func TestCreateInvestment_ConcurrentNoLostUpdate(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.CreateInvestment(ctx, acc.ID, 1000, 12, model.CompoundMonthly, "0x1"); err != nil {
				t.Errorf("CreateInvestment returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.GetAccount(ctx, acc.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if got.Balance != 1000*workers {
		t.Errorf("balance = %v, want %v", got.Balance, 1000*workers)
	}
	if len(got.Investments) != workers {
		t.Errorf("investments = %d, want %d", len(got.Investments), workers)
	}
}

// --- 口座照会 ---

// TestGetAccount_Sanitized は照会結果に資格情報が含まれないことを検証する。
func TestGetAccount_Sanitized(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)

	got, err := svc.GetAccount(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if got.PasswordHash != "" {
		t.Error("GetAccount must never include the password credential")
	}
}

// TestGetAccount_NotFound は存在しない口座IDでAccountNotFoundになることを検証する。
func TestGetAccount_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetAccount(context.Background(), "no-such-id")
	assertErrorCode(t, err, model.ErrCodeAccountNotFound)
}

// TestWalletAddress は設定したウォレットアドレスがそのまま返ることを検証する。
func TestWalletAddress(t *testing.T) {
	svc := newTestService(t)
	if got := svc.WalletAddress(); got != "0xWALLET" {
		t.Errorf("WalletAddress() = %q, want %q", got, "0xWALLET")
	}
}

// --- 利息配分 ---

// TestAccrueAll_TwoTicksEqualDeltas は同一投資への2回の配分が同額ずつ増え、
// 残高に両方の合計が反映されることを検証する。APYと元本が固定のため増分は一定。
func TestAccrueAll_TwoTicksEqualDeltas(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)
	ctx := context.Background()

	inv, _, err := svc.CreateInvestment(ctx, acc.ID, 1000, 12, model.CompoundMonthly, "0x1")
	if err != nil {
		t.Fatalf("CreateInvestment returned error: %v", err)
	}

	wantDelta := 1000 * inv.APY / 365

	r1, err := svc.AccrueAll(ctx, accrual.DailyFraction)
	if err != nil {
		t.Fatalf("first AccrueAll returned error: %v", err)
	}
	r2, err := svc.AccrueAll(ctx, accrual.DailyFraction)
	if err != nil {
		t.Fatalf("second AccrueAll returned error: %v", err)
	}

	if r1.TotalAccrued != r2.TotalAccrued {
		t.Errorf("deltas differ: %v vs %v", r1.TotalAccrued, r2.TotalAccrued)
	}
	if math.Abs(r1.TotalAccrued-wantDelta) > 1e-9 {
		t.Errorf("delta = %v, want %v", r1.TotalAccrued, wantDelta)
	}

	got, err := svc.GetAccount(ctx, acc.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	wantBalance := 1000 + 2*wantDelta
	if math.Abs(got.Balance-wantBalance) > 1e-9 {
		t.Errorf("balance = %v, want %v", got.Balance, wantBalance)
	}
	if math.Abs(got.TotalEarnings-2*wantDelta) > 1e-9 {
		t.Errorf("totalEarnings = %v, want %v", got.TotalEarnings, 2*wantDelta)
	}
	if math.Abs(got.Investments[0].TotalEarned-2*wantDelta) > 1e-9 {
		t.Errorf("totalEarned = %v, want %v", got.Investments[0].TotalEarned, 2*wantDelta)
	}
}

// TestAccrueAll_AppendsImmutableHistory は配分ごとに期番号付きの履歴レコードが
// 追記されることを検証する。
func TestAccrueAll_AppendsImmutableHistory(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)
	ctx := context.Background()

	if _, _, err := svc.CreateInvestment(ctx, acc.ID, 1000, 12, model.CompoundMonthly, "0x1"); err != nil {
		t.Fatalf("CreateInvestment returned error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.AccrueAll(ctx, accrual.DailyFraction); err != nil {
			t.Fatalf("AccrueAll returned error: %v", err)
		}
	}

	got, err := svc.GetAccount(ctx, acc.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	history := got.Investments[0].EarningsHistory
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	for i, rec := range history {
		if rec.Period != i+1 {
			t.Errorf("history[%d].Period = %d, want %d", i, rec.Period, i+1)
		}
		if rec.Amount <= 0 {
			t.Errorf("history[%d].Amount = %v, want > 0", i, rec.Amount)
		}
		if rec.Timestamp.IsZero() {
			t.Errorf("history[%d].Timestamp is zero", i)
		}
	}
}

// TestAccrueAll_SkipsClosedInvestments はactive以外の投資に配分されないことを検証する。
func TestAccrueAll_SkipsClosedInvestments(t *testing.T) {
	svc := newTestService(t)
	acc := registerTestAccount(t, svc)
	ctx := context.Background()

	if _, _, err := svc.CreateInvestment(ctx, acc.ID, 1000, 12, model.CompoundMonthly, "0x1"); err != nil {
		t.Fatalf("CreateInvestment returned error: %v", err)
	}
	svc.doc.FindAccount(acc.ID).Investments[0].Status = model.InvestmentClosed

	result, err := svc.AccrueAll(ctx, accrual.DailyFraction)
	if err != nil {
		t.Fatalf("AccrueAll returned error: %v", err)
	}
	if result.InvestmentsAffected != 0 || result.TotalAccrued != 0 {
		t.Errorf("closed investment accrued: %+v", result)
	}
}

// TestAccrueAll_NoInvestmentsIsNoop は投資が1件もない場合に保存も行われないことを検証する。
func TestAccrueAll_NoInvestmentsIsNoop(t *testing.T) {
	// failingStoreでも配分対象が無ければエラーにならない（保存がスキップされる）
	svc := &Service{store: &failingStore{}, doc: model.NewDocument()}

	result, err := svc.AccrueAll(context.Background(), accrual.DailyFraction)
	if err != nil {
		t.Fatalf("AccrueAll returned error: %v", err)
	}
	if result.UsersAffected != 0 {
		t.Errorf("usersAffected = %d, want 0", result.UsersAffected)
	}
}

// TestAccrueAll_SaveFailureDiscardsPass は保存失敗時にパス全体が破棄されることを検証する。
func TestAccrueAll_SaveFailureDiscardsPass(t *testing.T) {
	seeded := model.NewDocument()
	seeded.Accounts = append(seeded.Accounts, &model.Account{
		ID:      "acc-1",
		Email:   "test@example.com",
		Balance: 1000,
		Active:  true,
		Investments: []*model.Investment{
			{
				ID:              "inv-1",
				AccountID:       "acc-1",
				Amount:          1000,
				LockPeriod:      12,
				CompoundType:    model.CompoundMonthly,
				APY:             yield.Rate(12),
				Status:          model.InvestmentActive,
				EarningsHistory: []model.EarningRecord{},
			},
		},
	})
	svc, err := NewService(&failingStore{loadFn: func() (*model.Document, error) {
		return seeded, nil
	}}, ServiceConfig{}, nil, "0xWALLET")
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	_, err = svc.AccrueAll(context.Background(), accrual.DailyFraction)
	assertErrorCode(t, err, model.ErrCodePersistence)

	acc := svc.doc.FindAccount("acc-1")
	if acc.Balance != 1000 || acc.TotalEarnings != 0 {
		t.Errorf("state changed after failed save: balance=%v totalEarnings=%v", acc.Balance, acc.TotalEarnings)
	}
	if len(acc.Investments[0].EarningsHistory) != 0 {
		t.Error("history appended after failed save")
	}
}

// --- プレビュー計算 ---

// TestProject_PreviewUsesCurve はプレビューが保存を伴わず、
// カーブから算出したAPYで計算されることを検証する。
func TestProject_PreviewUsesCurve(t *testing.T) {
	svc := newTestService(t)

	rate, projection, err := svc.Project(1000, 12, model.CompoundSimple)
	if err != nil {
		t.Fatalf("Project returned error: %v", err)
	}
	if rate != yield.Rate(12) {
		t.Errorf("rate = %v, want %v", rate, yield.Rate(12))
	}
	want := 1000 * (1 + rate)
	if math.Abs(projection.FinalAmount-want) > 1e-9 {
		t.Errorf("finalAmount = %v, want %v", projection.FinalAmount, want)
	}
	if n := len(svc.doc.Accounts); n != 0 {
		t.Errorf("preview must not mutate the ledger, accounts = %d", n)
	}
}
