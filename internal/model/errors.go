// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, account, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeCapacityExceeded    = "CAPACITY_EXCEEDED"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInvalidTerm         = "INVALID_TERM"
	ErrCodeInvalidCompoundMode = "INVALID_COMPOUND_MODE"
	ErrCodeMissingReference    = "MISSING_REFERENCE"
	ErrCodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	ErrCodeInvalidCredential   = "INVALID_CREDENTIAL"
	ErrCodeAccountDisabled     = "ACCOUNT_DISABLED"
	ErrCodePersistence         = "PERSISTENCE_ERROR"
)

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "validation",
		Action:   "別のメールアドレスで登録するか、ログインしてください。",
	}
}

// NewCapacityExceededError は口座数上限エラーを生成する。
func NewCapacityExceededError(max int) *APIError {
	return &APIError{
		Code:     ErrCodeCapacityExceeded,
		Message:  fmt.Sprintf("口座数が上限（%d件）に達しています。", max),
		Category: "validation",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewMissingFieldError は必須フィールド欠落エラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("必須フィールドが指定されていません: %s", field),
		Category: "validation",
		Action:   "必須フィールドを指定して再度リクエストしてください。",
	}
}

// NewInvalidAmountError は投資金額が範囲外または数値として不正な場合のエラーを生成する。
func NewInvalidAmountError(amount float64) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAmount,
		Message:  fmt.Sprintf("無効な投資金額です: %v", amount),
		Category: "validation",
		Action:   "投資金額は500以上1,000,000以下で指定してください。",
	}
}

// NewInvalidTermError はロック期間が不正な場合のエラーを生成する。
func NewInvalidTermError(termMonths int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTerm,
		Message:  fmt.Sprintf("無効なロック期間です: %dヶ月", termMonths),
		Category: "validation",
		Action:   "ロック期間は3ヶ月から24ヶ月の範囲で指定してください。",
	}
}

// NewInvalidCompoundModeError は未知の複利方式エラーを生成する。
func NewInvalidCompoundModeError(mode string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCompoundMode,
		Message:  fmt.Sprintf("無効な複利方式です: %s", mode),
		Category: "validation",
		Action:   "複利方式には monthly または simple を指定してください。",
	}
}

// NewMissingReferenceError はトランザクション参照が空の場合のエラーを生成する。
func NewMissingReferenceError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingReference,
		Message:  "トランザクションハッシュが指定されていません。",
		Category: "validation",
		Action:   "入金時のトランザクションハッシュを指定してください。",
	}
}

// NewAccountNotFoundError は口座が見つからない場合のエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "口座が見つかりません。",
		Category: "account",
		Action:   "メールアドレスまたは口座IDを確認してください。",
	}
}

// NewInvalidCredentialError は資格情報の検証に失敗した場合のエラーを生成する。
func NewInvalidCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewAccountDisabledError は無効化された口座へのログインエラーを生成する。
func NewAccountDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountDisabled,
		Message:  "この口座は無効化されています。",
		Category: "auth",
		Action:   "サポートにお問い合わせください。",
	}
}

// NewPersistenceError は永続化層の失敗エラーを生成する。
// 書き込み失敗時はメモリ上の変更も破棄される。
func NewPersistenceError(err error) *APIError {
	return &APIError{
		Code:     ErrCodePersistence,
		Message:  fmt.Sprintf("データの保存に失敗しました: %v", err),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
