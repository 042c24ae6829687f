// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yieldman/internal/accrual"
	"github.com/hitoshi/yieldman/internal/model"
)

// AccountServiceInterface は口座ハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Register は新規口座を作成する。
	Register(ctx context.Context, email, password string) (*model.Account, error)
	// Authenticate はメールアドレスとパスワードで口座を認証する。
	Authenticate(ctx context.Context, email, password string) (*model.Account, error)
	// GetAccount は口座を照会する。
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
}

// AccountHandler は口座管理のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{
		service: service,
	}
}

// credentialsRequest は登録・ログインリクエストのボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerResponse は登録成功レスポンス。
type registerResponse struct {
	Success bool                   `json:"success"`
	User    registeredUserResponse `json:"user"`
}

// loginResponse はログイン成功レスポンス。
type loginResponse struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
}

// getUserResponse は口座照会レスポンス。
// weeklyGainsは全アクティブ投資の週次利息見込み合計。
type getUserResponse struct {
	User        userResponse `json:"user"`
	WeeklyGains float64      `json:"weeklyGains"`
}

// Register は新規口座を作成する。
// POST /api/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました。")
		return
	}

	account, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(registerResponse{
		Success: true,
		User: registeredUserResponse{
			ID:      account.ID,
			Email:   account.Email,
			Balance: account.Balance,
		},
	})
}

// Login はメールアドレスとパスワードで認証し、口座情報を返す。
// POST /api/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました。")
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		Success: true,
		User:    newUserResponse(account),
	})
}

// GetUser は口座情報と週次利息見込みを返す。
// GET /api/user/{userId}
func (h *AccountHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "userId")

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(getUserResponse{
		User:        newUserResponse(account),
		WeeklyGains: accrual.WeeklyGains(account.Investments),
	})
}
