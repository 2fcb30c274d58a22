// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/freeindiatools/freetools/internal/format"
	"github.com/freeindiatools/freetools/internal/middleware"
	"github.com/freeindiatools/freetools/internal/model"
	"github.com/freeindiatools/freetools/internal/session"
	"github.com/freeindiatools/freetools/internal/validation"
)

const oauthStateCookie = "oauth_state"

// SessionManagerInterface は認証ハンドラーが必要とするセッションマネージャーの
// インターフェース。
type SessionManagerInterface interface {
	SignUp(ctx context.Context, name, email, password string) error
	LogIn(ctx context.Context, email, password string) error
	LogInWithGoogle(ctx context.Context, code string) error
	LogOut(ctx context.Context) error
	Current() *session.Session
	Loading() bool
}

// LoginURLProvider はフェデレーテッドログインの認証URL生成インターフェース。
type LoginURLProvider interface {
	GetLoginURL(state string) string
}

// AuthMetrics は認証イベントのメトリクス記録インターフェース。nil可。
type AuthMetrics interface {
	RecordSignup()
	RecordLogin(method string)
	RecordValidationFailure(form string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string
	CookieSecure bool
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	manager  SessionManagerInterface
	loginURL LoginURLProvider
	metrics  AuthMetrics
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(manager SessionManagerInterface, loginURL LoginURLProvider, metrics AuthMetrics, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		manager:  manager,
		loginURL: loginURL,
		metrics:  metrics,
		config:   config,
	}
}

// signupRequest はサインアップのリクエストボディ。
type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Signup はメールアドレスとパスワードで新規アカウントを作成する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(map[string]string{
			"body": "Invalid request body",
		}))
		return
	}

	result := validation.ValidateSignup(req.Name, req.Email, req.Password, req.ConfirmPassword)
	if !result.Valid {
		if h.metrics != nil {
			h.metrics.RecordValidationFailure("signup")
		}
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(result.Errors))
		return
	}

	if err := h.manager.SignUp(r.Context(), req.Name, req.Email, req.Password); err != nil {
		slog.Warn("signup failed", slog.String("email", req.Email), slog.String("error", err.Error()))
		middleware.WriteAPIError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSignup()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// loginRequest はログインのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login はメールアドレスとパスワードでログインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(map[string]string{
			"body": "Invalid request body",
		}))
		return
	}

	result := validation.ValidateLogin(req.Email, req.Password)
	if !result.Valid {
		if h.metrics != nil {
			h.metrics.RecordValidationFailure("login")
		}
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(result.Errors))
		return
	}

	if err := h.manager.LogIn(r.Context(), req.Email, req.Password); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLogin("password")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.loginURL.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はGoogle OAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. 認証処理
	if err := h.manager.LogInWithGoogle(r.Context(), code); err != nil {
		slog.Error("google login failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLogin("google")
	}

	// 4. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout は現在のセッションを終了する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.LogOut(r.Context()); err != nil {
		slog.Error("logout failed", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// meResponse は現在セッションのレスポンスボディ。
type meResponse struct {
	UID            string `json:"uid"`
	Email          string `json:"email"`
	DisplayName    string `json:"displayName"`
	Initials       string `json:"initials"`
	PhotoURL       string `json:"photoUrl,omitempty"`
	Role           string `json:"role"`
	IsAdmin        bool   `json:"isAdmin"`
	SubmittedTools int    `json:"submittedTools"`
	// SubmittedToolsLabel はUI表示用の短縮表記（例: 1.2K）
	SubmittedToolsLabel string   `json:"submittedToolsLabel"`
	Favorites           []string `json:"favorites"`
	// ProfileMissing はプロファイル取得に失敗しID単独セッションに
	// フォールバックしている場合にtrueとなる
	ProfileMissing bool `json:"profileMissing"`
}

// Me は現在のセッションを返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h.manager.Loading() {
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
			Code:     "SESSION_LOADING",
			Message:  "Session state is still being resolved.",
			Category: "system",
			Action:   "Retry in a moment.",
		})
		return
	}

	sess := h.manager.Current()
	if sess == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	resp := meResponse{
		UID:            sess.Identity.UID,
		Email:          sess.Identity.Email,
		DisplayName:    sess.DisplayName,
		Initials:       format.Initials(sess.DisplayName),
		PhotoURL:       sess.Identity.PhotoURL,
		Role:           sess.Role,
		IsAdmin:        sess.IsAdmin,
		Favorites:      []string{},
		ProfileMissing: sess.Profile == nil,
	}
	if sess.Profile != nil {
		resp.SubmittedTools = sess.Profile.SubmittedTools
		if sess.Profile.PhotoURL != "" && resp.PhotoURL == "" {
			resp.PhotoURL = sess.Profile.PhotoURL
		}
		if sess.Profile.Favorites != nil {
			resp.Favorites = sess.Profile.Favorites
		}
	}
	resp.SubmittedToolsLabel = format.Number(int64(resp.SubmittedTools))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
