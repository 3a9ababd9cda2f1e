package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/catalog/internal/middleware"
	"github.com/hitoshi/catalog/internal/model"
	"github.com/hitoshi/catalog/internal/view"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password, currentSessionID string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	RequireAuthenticated(ctx context.Context, sessionID string) (*model.Session, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン・ログアウトと要ログインページのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	renderer PageRenderer
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, renderer PageRenderer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		renderer: renderer,
		config:   config,
	}
}

// LoginForm はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	render(w, h.renderer, view.PageLogin, pageData(r, "Login"))
}

// Login は資格情報を検証し、成功時にセッションCookieを発行する。
// 失敗時はCookieを発行せず、200で "Invalid Credentials" を返す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	session, err := h.service.Login(r.Context(), username, password, sessionCookieValue(r))
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredentials {
			slog.Info("login rejected", slog.String("username", username))
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(apiErr.Message))
			return
		}
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout はセッションを破棄してCookieを削除する。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := sessionCookieValue(r); id != "" {
		if err := h.service.Logout(r.Context(), id); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	// Cookieを削除（MaxAge=-1）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// About はログイン中のみ表示する。未ログインは/loginへリダイレクトする。
// GET /about
func (h *AuthHandler) About(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.RequireAuthenticated(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		if model.HasCode(err, model.ErrCodeUnauthenticated) {
			slog.Warn("unauthenticated access", slog.String("path", r.URL.Path))
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		handleServiceError(w, err)
		return
	}

	data := pageData(r, "About")
	data.Username = session.Username
	render(w, h.renderer, view.PageAbout, data)
}

func sessionCookieValue(r *http.Request) string {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
