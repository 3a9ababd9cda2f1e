// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/catalog/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	sessionContextKey   = contextKey("session")
	requestIDContextKey = contextKey("request_id")
	csrfTokenContextKey = contextKey("csrf_token")
)

// SessionLoader はセッションIDから有効なセッションを取得するインターフェース。
// auth.Gateが実装する。無効・期限切れの場合はnilを返す。
type SessionLoader interface {
	Current(ctx context.Context, sessionID string) (*model.Session, error)
}

// NewSessionMiddleware はCookieからセッションを読み取り、
// 有効であればリクエストコンテキストに注入するミドルウェアを返す。
// 未ログインのリクエストもそのまま後続に渡す。
func NewSessionMiddleware(loader SessionLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := loader.Current(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to load session",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// ContextWithSession はコンテキストにセッションを注入する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// 未ログインの場合はnilを返す。
func SessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

// SessionIDFromContext はリクエストに束縛されたセッションIDを返す。
func SessionIDFromContext(ctx context.Context) string {
	if s := SessionFromContext(ctx); s != nil {
		return s.ID
	}
	return ""
}

// UsernameFromContext はログイン中のユーザー名を返す。
func UsernameFromContext(ctx context.Context) (string, bool) {
	s := SessionFromContext(ctx)
	if s == nil || s.Username == "" {
		return "", false
	}
	return s.Username, true
}
