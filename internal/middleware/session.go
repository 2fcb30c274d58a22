// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/freeindiatools/freetools/internal/model"
	"github.com/freeindiatools/freetools/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionSource は現在セッションの参照に必要なインターフェース。
// session.Managerの部分集合として定義する。
type SessionSource interface {
	Current() *session.Session
	Loading() bool
}

// NewSessionMiddleware はセッションマネージャーが公開中のセッションを
// リクエストコンテキストに注入するミドルウェアを返す。
// 最初の変更通知が未解決の間は503を返す（「まだ分からない」を未認証と区別する）。
// セッションがない場合は401 Unauthorizedを返す。
func NewSessionMiddleware(source SessionSource) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source.Loading() {
				WriteErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
					Code:     "SESSION_LOADING",
					Message:  "Session state is still being resolved.",
					Category: "system",
					Action:   "Retry in a moment.",
				})
				return
			}

			sess := source.Current()
			if sess == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAdminMiddleware は管理者セッションのみを通過させるミドルウェアを返す。
// SessionMiddlewareの後に配置する。
func NewAdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := SessionFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if !sess.IsAdmin {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (*session.Session, error) {
	sess, ok := ctx.Value(sessionContextKey).(*session.Session)
	if !ok || sess == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return sess, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	sess, err := SessionFromContext(ctx)
	if err != nil {
		return "", err
	}
	return sess.Identity.UID, nil
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
