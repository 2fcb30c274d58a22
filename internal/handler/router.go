package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/freeindiatools/freetools/internal/metrics"
	"github.com/freeindiatools/freetools/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Sessions          middleware.SessionSource
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	SessionManager SessionManagerInterface
	LoginURL       LoginURLProvider
	AuthConfig     AuthHandlerConfig

	// ツール
	ToolService ToolServiceInterface

	// メトリクス
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeaders → Recovery → Logging
//	→ (認証グループのみ) SessionMiddleware → RateLimitMiddleware(General)
//
// 認証ルート（/auth/*）と公開読み取りルートはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, statusObserver(deps.Metrics)))

	authHandler := NewAuthHandler(deps.SessionManager, deps.LoginURL, authMetrics(deps.Metrics), deps.AuthConfig)
	toolHandler := NewToolHandler(deps.ToolService, toolMetrics(deps.Metrics))

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 公開読み取りルート
	r.Get("/api/tools", toolHandler.ListTools)
	r.Get("/api/tools/{slug}", toolHandler.GetTool)
	r.Get("/api/categories", toolHandler.ListCategories)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Sessions))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// POST /api/tools - ツール投稿（投稿専用レート制限を追加）
		r.With(deps.RateLimiter.SubmissionMiddleware()).Post("/api/tools", toolHandler.SubmitTool)

		r.Route("/api/tools/{id}", func(r chi.Router) {
			r.Put("/favorite", toolHandler.AddFavorite)
			r.Delete("/favorite", toolHandler.RemoveFavorite)
			r.Post("/report", toolHandler.ReportTool)
		})

		r.Get("/api/me/favorites", toolHandler.ListFavorites)

		// 管理者専用ルート
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewAdminMiddleware())

			r.Get("/tools", toolHandler.AdminListTools)
			r.Patch("/tools/{id}/status", toolHandler.UpdateToolStatus)
		})
	})

	return r
}

// nilの*Collectorを型付きインターフェースに包むとnil判定が崩れるため、
// ここで明示的に変換する。
func statusObserver(c *metrics.Collector) middleware.StatusObserver {
	if c == nil {
		return nil
	}
	return c
}

func authMetrics(c *metrics.Collector) AuthMetrics {
	if c == nil {
		return nil
	}
	return c
}

func toolMetrics(c *metrics.Collector) ToolMetrics {
	if c == nil {
		return nil
	}
	return c
}
