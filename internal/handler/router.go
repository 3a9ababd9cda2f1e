package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/catalog/internal/metrics"
	"github.com/hitoshi/catalog/internal/middleware"
)

// SessionGate はルーターが必要とする認証サービス。
// ハンドラー用の操作に加え、セッション読み込みミドルウェア用のCurrentを持つ。
type SessionGate interface {
	AuthServiceInterface
	middleware.SessionLoader
}

// RouterDeps はルーター構築に必要な依存関係。
type RouterDeps struct {
	Catalog       CatalogServiceInterface
	Gate          SessionGate
	Renderer      PageRenderer
	HealthChecker HealthChecker
	RateLimiter   *middleware.RateLimiter // nilの場合はレート制限なし
	HTTPRecorder  middleware.HTTPRecorder // nilの場合はHTTPメトリクスを記録しない
	Gatherer      prometheus.Gatherer     // nilの場合は/metricsを公開しない
	Logger        *slog.Logger
	AuthConfig    AuthHandlerConfig
	CSRFConfig    middleware.CSRFConfig
	CORSOrigin    string
}

// NewRouter はchiルーターを構築し、全ルートを登録する。
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Renderer)
	authHandler := NewAuthHandler(deps.Gate, deps.Renderer, deps.AuthConfig)
	pageHandler := NewPageHandler(deps.Renderer)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRequestIDMiddleware())
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSessionMiddleware(deps.Gate))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSOrigin))

	// 監視系
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// 画面系
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/", catalogHandler.Index)
		r.Get("/contact", pageHandler.Contact)
		r.Get("/about", authHandler.About)
		r.Get("/product/{id}", catalogHandler.ProductID)
		r.Get("/products.csv", catalogHandler.ExportCSV)

		r.Get("/login", authHandler.LoginForm)
		r.Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)

		r.Get("/add", catalogHandler.AddForm)
		r.Get("/update_product/{id}", catalogHandler.UpdateForm)

		// 書き込み系は別枠のレート制限を追加で適用する
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.WriteMiddleware())
			}
			r.Post("/add", catalogHandler.Add)
			r.Post("/update_product/{id}", catalogHandler.Update)
			r.Get("/delete/{id}", catalogHandler.Delete)
		})
	})

	return r
}
