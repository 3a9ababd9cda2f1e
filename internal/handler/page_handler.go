package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/catalog/internal/view"
)

// PageHandler は静的ページを返すHTTPハンドラー。
type PageHandler struct {
	renderer PageRenderer
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(renderer PageRenderer) *PageHandler {
	return &PageHandler{renderer: renderer}
}

// Contact は連絡先ページを表示する。ログイン不要。
// GET /contact
func (h *PageHandler) Contact(w http.ResponseWriter, r *http.Request) {
	render(w, h.renderer, view.PageContact, pageData(r, "Contact"))
}

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler はヘルスチェックハンドラーを返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("database unavailable"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
