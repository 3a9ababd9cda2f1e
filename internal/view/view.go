// Package view はサーバーサイドHTMLテンプレートの描画を提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/hitoshi/catalog/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページ名。テンプレートファイル名から拡張子を除いたもの。
const (
	PageIndex         = "index"
	PageAbout         = "about"
	PageContact       = "contact"
	PageAddProduct    = "add_product"
	PageUpdateProduct = "update_product"
	PageLogin         = "login"
)

var pages = []string{
	PageIndex,
	PageAbout,
	PageContact,
	PageAddProduct,
	PageUpdateProduct,
	PageLogin,
}

// Data はテンプレートに渡す値。
type Data struct {
	Title     string
	Username  string // ログイン中のユーザー名。未ログインは空
	CSRFToken string
	Products  []model.Product
	Product   *model.Product
}

// Renderer はページごとに layout.html と組み合わせたテンプレートを保持する。
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートを全て解析してRendererを生成する。
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render は指定ページをwに書き込む。
// 描画途中のエラーで不完全なHTMLを返さないよう、一度バッファに書き出す。
func (r *Renderer) Render(w io.Writer, name string, data Data) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown page: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	if rw, ok := w.(http.ResponseWriter); ok {
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, err := buf.WriteTo(w)
	return err
}
