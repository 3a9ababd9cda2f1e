package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/catalog/internal/importer"
	"github.com/hitoshi/catalog/internal/middleware"
	"github.com/hitoshi/catalog/internal/model"
	"github.com/hitoshi/catalog/internal/view"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id int64) (*model.Product, error)
	Create(ctx context.Context, in model.ProductInput) (*model.Product, error)
	Update(ctx context.Context, id int64, in model.ProductInput) (*model.Product, error)
	Delete(ctx context.Context, id int64) error
}

// PageRenderer はテンプレート描画のインターフェース。
type PageRenderer interface {
	Render(w io.Writer, name string, data view.Data) error
}

// CatalogHandler は商品の一覧・追加・更新・削除を扱うHTTPハンドラー。
type CatalogHandler struct {
	service  CatalogServiceInterface
	renderer PageRenderer
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface, renderer PageRenderer) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		renderer: renderer,
	}
}

// Index は商品一覧を表示する。
// GET /
func (h *CatalogHandler) Index(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	data := pageData(r, "Products")
	data.Products = products
	render(w, h.renderer, view.PageIndex, data)
}

// AddForm は商品追加フォームを表示する。
// GET /add
func (h *CatalogHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	render(w, h.renderer, view.PageAddProduct, pageData(r, "Add Product"))
}

// Add は商品を追加して一覧へリダイレクトする。
// POST /add
func (h *CatalogHandler) Add(w http.ResponseWriter, r *http.Request) {
	in := model.ProductInput{
		ID:       r.PostFormValue("id"),
		Name:     r.PostFormValue("name"),
		Price:    r.PostFormValue("price"),
		Category: r.PostFormValue("category"),
	}

	if _, err := h.service.Create(r.Context(), in); err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ProductID は商品IDをそのままプレーンテキストで返す。ストアは参照しない。
// GET /product/{id}
func (h *CatalogHandler) ProductID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "id of product is : %d", id)
}

// UpdateForm は既存の値を埋めた更新フォームを表示する。
// GET /update_product/{id}
func (h *CatalogHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	data := pageData(r, "Update Product")
	data.Product = product
	render(w, h.renderer, view.PageUpdateProduct, data)
}

// Update は商品を更新して一覧へリダイレクトする。
// POST /update_product/{id}
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	in := model.ProductInput{
		Name:     r.PostFormValue("name"),
		Price:    r.PostFormValue("price"),
		Category: r.PostFormValue("category"),
	}

	if _, err := h.service.Update(r.Context(), id, in); err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Delete は商品を削除して一覧へリダイレクトする。存在しないIDでも成功する。
// GET /delete/{id}
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// ExportCSV はカタログ全体をCSVで返す。
// GET /products.csv
func (h *CatalogHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := importer.Export(r.Context(), h.service, &buf); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// pathID はURLパスの{id}を0以上の整数として取り出す。
// 符号付きの値はルートに一致しないものとして扱う。
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 63)
	if err != nil {
		return 0, false
	}
	return int64(id), true
}

// pageData はリクエストコンテキストからテンプレート共通データを組み立てる。
func pageData(r *http.Request, title string) view.Data {
	data := view.Data{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
	}
	if username, ok := middleware.UsernameFromContext(r.Context()); ok {
		data.Username = username
	}
	return data
}

func render(w http.ResponseWriter, renderer PageRenderer, name string, data view.Data) {
	if err := renderer.Render(w, name, data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
	}
}
