package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/catalog/internal/model"
	"github.com/hitoshi/catalog/internal/view"
)

// --- モック定義 ---

type mockCatalogService struct {
	listFn   func(ctx context.Context) ([]model.Product, error)
	getFn    func(ctx context.Context, id int64) (*model.Product, error)
	createFn func(ctx context.Context, in model.ProductInput) (*model.Product, error)
	updateFn func(ctx context.Context, id int64, in model.ProductInput) (*model.Product, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockCatalogService) List(ctx context.Context) ([]model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Product{}, nil
}

func (m *mockCatalogService) Get(ctx context.Context, id int64) (*model.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewProductNotFoundError(id)
}

func (m *mockCatalogService) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Product{}, nil
}

func (m *mockCatalogService) Update(ctx context.Context, id int64, in model.ProductInput) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return &model.Product{ID: id}, nil
}

func (m *mockCatalogService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockAuthService struct {
	loginFn                func(ctx context.Context, username, password, currentSessionID string) (*model.Session, error)
	logoutFn               func(ctx context.Context, sessionID string) error
	requireAuthenticatedFn func(ctx context.Context, sessionID string) (*model.Session, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password, currentSessionID string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password, currentSessionID)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) RequireAuthenticated(ctx context.Context, sessionID string) (*model.Session, error) {
	if m.requireAuthenticatedFn != nil {
		return m.requireAuthenticatedFn(ctx, sessionID)
	}
	return nil, model.NewUnauthenticatedError()
}

// stubRenderer は描画されたページ名とデータを記録する。
type stubRenderer struct {
	page string
	data view.Data
	err  error
}

func (s *stubRenderer) Render(w io.Writer, name string, data view.Data) error {
	if s.err != nil {
		return s.err
	}
	s.page = name
	s.data = data
	_, err := io.WriteString(w, "<html>"+name+"</html>")
	return err
}

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
