// Package catalog は商品カタログのドメインロジックを提供する。
// 商品の一覧・取得・作成・更新・削除を行い、外部入力（フォーム、CSV）の
// 型変換もここで一元的に行う。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/catalog/internal/model"
	"github.com/hitoshi/catalog/internal/repository"
	"github.com/shopspring/decimal"
)

// 価格はNUMERIC(12,2)で保存されるため、小数点以下2桁に丸める。
const pricePlaces = 2

// 名前・カテゴリの最大文字数。productsテーブルのVARCHAR長に合わせる。
const (
	maxNameLength     = 200
	maxCategoryLength = 100
)

// maxPrice はNUMERIC(12,2)の整数部10桁を超える最小値。
var maxPrice = decimal.New(1, 10)

// OperationRecorder はカタログ操作の結果を記録するインターフェース。
// metrics.Collectorが実装する。
type OperationRecorder interface {
	RecordCatalogOperation(operation, result string)
}

// Sanitizer は商品名・カテゴリからマークアップを除去するインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Service は商品カタログのサービス層。
type Service struct {
	repo      repository.ProductRepository
	sanitizer Sanitizer
	recorder  OperationRecorder
}

// NewService はServiceを生成する。sanitizer、recorderはnilでもよい。
func NewService(repo repository.ProductRepository, sanitizer Sanitizer, recorder OperationRecorder) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

// List は全商品を返す。0件の場合は空スライスを返す。
func (s *Service) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		s.record("list", "error")
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	s.record("list", "ok")
	return products, nil
}

// Get は指定IDの商品を返す。存在しない場合はPRODUCT_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.record("get", "not_found")
		return nil, model.NewProductNotFoundError(id)
	}
	if err != nil {
		s.record("get", "error")
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	s.record("get", "ok")
	return product, nil
}

// Create は商品を作成する。
// ID・価格の変換に失敗した場合はINVALID_INPUT、ID重複はPRODUCT_ALREADY_EXISTSを返す。
func (s *Service) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	id, err := ParseID(in.ID)
	if err != nil {
		s.record("create", "invalid")
		return nil, err
	}
	product, err := s.build(id, in)
	if err != nil {
		s.record("create", "invalid")
		return nil, err
	}

	err = s.repo.Create(ctx, product)
	if errors.Is(err, repository.ErrAlreadyExists) {
		s.record("create", "conflict")
		return nil, model.NewProductAlreadyExistsError(id)
	}
	if err != nil {
		s.record("create", "error")
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}

	s.record("create", "ok")
	slog.Info("product created",
		slog.Int64("product_id", product.ID),
		slog.String("category", product.Category),
	)
	return product, nil
}

// Update は指定IDの商品の名前・価格・カテゴリを上書きする。
// 存在しない場合は何も変更せずPRODUCT_NOT_FOUNDを返す。in.IDは無視する。
func (s *Service) Update(ctx context.Context, id int64, in model.ProductInput) (*model.Product, error) {
	product, err := s.build(id, in)
	if err != nil {
		s.record("update", "invalid")
		return nil, err
	}

	err = s.repo.Update(ctx, product)
	if errors.Is(err, repository.ErrNotFound) {
		s.record("update", "not_found")
		return nil, model.NewProductNotFoundError(id)
	}
	if err != nil {
		s.record("update", "error")
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}

	s.record("update", "ok")
	slog.Info("product updated", slog.Int64("product_id", id))
	return product, nil
}

// Delete は指定IDの商品を削除する。
// 存在しない場合も成功として扱う（冪等）。
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.record("delete", "error")
		return fmt.Errorf("商品の削除に失敗しました: %w", err)
	}

	if !deleted {
		s.record("delete", "noop")
		slog.Info("product delete skipped: not found", slog.Int64("product_id", id))
		return nil
	}

	s.record("delete", "ok")
	slog.Info("product deleted", slog.Int64("product_id", id))
	return nil
}

// Upsert は商品を作成、既存なら上書きする。CSVインポートから使用する。
func (s *Service) Upsert(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	id, err := ParseID(in.ID)
	if err != nil {
		s.record("upsert", "invalid")
		return nil, err
	}
	product, err := s.build(id, in)
	if err != nil {
		s.record("upsert", "invalid")
		return nil, err
	}

	if err := s.repo.Upsert(ctx, product); err != nil {
		s.record("upsert", "error")
		return nil, fmt.Errorf("商品の登録に失敗しました: %w", err)
	}

	s.record("upsert", "ok")
	return product, nil
}

// ParseID は外部入力の文字列を商品IDに変換する。
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, model.NewInvalidInputError("id", "整数で指定してください")
	}
	return id, nil
}

// ParsePrice は外部入力の文字列を価格に変換する。
// 数値でない場合、負数の場合、保存できる桁数を超える場合はINVALID_INPUTを返す。
func ParsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, model.NewInvalidInputError("price", "数値で指定してください")
	}
	if price.IsNegative() {
		return decimal.Zero, model.NewInvalidInputError("price", "0以上で指定してください")
	}
	// 丸めで桁が繰り上がるため、上限は丸めた後に判定する
	price = price.Round(pricePlaces)
	if price.GreaterThanOrEqual(maxPrice) {
		return decimal.Zero, model.NewInvalidInputError("price", "9999999999.99以下で指定してください")
	}
	return price, nil
}

// build は入力値から商品を組み立てる。
func (s *Service) build(id int64, in model.ProductInput) (*model.Product, error) {
	price, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	name := s.clean(in.Name)
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, model.NewInvalidInputError("name", fmt.Sprintf("%d文字以内で指定してください", maxNameLength))
	}
	category := s.clean(in.Category)
	if utf8.RuneCountInString(category) > maxCategoryLength {
		return nil, model.NewInvalidInputError("category", fmt.Sprintf("%d文字以内で指定してください", maxCategoryLength))
	}

	return &model.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Category: category,
	}, nil
}

func (s *Service) clean(raw string) string {
	if s.sanitizer == nil {
		return strings.TrimSpace(raw)
	}
	return s.sanitizer.Sanitize(raw)
}

func (s *Service) record(operation, result string) {
	if s.recorder != nil {
		s.recorder.RecordCatalogOperation(operation, result)
	}
}
