// Package repository はデータ永続化のインターフェースと実装を定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/catalog/internal/model"
)

var (
	// ErrNotFound は指定キーのレコードが存在しないことを示す。
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists は主キーが重複していることを示す。
	ErrAlreadyExists = errors.New("record already exists")
)

// ProductRepository は商品データの永続化インターフェース。
// 単一レコードの操作はそれぞれ1文で完結し、同時書き込みの直列化はDBに委ねる。
type ProductRepository interface {
	// List は全商品をID昇順で返す。0件の場合は空スライスを返す。
	List(ctx context.Context) ([]model.Product, error)

	// FindByID は指定IDの商品を取得する。見つからない場合はErrNotFoundを返す。
	FindByID(ctx context.Context, id int64) (*model.Product, error)

	// Create は商品を作成する。IDが重複している場合はErrAlreadyExistsを返す。
	Create(ctx context.Context, product *model.Product) error

	// Update は名前・価格・カテゴリを上書きする。見つからない場合はErrNotFoundを返す。
	Update(ctx context.Context, product *model.Product) error

	// Delete は指定IDの商品を削除し、削除したかどうかを返す。
	Delete(ctx context.Context, id int64) (bool, error)

	// Upsert は商品を作成、既存なら上書きする。CSVインポート専用。
	Upsert(ctx context.Context, product *model.Product) error
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複している場合はErrAlreadyExistsを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。存在しない、または期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
