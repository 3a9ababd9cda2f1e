package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeProductAlreadyExists = "PRODUCT_ALREADY_EXISTS"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated      = "UNAUTHENTICATED"
)

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID int64) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %d", productID),
		Category: "catalog",
		Action:   "商品IDを確認してください。",
	}
}

// NewProductAlreadyExistsError は商品ID重複エラーを生成する。
func NewProductAlreadyExistsError(productID int64) *APIError {
	return &APIError{
		Code:     ErrCodeProductAlreadyExists,
		Message:  fmt.Sprintf("商品IDは既に使用されています: %d", productID),
		Category: "catalog",
		Action:   "別の商品IDを指定するか、既存の商品を更新してください。",
	}
}

// NewInvalidInputError は入力値の型変換に失敗した場合のエラーを生成する。
func NewInvalidInputError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力値が不正です（%s）: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー不在とパスワード誤りを区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid Credentials",
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewUnauthenticatedError は未ログイン状態で制限ページにアクセスした場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// HasCode はerrがAPIErrorをラップしており、指定コードを持つかどうかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
