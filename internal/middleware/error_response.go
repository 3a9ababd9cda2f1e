package middleware

import (
	"net/http"

	"github.com/hitoshi/catalog/internal/model"
)

// ErrorCodeHeader はエラーコードを返すレスポンスヘッダー名。
const ErrorCodeHeader = "X-Error-Code"

// WriteErrorResponse はAPIErrorをプレーンテキストで書き込む。
// 本文はメッセージのみとし、コードはヘッダーで返す。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set(ErrorCodeHeader, apiErr.Code)
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(apiErr.Message))
}

// WriteInternalServerError は内部サーバーエラーのレスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
