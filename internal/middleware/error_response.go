// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wedding-letter/letter-api/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// フロントエンドはclientActionの値で後続動作を機械的に分岐する。
type ErrorResponseBody struct {
	Status        int    `json:"status"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	DetailMessage string `json:"detailMessage,omitempty"`
	ClientAction  string `json:"clientAction"`
	Timestamp     string `json:"timestamp"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Status:        apiErr.Status,
		Code:          apiErr.Code,
		Message:       apiErr.Message,
		DetailMessage: apiErr.DetailMessage,
		ClientAction:  apiErr.ClientAction,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, model.NewInternalError())
}
