package usecase

import (
	"errors"
	"net/http"
)

// UsecaseはHTTPErrorで失敗理由とステータスを返す。
// Handlerはこれをそのままレスポンスに変換する。
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

//エラー種別ごとのショートカット

// 400 入力不足・不正
func NewValidationError(msg string) error {
	return NewHTTPError(http.StatusBadRequest, msg)
}

// 401
func NewUnauthorizedError() error {
	return NewHTTPError(http.StatusUnauthorized, "unauthorized")
}

// 403 他人のリソース・権限なし
func NewForbiddenError(msg string) error {
	return NewHTTPError(http.StatusForbidden, msg)
}

// 404 IDが解決できない（不正な形式も含む）
func NewNotFoundError() error {
	return NewHTTPError(http.StatusNotFound, "not found")
}

// 409 今の状態では許されない操作
func NewInvalidStateError(msg string) error {
	return NewHTTPError(http.StatusConflict, msg)
}

// 502 外部ゲートウェイ起因
func NewUpstreamError(msg string) error {
	return NewHTTPError(http.StatusBadGateway, msg)
}

// 500
func NewInternalError() error {
	return NewHTTPError(http.StatusInternalServerError, "db error")
}
