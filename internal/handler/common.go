package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"farmops/internal/middleware"
	"farmops/internal/usecase"
	"farmops/internal/validator"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error   string  `json:"error"`
	Code    string  `json:"code,omitempty"`
	ItemIDs []int64 `json:"item_ids,omitempty"`

	// 入力検証エラーのときだけ。field -> tag
	Fields map[string]string `json:"fields,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

const headerIdempotencyKey = "X-Idempotency-Key"

// 業務エラーの種類をHTTPステータスへ
func statusOf(kind usecase.ErrorKind) int {
	switch kind {
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindInvalidState, usecase.KindStockShortage, usecase.KindConflict:
		return http.StatusConflict
	case usecase.KindValidation:
		return http.StatusBadRequest
	case usecase.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case usecase.KindUnauthorized:
		return http.StatusUnauthorized
	case usecase.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := usecase.AsError(err); ok {
		status := statusOf(ue.Kind)
		if status == http.StatusInternalServerError {
			return c.JSON(status, ErrorResponse{Error: "internal error"})
		}
		return c.JSON(status, ErrorResponse{Error: ue.Message, Code: ue.Code, ItemIDs: ue.ItemIDs})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bodyを読み込んで検証する。失敗したら400を書いてfalse
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: validator.Message(err), Fields: validator.Fields(err)})
	}
	return true, nil
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 日付は "2006-01-02" かRFC3339
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New("invalid date")
	}
	return t, nil
}

func parseOptionalDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := parseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}
