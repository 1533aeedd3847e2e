package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// 業務エラーの分類。handlerでHTTPステータスに変換する
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NotFound"
	KindInvalidState     ErrorKind = "InvalidState"
	KindStockShortage    ErrorKind = "StockShortage"
	KindValidation       ErrorKind = "ValidationError"
	KindConflict         ErrorKind = "Conflict"
	KindStoreUnavailable ErrorKind = "StoreUnavailable"
	KindUnauthorized     ErrorKind = "Unauthorized"
	KindForbidden        ErrorKind = "Forbidden"
	KindInternal         ErrorKind = "Internal"
)

const (
	CodeItemNotFound       = "ItemNotFound"
	CodeOrderNotFound      = "OrderNotFound"
	CodeCustomerNotFound   = "CustomerNotFound"
	CodeScheduleNotFound   = "ScheduleNotFound"
	CodePurchaseNotFound   = "PurchaseNotFound"
	CodeSaleNotFound       = "SaleNotFound"
	CodeStockShortage      = "StockShortage"
	CodeInsufficientStock  = "InsufficientStock"
	CodeNegativeStock      = "NegativeStock"
	CodeAlreadyFinalized   = "AlreadyFinalized"
	CodeInvalidTransition  = "InvalidTransition"
	CodeHasDependentEvents = "HasDependentEvents"
	CodeHasOpenOrders      = "HasOpenOrders"
	CodeDuplicateEmail     = "DuplicateEmail"
	CodeDuplicateRequest   = "DuplicateRequest"
	CodeValidation         = "ValidationError"
	CodeStoreUnavailable   = "StoreUnavailable"
	CodeUnauthorized       = "Unauthorized"
	CodeInternal           = "Internal"
)

type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	// 在庫不足のときだけ（足りない品目すべて）
	ItemIDs []int64
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(kind ErrorKind, code string, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func AsError(err error) (*Error, bool) {
	var ue *Error
	ok := errors.As(err, &ue)
	return ue, ok
}

func IsCode(err error, code string) bool {
	ue, ok := AsError(err)
	return ok && ue.Code == code
}

func validationError(message string) *Error {
	return NewError(KindValidation, CodeValidation, message)
}

func notFound(code string, message string) *Error {
	return NewError(KindNotFound, code, message)
}

func unauthorized() *Error {
	return NewError(KindUnauthorized, CodeUnauthorized, "unauthorized")
}

func stockShortage(code string, message string, itemIDs []int64) *Error {
	return &Error{Kind: KindStockShortage, Code: code, Message: message, ItemIDs: itemIDs}
}

// storeErrorは業務エラーはそのまま、それ以外は
// 一時的な障害（タイムアウト・接続断・直列化失敗）→StoreUnavailable、その他→Internal
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	if isTransient(err) {
		return &Error{Kind: KindStoreUnavailable, Code: CodeStoreUnavailable, Message: "store unavailable, retry later"}
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "db error"}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	//期限切れでdatabase/sqlがrollbackした後のクエリ
	if errors.Is(err, sql.ErrTxDone) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			//serialization_failure / deadlock_detected
			return true
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			//connection_exception
			return true
		case pgErr.Code == "57014":
			//query_canceled（statement_timeout）
			return true
		}
	}
	return false
}
