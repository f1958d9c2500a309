package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 帳戶索引中找不到該 ID (AccountStore 層級)
	ErrNotFound = errors.New("not found")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientResources 餘額不足
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrInvalidArgument 金額不合法，或轉出轉入為同一帳戶
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAllocationExhausted 帳戶 ID 重試次數用盡
	ErrAllocationExhausted = errors.New("account id allocation exhausted")

	// ErrLockTimeout 等待帳戶鎖逾時
	ErrLockTimeout = errors.New("account lock wait timed out")
)

// AccountError 帶有帳戶 ID 的錯誤
// 可用 errors.Is 比對 Err，用 errors.As 取出 ID
type AccountError struct {
	ID  string
	Err error
}

func (e *AccountError) Error() string {
	switch {
	case errors.Is(e.Err, ErrAccountNotFound):
		return fmt.Sprintf("no account with id %s found", e.ID)
	case errors.Is(e.Err, ErrInsufficientResources):
		return fmt.Sprintf("account %s has insufficient resources to execute operation", e.ID)
	default:
		return fmt.Sprintf("account %s: %v", e.ID, e.Err)
	}
}

func (e *AccountError) Unwrap() error {
	return e.Err
}

// NewAccountNotFound 找不到帳戶
func NewAccountNotFound(id string) error {
	return &AccountError{ID: id, Err: ErrAccountNotFound}
}

// NewInsufficientResources 帳戶餘額不足
func NewInsufficientResources(id string) error {
	return &AccountError{ID: id, Err: ErrInsufficientResources}
}

// InvalidArgumentf 參數錯誤，附上原因
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// AccountIDOf 取出錯誤所指向的帳戶 ID，沒有則回傳空字串
func AccountIDOf(err error) string {
	var accErr *AccountError
	if errors.As(err, &accErr) {
		return accErr.ID
	}
	return ""
}
