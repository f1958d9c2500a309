package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
)

// Ledger 是帳務系統的介面
// 找不到帳戶時 GetAccount / DeleteAccount 回傳 domain.ErrNotFound，由 CoreUseCase 轉換
type Ledger interface {
	// CreateAccount 建立帳戶
	CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (domain.AccountSnapshot, error)
	// GetAccount 取得帳戶快照
	GetAccount(ctx context.Context, id string) (domain.AccountSnapshot, error)
	// Transfer 轉帳
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (domain.TransferResult, error)
	// DeleteAccount 刪除帳戶
	DeleteAccount(ctx context.Context, id string) error
	// ListAccounts 列出所有帳戶快照
	ListAccounts(ctx context.Context) ([]domain.AccountSnapshot, error)
	// AuditTrail 依寫入順序回傳稽核字串
	AuditTrail(ctx context.Context) []string
}

// AuditSink 稽核紀錄的對外鏡像 (檔案、資料庫)
// 帳本本身從不讀回，只負責寫出
type AuditSink interface {
	Publish(ctx context.Context, entry domain.AuditEntry) error
}
