package memory

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-wallet/internal/app/core/usecase"
)

// MutexLedger 是一個以每帳戶讀寫鎖實現的記憶體帳本
//
// 結構:
//
//	store: 帳戶索引與帳戶鎖
//	engine: 轉帳引擎
//	audit: 稽核紀錄
type MutexLedger struct {
	store  *Store
	engine *TransferEngine
	audit  *AuditLog
}

// Config MutexLedger 的設定
type Config struct {
	// IDMaxAttempts 產生帳戶 ID 的最多嘗試次數
	IDMaxAttempts int
	// IDGenerator nil 時使用 UUID
	IDGenerator IDGenerator
	// LockTimeout 等待帳戶鎖的上限，0 代表只受 ctx 控制
	LockTimeout time.Duration
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	cfg: 帳本設定
//	audit: 稽核紀錄，nil 時建立一個沒有 sink 的
//	log: logger
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
func NewMutexLedger(cfg Config, audit *AuditLog, log zerolog.Logger) *MutexLedger {
	if audit == nil {
		audit = NewAuditLog(WithAuditLogger(log))
	}
	store := NewStore(audit,
		WithAllocator(NewIDAllocator(cfg.IDGenerator, cfg.IDMaxAttempts)),
		WithLockTimeout(cfg.LockTimeout),
		WithStoreLogger(log),
	)
	return &MutexLedger{
		store:  store,
		engine: NewTransferEngine(store, audit, log),
		audit:  audit,
	}
}

// CreateAccount 建立帳戶
func (m *MutexLedger) CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (domain.AccountSnapshot, error) {
	return m.store.Create(ctx, initialBalance)
}

// GetAccount 取得帳戶快照
func (m *MutexLedger) GetAccount(ctx context.Context, id string) (domain.AccountSnapshot, error) {
	return m.store.Get(ctx, id)
}

// Transfer 轉帳
func (m *MutexLedger) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (domain.TransferResult, error) {
	return m.engine.Transfer(ctx, fromID, toID, amount)
}

// DeleteAccount 刪除帳戶
func (m *MutexLedger) DeleteAccount(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// ListAccounts 列出所有帳戶
func (m *MutexLedger) ListAccounts(ctx context.Context) ([]domain.AccountSnapshot, error) {
	return m.store.List(ctx)
}

// AuditTrail 稽核字串
func (m *MutexLedger) AuditTrail(_ context.Context) []string {
	return m.audit.List()
}

// AccountCount 目前帳戶數 (metrics 使用)
func (m *MutexLedger) AccountCount() int {
	return m.store.Count()
}

var _ usecase.Ledger = (*MutexLedger)(nil)
