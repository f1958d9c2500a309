package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-wallet/internal/logger"
)

// CoreUseCase 是核心業務邏輯層
// 每個方法一對一對應到 Ledger，只把 domain.ErrNotFound 轉成 AccountNotFound，其餘錯誤原樣回傳
type CoreUseCase struct {
	ledger Ledger
	log    zerolog.Logger
}

// Option CoreUseCase 的設定選項
type Option func(*CoreUseCase)

// WithLogger 設定 logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *CoreUseCase) {
		c.log = l
	}
}

func NewCoreUseCase(ledger Ledger, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		ledger: ledger,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateAccount 建立帳戶
func (c *CoreUseCase) CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (domain.AccountSnapshot, error) {
	snap, err := c.ledger.CreateAccount(ctx, initialBalance)
	if err != nil {
		c.logInternal(ctx, err, "create account failed")
		return domain.AccountSnapshot{}, err
	}
	return snap, nil
}

// GetAccount 取得帳戶
func (c *CoreUseCase) GetAccount(ctx context.Context, id string) (domain.AccountSnapshot, error) {
	snap, err := c.ledger.GetAccount(ctx, id)
	if err != nil {
		return domain.AccountSnapshot{}, c.translate(ctx, id, err)
	}
	return snap, nil
}

// Transfer 轉帳，成功時回傳雙方轉帳後的快照
func (c *CoreUseCase) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (domain.TransferResult, error) {
	res, err := c.ledger.Transfer(ctx, fromID, toID, amount)
	if err != nil {
		c.logInternal(ctx, err, "transfer failed")
		return domain.TransferResult{}, err
	}
	return res, nil
}

// DeleteAccount 刪除帳戶
func (c *CoreUseCase) DeleteAccount(ctx context.Context, id string) error {
	if err := c.ledger.DeleteAccount(ctx, id); err != nil {
		return c.translate(ctx, id, err)
	}
	return nil
}

// ListAccounts 列出所有帳戶
func (c *CoreUseCase) ListAccounts(ctx context.Context) ([]domain.AccountSnapshot, error) {
	return c.ledger.ListAccounts(ctx)
}

// ListAudit 稽核紀錄
func (c *CoreUseCase) ListAudit(ctx context.Context) []string {
	return c.ledger.AuditTrail(ctx)
}

func (c *CoreUseCase) translate(ctx context.Context, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewAccountNotFound(id)
	}
	c.logInternal(ctx, err, "ledger operation failed")
	return err
}

// logInternal 依錯誤種類決定等級，優先使用 context 中的 request logger
func (c *CoreUseCase) logInternal(ctx context.Context, err error, msg string) {
	log := logger.FromOr(ctx, c.log)
	switch {
	case errors.Is(err, domain.ErrAllocationExhausted), errors.Is(err, domain.ErrLockTimeout):
		log.Error().Err(err).Msg(msg)
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrInsufficientResources),
		errors.Is(err, domain.ErrInvalidArgument):
		log.Debug().Err(err).Msg(msg)
	default:
		log.Warn().Err(err).Msg(msg)
	}
}
