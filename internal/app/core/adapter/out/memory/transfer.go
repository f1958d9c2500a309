package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-wallet/internal/logger"
)

// accountLocker TransferEngine 需要的帳戶操作 (由 Store 實作)
type accountLocker interface {
	exists(id string) bool
	withWriteLock(ctx context.Context, id string, fn func(acc *domain.Account) error) error
}

// TransferEngine 轉帳引擎
// 一次只持有一個帳戶的鎖：先扣款、釋放，再入帳，所以兩筆反方向的轉帳不會互相死鎖。
// 扣款與入帳之間，同時讀兩個帳戶的人會看到總額暫時少了 amount。
type TransferEngine struct {
	accounts accountLocker
	audit    *AuditLog
	log      zerolog.Logger
}

// NewTransferEngine 建立轉帳引擎
func NewTransferEngine(store *Store, audit *AuditLog, log zerolog.Logger) *TransferEngine {
	return newTransferEngine(store, audit, log)
}

func newTransferEngine(accounts accountLocker, audit *AuditLog, log zerolog.Logger) *TransferEngine {
	return &TransferEngine{
		accounts: accounts,
		audit:    audit,
		log:      log,
	}
}

// Transfer 轉帳
//
// 參數:
//
//	ctx: 上下文
//	fromID: 轉出帳戶
//	toID: 轉入帳戶
//	amount: 金額，必須為正數
//
// 回傳:
//
//	domain.TransferResult: 轉帳後雙方快照
//	error: InvalidArgument / AccountNotFound(id) / InsufficientResources(id)，
//	       或入帳失敗 (已回滾扣款) 的原因
func (e *TransferEngine) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (domain.TransferResult, error) {
	// 0. 參數檢查，不取任何鎖
	if !amount.IsPositive() {
		return domain.TransferResult{}, domain.InvalidArgumentf("transfer amount %s must be positive", amount)
	}
	if fromID == toID {
		return domain.TransferResult{}, domain.InvalidArgumentf("cannot transfer to the same account %s", fromID)
	}

	// 1. 確認雙方帳戶存在，先查轉出再查轉入
	if !e.accounts.exists(fromID) {
		return domain.TransferResult{}, domain.NewAccountNotFound(fromID)
	}
	if !e.accounts.exists(toID) {
		return domain.TransferResult{}, domain.NewAccountNotFound(toID)
	}

	var res domain.TransferResult

	// 2. 扣款
	err := e.accounts.withWriteLock(ctx, fromID, func(acc *domain.Account) error {
		if err := acc.Withdraw(amount); err != nil {
			return err
		}
		res.From = acc.Snapshot()
		return nil
	})
	if err != nil {
		logger.FromOr(ctx, e.log).Warn().Err(err).Str("from", fromID).Str("to", toID).Msg("failed transfer on source account")
		return domain.TransferResult{}, accountErr(fromID, err)
	}

	// 3. 入帳，失敗時把款項退回轉出帳戶
	err = e.accounts.withWriteLock(ctx, toID, func(acc *domain.Account) error {
		if err := acc.Deposit(amount); err != nil {
			return err
		}
		res.To = acc.Snapshot()
		return nil
	})
	if err != nil {
		logger.FromOr(ctx, e.log).Warn().Err(err).Str("from", fromID).Str("to", toID).Msg("failed transfer on destination account, rolling back")
		return domain.TransferResult{}, e.rollback(ctx, fromID, amount, accountErr(toID, err))
	}

	// 4. 稽核
	e.audit.Append(ctx, domain.TransferOperation{From: fromID, To: toID, Amount: amount})
	return res, nil
}

// rollback 補償動作：把已扣的款項加回轉出帳戶
// 不受呼叫端取消影響，只受 Store 的鎖等待上限限制
func (e *TransferEngine) rollback(ctx context.Context, fromID string, amount decimal.Decimal, cause error) error {
	err := e.accounts.withWriteLock(context.WithoutCancel(ctx), fromID, func(acc *domain.Account) error {
		return acc.Deposit(amount)
	})
	if err != nil {
		logger.FromOr(ctx, e.log).Error().Err(err).
			Str("account", fromID).
			Str("amount", amount.String()).
			Msg("rollback of transfer failed")
		return errors.Join(cause, fmt.Errorf("rollback %s on account %s: %w", amount, fromID, err))
	}
	return cause
}

// accountErr 把 Store 的 ErrNotFound 換成帶 ID 的 AccountNotFound
func accountErr(id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewAccountNotFound(id)
	}
	return err
}
