package domain

import "github.com/shopspring/decimal"

// Account 帳戶狀態
// 只是一個單純的值，鎖由 AccountStore 依帳戶 ID 另外管理，不內嵌在這裡
type Account struct {
	ID      string
	Balance decimal.Decimal
}

// NewAccount 建立帳戶
func NewAccount(id string, balance decimal.Decimal) Account {
	return Account{
		ID:      id,
		Balance: balance,
	}
}

// Deposit 存款
func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidArgument
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw 提款，餘額不足時不做任何修改
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidArgument
	}
	if a.Balance.LessThan(amount) {
		return NewInsufficientResources(a.ID)
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Snapshot 複製出一份與帳戶本體無關的快照
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		ID:      a.ID,
		Balance: a.Balance,
	}
}

// AccountSnapshot 回傳給呼叫端的帳戶快照
// 修改快照不會影響帳本內的狀態
type AccountSnapshot struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// TransferResult 轉帳後雙方的帳戶快照
// 各自在自己的臨界區內取得，兩者不是同一時間點的一致切面
type TransferResult struct {
	From AccountSnapshot `json:"from"`
	To   AccountSnapshot `json:"to"`
}
