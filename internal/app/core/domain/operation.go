package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OperationKind 操作類型
// 為了節省記憶體，使用 uint8
type OperationKind uint8

const (
	// 建立帳戶
	OperationKindCreate OperationKind = 1
	// 轉帳
	OperationKindTransfer OperationKind = 2
	// 刪除帳戶
	OperationKindDelete OperationKind = 3
)

func (k OperationKind) String() string {
	switch k {
	case OperationKindCreate:
		return "create"
	case OperationKindTransfer:
		return "transfer"
	case OperationKindDelete:
		return "delete"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// OperationRecord 稽核紀錄
// 寫入後不可變更，Audit() 每次呼叫時才組出字串
type OperationRecord interface {
	Kind() OperationKind
	Audit() string
}

// CreateOperation 建立帳戶
type CreateOperation struct {
	ID             string
	InitialBalance decimal.Decimal
}

func (CreateOperation) Kind() OperationKind { return OperationKindCreate }

func (o CreateOperation) Audit() string {
	return fmt.Sprintf("Created account '%s' with balance '%s'", o.ID, FormatAmount(o.InitialBalance))
}

// TransferOperation 轉帳
type TransferOperation struct {
	From   string
	To     string
	Amount decimal.Decimal
}

func (TransferOperation) Kind() OperationKind { return OperationKindTransfer }

// Audit 注意 "Transfered" 的拼字需與既有的下游消費者保持一致，不可修正
func (o TransferOperation) Audit() string {
	return fmt.Sprintf("Transfered '%s' from account '%s' to account '%s'", FormatAmount(o.Amount), o.From, o.To)
}

// DeleteOperation 刪除帳戶
type DeleteOperation struct {
	ID string
}

func (DeleteOperation) Kind() OperationKind { return OperationKindDelete }

func (o DeleteOperation) Audit() string {
	return fmt.Sprintf("Deleted account '%s'", o.ID)
}

// FormatAmount 保留輸入時的小數位數，1000.0 會輸出 "1000.0" 而不是 "1000"
func FormatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// AuditEntry 稽核紀錄在帳本中的一筆
//
// 結構:
//
//	RunID: 產生紀錄的程序實例，重啟後 Sequence 從 1 開始，需搭配 RunID 才唯一
//	Sequence: 寫入順序，從 1 開始
//	At: 寫入時間
//	Record: 操作內容
type AuditEntry struct {
	RunID    string
	Sequence uint64
	At       time.Time
	Record   OperationRecord
}

var (
	_ OperationRecord = CreateOperation{}
	_ OperationRecord = TransferOperation{}
	_ OperationRecord = DeleteOperation{}
)
