package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-wallet/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-wallet/pkg/mysql"
)

// sqlAuditOperation 對應資料庫的 audit_operations 表
type sqlAuditOperation struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	RunID     string    `gorm:"column:run_id;type:varchar(36);uniqueIndex:idx_audit_run_seq,priority:1"` // 對應 domain.AuditEntry.RunID
	Sequence  uint64    `gorm:"uniqueIndex:idx_audit_run_seq,priority:2"`                            // 對應 domain.AuditEntry.Sequence
	Kind      uint8     `gorm:"index"`
	AccountID string    `gorm:"column:account_id;type:varchar(64);index"`
	FromID    string    `gorm:"column:from_id;type:varchar(64)"`
	ToID      string    `gorm:"column:to_id;type:varchar(64)"`
	Amount    string    `gorm:"type:decimal(38,18)"`
	Audit     string    `gorm:"type:varchar(512)"`
	At        time.Time `gorm:"column:at;precision:6"`
	CreatedAt int64     `gorm:"autoCreateTime:milli"` // 自動寫入時間
}

func (*sqlAuditOperation) TableName() string {
	return "audit_operations"
}

// AuditRepository 把稽核紀錄鏡像到 MySQL
// 只寫不讀，帳本狀態不會從這裡恢復
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 建立 AuditRepository
func NewAuditRepository(client *mysql.Client) *AuditRepository {
	return &AuditRepository{
		db: client.DB(),
	}
}

// Name 在 metrics 中使用的名稱
func (*AuditRepository) Name() string { return "mysql" }

// Migrate 建立或更新資料表
func (r *AuditRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&sqlAuditOperation{}); err != nil {
		return fmt.Errorf("migrate audit_operations: %w", err)
	}
	return nil
}

// Publish 寫入一筆稽核紀錄
// 以 (run_id, sequence) 為唯一鍵，重送同一筆時不會重複寫入，重啟後的新序號也不會被當成重複
func (r *AuditRepository) Publish(ctx context.Context, entry domain.AuditEntry) error {
	row, err := toSQL(entry)
	if err != nil {
		return err
	}
	if err := r.insert(ctx, &row).Error; err != nil {
		return fmt.Errorf("insert audit operation %s/%d: %w", entry.RunID, entry.Sequence, err)
	}
	return nil
}

// conflictColumns audit_operations 的唯一鍵
var conflictColumns = []clause.Column{{Name: "run_id"}, {Name: "sequence"}}

func (r *AuditRepository) insert(ctx context.Context, row *sqlAuditOperation) *gorm.DB {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: conflictColumns, DoNothing: true}).
		Create(row)
}

func toSQL(entry domain.AuditEntry) (sqlAuditOperation, error) {
	row := sqlAuditOperation{
		RunID:    entry.RunID,
		Sequence: entry.Sequence,
		At:       entry.At.UTC(),
		Amount:   decimal.Zero.String(),
	}
	switch op := entry.Record.(type) {
	case domain.CreateOperation:
		row.AccountID = op.ID
		row.Amount = op.InitialBalance.String()
	case domain.TransferOperation:
		row.FromID = op.From
		row.ToID = op.To
		row.Amount = op.Amount.String()
	case domain.DeleteOperation:
		row.AccountID = op.ID
	default:
		return sqlAuditOperation{}, fmt.Errorf("mysql: unsupported audit record %T", entry.Record)
	}
	row.Kind = uint8(entry.Record.Kind())
	row.Audit = entry.Record.Audit()
	return row, nil
}

var _ usecase.AuditSink = (*AuditRepository)(nil)
