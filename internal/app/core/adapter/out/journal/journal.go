package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-wallet/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-wallet/pkg/wal"
)

// Record journal 中的一行
type Record struct {
	Run      string    `json:"run"`
	Sequence uint64    `json:"seq"`
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	Account  string    `json:"account,omitempty"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Amount   string    `json:"amount,omitempty"`
	Audit    string    `json:"audit"`
}

// Sink 把稽核紀錄以 JSON Lines 寫進檔案
// 只寫不讀，重啟後帳本不會從這裡恢復
type Sink struct {
	w *wal.WAL
}

// NewSink 以已開啟的 WAL 建立 Sink
func NewSink(w *wal.WAL) *Sink {
	return &Sink{w: w}
}

// Name 在 metrics 中使用的名稱
func (*Sink) Name() string { return "journal" }

// Publish 寫入一筆紀錄並刷出緩衝，ctx 取消時直接放棄
// 是否 fsync 由 WAL 的 WithSyncEachWrite 決定
func (s *Sink) Publish(ctx context.Context, entry domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := NewRecord(entry)
	if err != nil {
		return err
	}
	if err := s.w.Append(rec); err != nil {
		return err
	}
	return s.w.Flush()
}

// Close 刷入剩餘資料並關閉檔案
func (s *Sink) Close() error {
	return s.w.Close()
}

// NewRecord 把稽核紀錄轉成 journal 格式
func NewRecord(entry domain.AuditEntry) (Record, error) {
	rec := Record{
		Run:      entry.RunID,
		Sequence: entry.Sequence,
		At:       entry.At.UTC(),
	}
	switch op := entry.Record.(type) {
	case domain.CreateOperation:
		rec.Account = op.ID
		rec.Amount = domain.FormatAmount(op.InitialBalance)
	case domain.TransferOperation:
		rec.From = op.From
		rec.To = op.To
		rec.Amount = domain.FormatAmount(op.Amount)
	case domain.DeleteOperation:
		rec.Account = op.ID
	default:
		return Record{}, fmt.Errorf("journal: unsupported audit record %T", entry.Record)
	}
	rec.Kind = entry.Record.Kind().String()
	rec.Audit = entry.Record.Audit()
	return rec, nil
}

var _ usecase.AuditSink = (*Sink)(nil)
