package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-wallet/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-wallet/internal/logger"
)

// DefaultAuditBuffer 尚未送到 sink 的紀錄上限
const DefaultAuditBuffer = 1024

// PublishObserver 每次把稽核紀錄送到 sink 後呼叫，err 為 nil 代表成功
type PublishObserver func(sink usecase.AuditSink, err error)

// DropObserver 待送紀錄超過上限而被丟棄時呼叫
type DropObserver func(entry domain.AuditEntry)

// AuditLog 只能追加的稽核紀錄
//
// 結構:
//
//	entries: 依寫入順序排列的紀錄
//	mu: 保護 entries 與 pending，持有時不做任何等待
//	pending: 尚未送到 sink 的紀錄，由 run loop 整批取走
//	signal: 容量 1 的喚醒通道，Append 永遠不會卡在這裡
type AuditLog struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	seq     uint64
	runID   string

	sinks      []usecase.AuditSink
	pending    []domain.AuditEntry
	maxPending int
	stopped    bool
	signal     chan struct{}
	done       chan struct{}
	start      sync.Once
	observer   PublishObserver
	onDrop     DropObserver

	now func() time.Time
	log zerolog.Logger
}

// AuditOption AuditLog 的設定選項
type AuditOption func(*AuditLog)

// WithSinks 設定稽核紀錄的對外鏡像
func WithSinks(sinks ...usecase.AuditSink) AuditOption {
	return func(a *AuditLog) {
		a.sinks = append(a.sinks, sinks...)
	}
}

// WithAuditBuffer 設定待送紀錄上限，超過時新紀錄只留在記憶體，不送 sink
func WithAuditBuffer(size int) AuditOption {
	return func(a *AuditLog) {
		if size > 0 {
			a.maxPending = size
		}
	}
}

// WithPublishObserver 設定送出結果的觀察者 (metrics 使用)
func WithPublishObserver(o PublishObserver) AuditOption {
	return func(a *AuditLog) {
		a.observer = o
	}
}

// WithDropObserver 設定丟棄紀錄的觀察者 (metrics 使用)
func WithDropObserver(o DropObserver) AuditOption {
	return func(a *AuditLog) {
		a.onDrop = o
	}
}

// WithAuditLogger 設定 logger
func WithAuditLogger(l zerolog.Logger) AuditOption {
	return func(a *AuditLog) {
		a.log = l
	}
}

// WithClock 設定時間來源
func WithClock(now func() time.Time) AuditOption {
	return func(a *AuditLog) {
		a.now = now
	}
}

// WithRunID 指定程序實例 ID，預設為隨機 UUID
func WithRunID(id string) AuditOption {
	return func(a *AuditLog) {
		if id != "" {
			a.runID = id
		}
	}
}

// NewAuditLog 建立空的稽核紀錄
// 有設定 sink 時要呼叫 Start 才會送出；沒有 Start 時紀錄只會累積到上限
func NewAuditLog(opts ...AuditOption) *AuditLog {
	a := &AuditLog{
		entries:    make([]domain.AuditEntry, 0),
		runID:      uuid.NewString(),
		maxPending: DefaultAuditBuffer,
		signal:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunID 此稽核紀錄的程序實例 ID
func (a *AuditLog) RunID() string {
	return a.runID
}

// Append 追加一筆紀錄，不會等待 sink
//
// 參數:
//
//	ctx: 上下文，只用來取 request logger
//	record: 操作內容
//
// 回傳:
//
//	domain.AuditEntry: 寫入後的紀錄 (含序號)
func (a *AuditLog) Append(ctx context.Context, record domain.OperationRecord) domain.AuditEntry {
	a.mu.Lock()
	a.seq++
	entry := domain.AuditEntry{
		RunID:    a.runID,
		Sequence: a.seq,
		At:       a.now(),
		Record:   record,
	}
	a.entries = append(a.entries, entry)

	// 在鎖內排入 pending，sink 收到的順序與 entries 相同
	queued, dropped := false, false
	if len(a.sinks) > 0 && !a.stopped {
		if len(a.pending) < a.maxPending {
			a.pending = append(a.pending, entry)
			queued = true
		} else {
			dropped = true
		}
	}
	a.mu.Unlock()

	if queued {
		select {
		case a.signal <- struct{}{}:
		default:
		}
	}
	if dropped {
		logger.FromOr(ctx, a.log).Warn().
			Uint64("seq", entry.Sequence).
			Int("max_pending", a.maxPending).
			Msg("audit sinks are behind, entry not published")
		if a.onDrop != nil {
			a.onDrop(entry)
		}
	}
	return entry
}

// List 依寫入順序回傳稽核字串，每次呼叫時才重新組字串
func (a *AuditLog) List() []string {
	entries := a.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Record.Audit())
	}
	return out
}

// Entries 回傳所有紀錄的複本
func (a *AuditLog) Entries() []domain.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len 紀錄筆數
func (a *AuditLog) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Pending 尚未送到 sink 的筆數
func (a *AuditLog) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Start 啟動輸送帶 (非同步)，ctx 結束後會把剩下的紀錄送完再停止
func (a *AuditLog) Start(ctx context.Context) {
	a.start.Do(func() {
		go a.run(ctx)
	})
}

// Done 輸送帶停止後關閉
func (a *AuditLog) Done() <-chan struct{} {
	return a.done
}

func (a *AuditLog) run(ctx context.Context) {
	defer close(a.done)
	// 關閉時仍要把剩下的紀錄送出
	publishCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			a.drain(publishCtx)
			return
		case <-a.signal:
			for _, entry := range a.takePending(false) {
				a.publish(publishCtx, entry)
			}
		}
	}
}

// drain 停止接收新紀錄，送出剩下的 pending
func (a *AuditLog) drain(ctx context.Context) {
	for _, entry := range a.takePending(true) {
		a.publish(ctx, entry)
	}
}

func (a *AuditLog) takePending(stop bool) []domain.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	batch := a.pending
	a.pending = nil
	if stop {
		a.stopped = true
	}
	return batch
}

func (a *AuditLog) publish(ctx context.Context, entry domain.AuditEntry) {
	for _, sink := range a.sinks {
		err := sink.Publish(ctx, entry)
		if err != nil {
			a.log.Warn().Err(err).
				Uint64("seq", entry.Sequence).
				Str("kind", entry.Record.Kind().String()).
				Msgf("publish audit entry to %T failed", sink)
		}
		if a.observer != nil {
			a.observer(sink, err)
		}
	}
}
