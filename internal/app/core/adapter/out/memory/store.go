package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
)

// DefaultLockTimeout 等待帳戶鎖的預設上限
const DefaultLockTimeout = 5 * time.Second

// slot 帳戶索引中的一格
// id 不可變，account 與 removed 只能在持有 lock 時讀寫
type slot struct {
	id      string
	lock    *accountLock
	account domain.Account
	removed bool
}

// Store 帳戶索引，負責帳戶的新增、刪除與每個帳戶的鎖
//
// 結構:
//
//	index: 帳戶 ID -> slot
//	mu: 只保護 index 的 key 集合，餘額由各帳戶自己的鎖保護
//	alloc: 帳戶 ID 分配器
//	audit: 稽核紀錄
type Store struct {
	mu          sync.RWMutex
	index       map[string]*slot
	alloc       *IDAllocator
	audit       *AuditLog
	lockTimeout time.Duration
	log         zerolog.Logger
}

// StoreOption Store 的設定選項
type StoreOption func(*Store)

// WithAllocator 設定帳戶 ID 分配器
func WithAllocator(alloc *IDAllocator) StoreOption {
	return func(s *Store) {
		s.alloc = alloc
	}
}

// WithLockTimeout 設定等待帳戶鎖的上限，0 代表只受 ctx 控制
func WithLockTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// WithStoreLogger 設定 logger
func WithStoreLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = l
	}
}

// NewStore 建立空的帳戶索引
func NewStore(audit *AuditLog, opts ...StoreOption) *Store {
	s := &Store{
		index:       make(map[string]*slot),
		audit:       audit,
		lockTimeout: DefaultLockTimeout,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.alloc == nil {
		s.alloc = NewIDAllocator(nil, DefaultMaxAttempts)
	}
	s.alloc.log = s.log
	return s
}

// Create 建立帳戶
//
// 參數:
//
//	ctx: 上下文
//	initialBalance: 初始餘額，不可為負
//
// 回傳:
//
//	domain.AccountSnapshot: 新帳戶的快照
//	error: domain.ErrInvalidArgument 或 domain.ErrAllocationExhausted
func (s *Store) Create(ctx context.Context, initialBalance decimal.Decimal) (domain.AccountSnapshot, error) {
	if initialBalance.IsNegative() {
		return domain.AccountSnapshot{}, domain.InvalidArgumentf("initial balance %s is negative", initialBalance)
	}

	var created *slot
	id, err := s.alloc.Allocate(func(id string) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.index[id]; exists {
			return false
		}
		sl := &slot{
			id:      id,
			lock:    newAccountLock(),
			account: domain.NewAccount(id, initialBalance),
		}
		// 新帳戶在放進索引前就先鎖上，讓 Create 紀錄一定排在同帳戶的其他紀錄之前
		sl.lock.sem.TryAcquire(maxReaders)
		s.index[id] = sl
		created = sl
		return true
	})
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	defer created.lock.unlock()

	s.audit.Append(ctx, domain.CreateOperation{ID: id, InitialBalance: initialBalance})
	return created.account.Snapshot(), nil
}

// Get 取得帳戶快照 (讀鎖)
// 回傳的永遠是複本，不會是帳本內的帳戶
func (s *Store) Get(ctx context.Context, id string) (domain.AccountSnapshot, error) {
	sl, ok := s.lookup(id)
	if !ok {
		return domain.AccountSnapshot{}, notFound(id)
	}

	ctx, cancel := s.lockContext(ctx)
	defer cancel()
	if err := sl.lock.rlock(ctx); err != nil {
		return domain.AccountSnapshot{}, lockError(id, err)
	}
	defer sl.lock.runlock()

	if sl.removed {
		return domain.AccountSnapshot{}, notFound(id)
	}
	return sl.account.Snapshot(), nil
}

// Delete 刪除帳戶
// 先取得帳戶寫鎖，等進行中的異動結束後才移除，之後的 Get 一定拿到 NotFound
func (s *Store) Delete(ctx context.Context, id string) error {
	sl, ok := s.lookup(id)
	if !ok {
		return notFound(id)
	}

	lockCtx, cancel := s.lockContext(ctx)
	defer cancel()
	if err := sl.lock.lock(lockCtx); err != nil {
		return lockError(id, err)
	}
	removed := s.remove(id, sl)
	sl.lock.unlock()

	if !removed {
		return notFound(id)
	}
	// 帳戶已標記刪除，放開寫鎖後才寫稽核
	s.audit.Append(ctx, domain.DeleteOperation{ID: id})
	return nil
}

// remove 從索引移除並標記刪除，呼叫端必須持有 sl 的寫鎖
func (s *Store) remove(id string, sl *slot) bool {
	if sl.removed {
		return false
	}
	s.mu.Lock()
	if s.index[id] == sl {
		delete(s.index, id)
	}
	s.mu.Unlock()
	sl.removed = true
	return true
}

// List 所有帳戶的快照，依 ID 排序
// 每個帳戶各自在讀鎖下複製，不是同一時間點的一致切面
func (s *Store) List(ctx context.Context) ([]domain.AccountSnapshot, error) {
	s.mu.RLock()
	slots := make([]*slot, 0, len(s.index))
	for _, sl := range s.index {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	out := make([]domain.AccountSnapshot, 0, len(slots))
	for _, sl := range slots {
		snap, ok, err := s.readSlot(ctx, sl)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, snap)
		}
	}
	slices.SortFunc(out, func(a, b domain.AccountSnapshot) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Count 目前帳戶數
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// exists 帳戶是否存在 (不取帳戶鎖)
func (s *Store) exists(id string) bool {
	_, ok := s.lookup(id)
	return ok
}

// withWriteLock 取得帳戶寫鎖後執行 fn
// fn 操作的是複本，只有在 fn 成功且餘額非負時才寫回，任何離開路徑都會釋放鎖
func (s *Store) withWriteLock(ctx context.Context, id string, fn func(acc *domain.Account) error) error {
	sl, ok := s.lookup(id)
	if !ok {
		return notFound(id)
	}

	ctx, cancel := s.lockContext(ctx)
	defer cancel()

	s.log.Debug().Str("account", id).Msg("locking account")
	if err := sl.lock.lock(ctx); err != nil {
		return lockError(id, err)
	}
	s.log.Debug().Str("account", id).Msg("locked account")
	defer func() {
		sl.lock.unlock()
		s.log.Debug().Str("account", id).Msg("unlocked account")
	}()

	if sl.removed {
		return notFound(id)
	}

	acc := sl.account
	if err := fn(&acc); err != nil {
		return err
	}
	if acc.Balance.IsNegative() {
		return domain.NewInsufficientResources(id)
	}
	sl.account = acc
	return nil
}

func (s *Store) readSlot(ctx context.Context, sl *slot) (domain.AccountSnapshot, bool, error) {
	ctx, cancel := s.lockContext(ctx)
	defer cancel()
	if err := sl.lock.rlock(ctx); err != nil {
		return domain.AccountSnapshot{}, false, lockError(sl.id, err)
	}
	defer sl.lock.runlock()
	if sl.removed {
		return domain.AccountSnapshot{}, false, nil
	}
	return sl.account.Snapshot(), true, nil
}

func (s *Store) lookup(id string) (*slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.index[id]
	return sl, ok
}

func (s *Store) lockContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.lockTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.lockTimeout)
}

func notFound(id string) error {
	return fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
}

func lockError(id string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: account %s: %w", domain.ErrLockTimeout, id, err)
	}
	return fmt.Errorf("lock account %s: %w", id, err)
}
