package memory

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// maxReaders 同時持有讀鎖的上限，寫鎖一次取走全部
const maxReaders int64 = 1 << 20

// accountLock 每個帳戶專屬的讀寫鎖
// 以 semaphore.Weighted 實作，等待順序為 FIFO，且取得鎖時可被 context 取消
type accountLock struct {
	sem *semaphore.Weighted
}

func newAccountLock() *accountLock {
	return &accountLock{
		sem: semaphore.NewWeighted(maxReaders),
	}
}

// rlock 取得讀鎖
func (l *accountLock) rlock(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *accountLock) runlock() {
	l.sem.Release(1)
}

// lock 取得寫鎖
func (l *accountLock) lock(ctx context.Context) error {
	return l.sem.Acquire(ctx, maxReaders)
}

func (l *accountLock) unlock() {
	l.sem.Release(maxReaders)
}
