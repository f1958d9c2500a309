package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-wallet/internal/app/core/usecase"
)

// recordingSink 記錄收到的稽核紀錄
type recordingSink struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
}

func (s *recordingSink) Publish(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingSink) received() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func TestAuditLog_AppendOrder(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	audit := NewAuditLog(WithClock(func() time.Time { return fixed }))

	first := audit.Append(ctx, domain.CreateOperation{ID: "a", InitialBalance: dec("1")})
	second := audit.Append(ctx, domain.TransferOperation{From: "a", To: "b", Amount: dec("0.5")})
	third := audit.Append(ctx, domain.DeleteOperation{ID: "a"})

	require.Equal(t, uint64(1), first.Sequence)
	require.Equal(t, uint64(2), second.Sequence)
	require.Equal(t, uint64(3), third.Sequence)
	require.Equal(t, fixed, third.At)

	require.Equal(t, []string{
		"Created account 'a' with balance '1'",
		"Transfered '0.5' from account 'a' to account 'b'",
		"Deleted account 'a'",
	}, audit.List())
}

func TestAuditLog_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditLog()

	const n = 500
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			audit.Append(ctx, domain.DeleteOperation{ID: fmt.Sprintf("acc-%d", i)})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	entries := audit.Entries()
	require.Len(t, entries, n)
	for i, e := range entries {
		require.Equal(t, uint64(i+1), e.Sequence)
	}
}

func TestAuditLog_EntriesAreCopies(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditLog()
	audit.Append(ctx, domain.DeleteOperation{ID: "a"})

	entries := audit.Entries()
	entries[0].Record = domain.DeleteOperation{ID: "changed"}

	require.Equal(t, []string{"Deleted account 'a'"}, audit.List())
}

func TestAuditLog_PublishesToSinksInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("disk full")}

	var (
		mu       sync.Mutex
		failures int
	)
	audit := NewAuditLog(
		WithSinks(good, bad),
		WithAuditBuffer(64),
		WithPublishObserver(func(_ usecase.AuditSink, err error) {
			if err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}),
	)
	audit.Start(ctx)

	for i := 0; i < 20; i++ {
		audit.Append(ctx, domain.DeleteOperation{ID: fmt.Sprintf("acc-%d", i)})
	}
	cancel()
	<-audit.Done()

	got := good.received()
	require.Len(t, got, 20)
	for i, e := range got {
		require.Equal(t, uint64(i+1), e.Sequence)
	}
	mu.Lock()
	require.Equal(t, 20, failures)
	mu.Unlock()
}

func TestAuditLog_AppendAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{}
	audit := NewAuditLog(WithSinks(sink), WithAuditBuffer(1))
	audit.Start(ctx)
	cancel()
	<-audit.Done()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			audit.Append(context.Background(), domain.DeleteOperation{ID: "late"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("append blocked after dispatcher stopped")
	}
	require.Equal(t, 5, audit.Len())
}

// blockingSink 在 release 關閉前卡住每一次 Publish
type blockingSink struct {
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingSink() *blockingSink {
	return &blockingSink{release: make(chan struct{})}
}

func (s *blockingSink) Publish(context.Context, domain.AuditEntry) error {
	s.calls.Add(1)
	<-s.release
	return nil
}

// within 在期限內跑完 fn，否則測試失敗
func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s blocked for more than %s", what, d)
	}
}

func TestAuditLog_StalledSinkDoesNotBlockAppend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := newBlockingSink()

	var dropped atomic.Int32
	audit := NewAuditLog(
		WithSinks(sink),
		WithAuditBuffer(1),
		WithDropObserver(func(domain.AuditEntry) { dropped.Add(1) }),
	)
	audit.Start(ctx)

	within(t, time.Second, "append", func() {
		for i := 0; i < 20; i++ {
			audit.Append(ctx, domain.DeleteOperation{ID: fmt.Sprintf("acc-%d", i)})
		}
	})
	within(t, time.Second, "list", func() {
		assert.Len(t, audit.List(), 20)
		assert.Equal(t, 20, audit.Len())
	})
	require.Positive(t, dropped.Load())
	require.LessOrEqual(t, audit.Pending(), 1)

	close(sink.release)
	cancel()
	<-audit.Done()
}

func TestAuditLog_AppendWithoutStart(t *testing.T) {
	var dropped atomic.Int32
	audit := NewAuditLog(
		WithSinks(&recordingSink{}),
		WithAuditBuffer(2),
		WithDropObserver(func(domain.AuditEntry) { dropped.Add(1) }),
	)

	within(t, time.Second, "append", func() {
		for i := 0; i < 5; i++ {
			audit.Append(context.Background(), domain.DeleteOperation{ID: "a"})
		}
	})
	require.Equal(t, 2, audit.Pending())
	require.Equal(t, int32(3), dropped.Load())
	require.Equal(t, 5, audit.Len())
}

func TestAuditLog_RunID(t *testing.T) {
	ctx := context.Background()
	first := NewAuditLog()
	second := NewAuditLog()
	require.NotEmpty(t, first.RunID())
	require.NotEqual(t, first.RunID(), second.RunID())

	a := first.Append(ctx, domain.DeleteOperation{ID: "a"})
	b := second.Append(ctx, domain.DeleteOperation{ID: "a"})
	require.Equal(t, a.Sequence, b.Sequence)
	require.Equal(t, first.RunID(), a.RunID)
	require.Equal(t, second.RunID(), b.RunID)

	fixed := NewAuditLog(WithRunID("run-1"))
	require.Equal(t, "run-1", fixed.Append(ctx, domain.DeleteOperation{ID: "a"}).RunID)
}
