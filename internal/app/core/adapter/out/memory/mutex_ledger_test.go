package memory

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
)

func TestMutexLedger_Lifecycle(t *testing.T) {
	ctx := context.Background()
	ledger := NewMutexLedger(Config{}, nil, zerolog.Nop())

	a, err := ledger.CreateAccount(ctx, dec("2.2"))
	require.NoError(t, err)
	b, err := ledger.CreateAccount(ctx, dec("0"))
	require.NoError(t, err)
	require.Equal(t, 2, ledger.AccountCount())

	res, err := ledger.Transfer(ctx, a.ID, b.ID, dec("1.1"))
	require.NoError(t, err)
	require.True(t, res.From.Balance.Equal(dec("1.1")))
	require.True(t, res.To.Balance.Equal(dec("1.1")))

	require.NoError(t, ledger.DeleteAccount(ctx, a.ID))
	_, err = ledger.GetAccount(ctx, a.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	list, err := ledger.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, b.ID, list[0].ID)

	require.Equal(t, []string{
		"Created account '" + a.ID + "' with balance '2.2'",
		"Created account '" + b.ID + "' with balance '0'",
		"Transfered '1.1' from account '" + a.ID + "' to account '" + b.ID + "'",
		"Deleted account '" + a.ID + "'",
	}, ledger.AuditTrail(ctx))
}

func TestMutexLedger_RandomTransfersConserveFunds(t *testing.T) {
	ctx := context.Background()
	ledger := NewMutexLedger(Config{}, nil, zerolog.Nop())

	const (
		accounts = 8
		workers  = 16
		rounds   = 200
	)
	ids := make([]string, 0, accounts)
	total := decimal.Zero
	for i := 0; i < accounts; i++ {
		bal := decimal.NewFromInt(int64(100 + i*10))
		snap, err := ledger.CreateAccount(ctx, bal)
		require.NoError(t, err)
		ids = append(ids, snap.ID)
		total = total.Add(bal)
	}

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		rng := rand.New(rand.NewSource(int64(w)))
		g.Go(func() error {
			for r := 0; r < rounds; r++ {
				from := ids[rng.Intn(accounts)]
				to := ids[rng.Intn(accounts)]
				amount := decimal.New(int64(rng.Intn(5000)+1), -2)
				_, err := ledger.Transfer(ctx, from, to, amount)
				switch {
				case err == nil:
				case errors.Is(err, domain.ErrInsufficientResources),
					errors.Is(err, domain.ErrInvalidArgument):
				default:
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	list, err := ledger.ListAccounts(ctx)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, acc := range list {
		require.False(t, acc.Balance.IsNegative(), "account %s went negative", acc.ID)
		sum = sum.Add(acc.Balance)
	}
	require.True(t, sum.Equal(total), "total %s != %s", sum, total)
}

func TestMutexLedger_UsesInjectedAudit(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditLog()
	ledger := NewMutexLedger(Config{IDGenerator: sequenceGenerator("fixed")}, audit, zerolog.Nop())

	snap, err := ledger.CreateAccount(ctx, dec("1"))
	require.NoError(t, err)
	require.Equal(t, "fixed", snap.ID)
	require.Equal(t, 1, audit.Len())

	_, err = ledger.CreateAccount(ctx, dec("1"))
	require.ErrorIs(t, err, domain.ErrAllocationExhausted)
}

func TestMutexLedger_StalledAuditSinkDoesNotBlockOperations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := newBlockingSink()
	audit := NewAuditLog(WithSinks(sink), WithAuditBuffer(1))
	audit.Start(ctx)
	ledger := NewMutexLedger(Config{}, audit, zerolog.Nop())

	a, err := ledger.CreateAccount(ctx, dec("10"))
	require.NoError(t, err)
	b, err := ledger.CreateAccount(ctx, dec("0"))
	require.NoError(t, err)

	within(t, time.Second, "transfer", func() {
		_, err := ledger.Transfer(ctx, a.ID, b.ID, dec("1"))
		assert.NoError(t, err)
	})
	within(t, time.Second, "audit trail", func() {
		assert.Len(t, ledger.AuditTrail(ctx), 3)
	})
	within(t, time.Second, "delete", func() {
		assert.NoError(t, ledger.DeleteAccount(ctx, b.ID))
	})
	within(t, time.Second, "create", func() {
		_, err := ledger.CreateAccount(ctx, dec("1"))
		assert.NoError(t, err)
	})
	within(t, time.Second, "get", func() {
		got, err := ledger.GetAccount(ctx, a.ID)
		assert.NoError(t, err)
		assert.True(t, got.Balance.Equal(dec("9")))
	})

	close(sink.release)
	cancel()
	<-audit.Done()
}
