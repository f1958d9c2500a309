package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationAudit(t *testing.T) {
	cases := []struct {
		name   string
		record OperationRecord
		want   string
		kind   OperationKind
	}{
		{
			name:   "create",
			record: CreateOperation{ID: "a-1", InitialBalance: decimal.RequireFromString("2.2")},
			want:   "Created account 'a-1' with balance '2.2'",
			kind:   OperationKindCreate,
		},
		{
			name:   "transfer",
			record: TransferOperation{From: "a-1", To: "b-2", Amount: decimal.RequireFromString("1.1")},
			want:   "Transfered '1.1' from account 'a-1' to account 'b-2'",
			kind:   OperationKindTransfer,
		},
		{
			name:   "delete",
			record: DeleteOperation{ID: "a-1"},
			want:   "Deleted account 'a-1'",
			kind:   OperationKindDelete,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.record.Audit())
			assert.Equal(t, tc.kind, tc.record.Kind())
		})
	}
}

func TestOperationAudit_KeepsScale(t *testing.T) {
	create := CreateOperation{ID: "a", InitialBalance: decimal.RequireFromString("1000.0")}
	require.Equal(t, "Created account 'a' with balance '1000.0'", create.Audit())

	transfer := TransferOperation{From: "a", To: "b", Amount: decimal.RequireFromString("2.20")}
	require.Equal(t, "Transfered '2.20' from account 'a' to account 'b'", transfer.Audit())

	require.Equal(t, "0", FormatAmount(decimal.Zero))
	require.Equal(t, "100", FormatAmount(decimal.NewFromInt(100)))
	require.Equal(t, "0.001", FormatAmount(decimal.RequireFromString("0.001")))
}

func TestAccountWithdraw(t *testing.T) {
	acc := NewAccount("a-1", decimal.RequireFromString("2.2"))

	err := acc.Withdraw(decimal.RequireFromString("4.4"))
	require.ErrorIs(t, err, ErrInsufficientResources)
	require.Equal(t, "a-1", AccountIDOf(err))
	require.True(t, acc.Balance.Equal(decimal.RequireFromString("2.2")))

	require.NoError(t, acc.Withdraw(decimal.RequireFromString("2.2")))
	require.True(t, acc.Balance.IsZero())

	require.ErrorIs(t, acc.Withdraw(decimal.Zero), ErrInvalidArgument)
	require.ErrorIs(t, acc.Deposit(decimal.NewFromInt(-1)), ErrInvalidArgument)
}

func TestSnapshotIsDetached(t *testing.T) {
	acc := NewAccount("a-1", decimal.NewFromInt(10))
	snap := acc.Snapshot()
	snap.Balance = decimal.NewFromInt(99)

	require.True(t, acc.Balance.Equal(decimal.NewFromInt(10)))
}

func TestAccountError(t *testing.T) {
	err := fmt.Errorf("transfer: %w", NewAccountNotFound("x"))

	require.ErrorIs(t, err, ErrAccountNotFound)
	require.False(t, errors.Is(err, ErrInsufficientResources))
	require.Equal(t, "x", AccountIDOf(err))
	require.Equal(t, "transfer: no account with id x found", err.Error())

	require.Empty(t, AccountIDOf(errors.New("plain")))
	require.ErrorIs(t, InvalidArgumentf("amount %s", "-1"), ErrInvalidArgument)
}
