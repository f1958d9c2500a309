package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
)

func TestToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", domain.NewAccountNotFound("a"), codes.NotFound},
		{"invalid", domain.InvalidArgumentf("amount must be positive"), codes.InvalidArgument},
		{"insufficient", domain.NewInsufficientResources("a"), codes.FailedPrecondition},
		{"lock timeout", fmt.Errorf("account a: %w", domain.ErrLockTimeout), codes.DeadlineExceeded},
		{"cancelled", context.Canceled, codes.Canceled},
		{"allocation", domain.ErrAllocationExhausted, codes.Internal},
		{"unknown", errors.New("boom"), codes.Internal},
		{"already status", status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.code, status.Code(toStatus(tc.err)))
		})
	}
	require.NoError(t, toStatus(nil))
}

func TestToStatus_JoinedRollbackFailure(t *testing.T) {
	err := errors.Join(domain.NewAccountNotFound("to"), fmt.Errorf("rollback 4 on account from: %w", domain.ErrNotFound))
	st := toStatus(err)
	require.Equal(t, codes.NotFound, status.Code(st))
	id, ok := NotFoundAccountID(st)
	require.True(t, ok)
	require.Equal(t, "to", id)
}

func TestNotFoundAccountID_OtherCodes(t *testing.T) {
	_, ok := NotFoundAccountID(status.Error(codes.Internal, "x"))
	require.False(t, ok)
	_, ok = NotFoundAccountID(errors.New("plain"))
	require.False(t, ok)
}
