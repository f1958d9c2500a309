package grpc

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
)

// accountResourceType errdetails.ResourceInfo 的 resource_type
const accountResourceType = "account"

// toStatus 把帳本錯誤轉成 gRPC status
//
//	找不到帳戶 -> NotFound (附 ResourceInfo)
//	參數錯誤 -> InvalidArgument
//	餘額不足 -> FailedPrecondition
//	等鎖逾時 -> DeadlineExceeded
//	其他 -> Internal
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrNotFound):
		st := status.New(codes.NotFound, err.Error())
		withDetails, detailErr := st.WithDetails(&errdetails.ResourceInfo{
			ResourceType: accountResourceType,
			ResourceName: domain.AccountIDOf(err),
			Description:  err.Error(),
		})
		if detailErr != nil {
			return st.Err()
		}
		return withDetails.Err()
	case errors.Is(err, domain.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInsufficientResources):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// NotFoundAccountID 從 NotFound status 取出帳戶 ID
func NotFoundAccountID(err error) (string, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		return "", false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ResourceInfo); ok && info.GetResourceType() == accountResourceType {
			return info.GetResourceName(), true
		}
	}
	return "", false
}
