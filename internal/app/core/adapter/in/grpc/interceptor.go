package grpc

import (
	"context"
	"path"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-wallet/internal/logger"
)

// RequestObserver 記錄每次請求的結果 (metrics 使用)
type RequestObserver interface {
	ObserveRequest(method, code string, elapsed time.Duration)
}

// UnaryServerInterceptor 記錄存取日誌與 metrics，並把 logger 放進 context
func UnaryServerInterceptor(log zerolog.Logger, observer RequestObserver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		method := path.Base(info.FullMethod)
		reqLog := log.With().Str("method", method).Logger()
		ctx = logger.With(ctx, reqLog)

		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		if observer != nil {
			observer.ObserveRequest(method, code.String(), elapsed)
		}

		var ev *zerolog.Event
		switch code {
		case codes.OK:
			ev = reqLog.Debug()
		case codes.Internal, codes.Unknown, codes.DeadlineExceeded:
			ev = reqLog.Error().Err(err)
		default:
			ev = reqLog.Info().Err(err)
		}
		ev.Str("code", code.String()).Dur("elapsed", elapsed).Msg("rpc finished")
		return resp, err
	}
}
