package grpc

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/usecase"
)

// GrpcServer 把 LedgerService 的請求轉給 CoreUseCase
type GrpcServer struct {
	core *usecase.CoreUseCase
}

// NewGrpcServer 建立 GrpcServer
func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

// NewServer 建立 gRPC server，註冊 LedgerService、health 與 reflection
//
// 參數:
//
//	core: 帳本門面
//	log: 存取日誌
//	observer: 請求指標，可為 nil
//	opts: 額外的 server 選項
//
// 回傳:
//
//	*grpc.Server: 尚未 Serve 的 server
//	*health.Server: 關閉前可以把狀態設成 NOT_SERVING
func NewServer(core *usecase.CoreUseCase, log zerolog.Logger, observer RequestObserver, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(log, observer)),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterLedgerServiceServer(s, NewGrpcServer(core))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s) // 方便 grpcurl 之類的工具列出服務
	return s, hs
}

func (s *GrpcServer) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*Account, error) {
	snap, err := s.core.CreateAccount(ctx, req.InitialBalance)
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccount(snap), nil
}

func (s *GrpcServer) GetAccount(ctx context.Context, req *GetAccountRequest) (*Account, error) {
	snap, err := s.core.GetAccount(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toAccount(snap), nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	res, err := s.core.Transfer(ctx, req.From, req.To, req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TransferResponse{
		From: toAccount(res.From),
		To:   toAccount(res.To),
	}, nil
}

func (s *GrpcServer) DeleteAccount(ctx context.Context, req *DeleteAccountRequest) (*DeleteAccountResponse, error) {
	if err := s.core.DeleteAccount(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &DeleteAccountResponse{}, nil
}

func (s *GrpcServer) ListAudit(ctx context.Context, _ *ListAuditRequest) (*ListAuditResponse, error) {
	entries := s.core.ListAudit(ctx)
	if entries == nil {
		entries = []string{}
	}
	return &ListAuditResponse{Entries: entries}, nil
}

func (s *GrpcServer) ListAccounts(ctx context.Context, _ *ListAccountsRequest) (*ListAccountsResponse, error) {
	snaps, err := s.core.ListAccounts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	accounts := make([]*Account, 0, len(snaps))
	for _, snap := range snaps {
		accounts = append(accounts, toAccount(snap))
	}
	return &ListAccountsResponse{Accounts: accounts}, nil
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
