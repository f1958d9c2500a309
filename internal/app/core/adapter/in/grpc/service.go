package grpc

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
)

// ServiceName gRPC 服務名稱
const ServiceName = "ledger.v1.LedgerService"

// 各方法的完整名稱
const (
	MethodCreateAccount = "/" + ServiceName + "/CreateAccount"
	MethodGetAccount    = "/" + ServiceName + "/GetAccount"
	MethodTransfer      = "/" + ServiceName + "/Transfer"
	MethodDeleteAccount = "/" + ServiceName + "/DeleteAccount"
	MethodListAudit     = "/" + ServiceName + "/ListAudit"
	MethodListAccounts  = "/" + ServiceName + "/ListAccounts"
)

// Account 帳戶快照
type Account struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

func toAccount(s domain.AccountSnapshot) *Account {
	return &Account{ID: s.ID, Balance: s.Balance}
}

type CreateAccountRequest struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type GetAccountRequest struct {
	ID string `json:"id"`
}

type TransferRequest struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type TransferResponse struct {
	From *Account `json:"from"`
	To   *Account `json:"to"`
}

type DeleteAccountRequest struct {
	ID string `json:"id"`
}

type DeleteAccountResponse struct{}

type ListAuditRequest struct{}

type ListAuditResponse struct {
	Entries []string `json:"entries"`
}

type ListAccountsRequest struct{}

type ListAccountsResponse struct {
	Accounts []*Account `json:"accounts"`
}

// LedgerServiceServer 服務端需實作的介面
type LedgerServiceServer interface {
	CreateAccount(context.Context, *CreateAccountRequest) (*Account, error)
	GetAccount(context.Context, *GetAccountRequest) (*Account, error)
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	DeleteAccount(context.Context, *DeleteAccountRequest) (*DeleteAccountResponse, error)
	ListAudit(context.Context, *ListAuditRequest) (*ListAuditResponse, error)
	ListAccounts(context.Context, *ListAccountsRequest) (*ListAccountsResponse, error)
}

// RegisterLedgerServiceServer 把實作註冊到 gRPC server
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// LedgerServiceDesc 服務描述
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateAccount",
			Handler:    unaryHandler(MethodCreateAccount, LedgerServiceServer.CreateAccount),
		},
		{
			MethodName: "GetAccount",
			Handler:    unaryHandler(MethodGetAccount, LedgerServiceServer.GetAccount),
		},
		{
			MethodName: "Transfer",
			Handler:    unaryHandler(MethodTransfer, LedgerServiceServer.Transfer),
		},
		{
			MethodName: "DeleteAccount",
			Handler:    unaryHandler(MethodDeleteAccount, LedgerServiceServer.DeleteAccount),
		},
		{
			MethodName: "ListAudit",
			Handler:    unaryHandler(MethodListAudit, LedgerServiceServer.ListAudit),
		},
		{
			MethodName: "ListAccounts",
			Handler:    unaryHandler(MethodListAccounts, LedgerServiceServer.ListAccounts),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.json",
}

// unaryHandler 解碼請求並經過 interceptor 呼叫 call
func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(LedgerServiceServer, context.Context, *Req) (*Resp, error),
) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode request: %s", status.Convert(err).Message())
		}
		server := srv.(LedgerServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
