package grpc

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
)

// Client LedgerService 的用戶端，訊息以 JSON 編碼
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 以既有連線建立 Client
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *Client) CreateAccount(ctx context.Context, initialBalance decimal.Decimal, opts ...grpc.CallOption) (*Account, error) {
	out := new(Account)
	if err := c.invoke(ctx, MethodCreateAccount, &CreateAccountRequest{InitialBalance: initialBalance}, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAccount(ctx context.Context, id string, opts ...grpc.CallOption) (*Account, error) {
	out := new(Account)
	if err := c.invoke(ctx, MethodGetAccount, &GetAccountRequest{ID: id}, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Transfer(ctx context.Context, from, to string, amount decimal.Decimal, opts ...grpc.CallOption) (*TransferResponse, error) {
	out := new(TransferResponse)
	req := &TransferRequest{From: from, To: to, Amount: amount}
	if err := c.invoke(ctx, MethodTransfer, req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteAccount(ctx context.Context, id string, opts ...grpc.CallOption) error {
	return c.invoke(ctx, MethodDeleteAccount, &DeleteAccountRequest{ID: id}, new(DeleteAccountResponse), opts)
}

func (c *Client) ListAudit(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(ListAuditResponse)
	if err := c.invoke(ctx, MethodListAudit, &ListAuditRequest{}, out, opts); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) ListAccounts(ctx context.Context, opts ...grpc.CallOption) ([]*Account, error) {
	out := new(ListAccountsResponse)
	if err := c.invoke(ctx, MethodListAccounts, &ListAccountsRequest{}, out, opts); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}
