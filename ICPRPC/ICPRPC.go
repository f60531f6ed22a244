package ICPRPC

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ybbus/jsonrpc"

	"gowicpbridge/errs"
	"gowicpbridge/logger"
	"gowicpbridge/types"
)

// PrincipalHeader carries the caller identity to the ledger gateway.
const PrincipalHeader = "X-Ic-Principal"

// Client is the bridge canister contract, reached through a JSON-RPC
// gateway. Caller-scoped methods answer for the principal the client was
// created with (see As).
type Client struct {
	url        string
	httpClient *http.Client
	principal  string
	rpc        jsonrpc.RPCClient
}

// New returns an anonymous client. timeout bounds each request.
func New(url string, timeout time.Duration) *Client {
	return newClient(url, &http.Client{Timeout: timeout}, "")
}

func newClient(url string, httpClient *http.Client, principal string) *Client {
	opts := &jsonrpc.RPCClientOpts{HTTPClient: httpClient}
	if principal != "" {
		opts.CustomHeaders = map[string]string{PrincipalHeader: principal}
	}
	return &Client{
		url:        url,
		httpClient: httpClient,
		principal:  principal,
		rpc:        jsonrpc.NewClientWithOpts(url, opts),
	}
}

// As returns a client calling on behalf of principal.
func (c *Client) As(principal string) *Client {
	return newClient(c.url, c.httpClient, principal)
}

func (c *Client) Principal() string {
	return c.principal
}

func (c *Client) call(ctx context.Context, out any, method string, params ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.DebugContext(ctx, "ledger call", "method", method)
	return errors.Wrap(c.rpc.CallFor(out, method, params...), method)
}

// BridgeDeposit locks amount e8s for recipient on Sui. A business-rule
// refusal comes back as OK=false with the reason in Msg.
func (c *Client) BridgeDeposit(ctx context.Context, amount uint64, recipient string) (*types.DepositReceipt, error) {
	var receipt types.DepositReceipt
	if err := c.call(ctx, &receipt, "bridgeDeposit", amount, recipient); err != nil {
		return nil, err
	}
	return &receipt, nil
}

type signatureResult struct {
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
}

// SignTransactionHash asks the threshold signer for an r||s signature over
// digest.
func (c *Client) SignTransactionHash(ctx context.Context, digest [32]byte) (*types.Signature, error) {
	var res signatureResult
	if err := c.call(ctx, &res, "signTransactionHash", hexutil.Encode(digest[:])); err != nil {
		return nil, errors.Mark(err, errs.SigningFailed)
	}

	sig := &types.Signature{
		Signature: common.FromHex(res.Signature),
		PublicKey: common.FromHex(res.PublicKey),
	}
	if len(sig.Signature) != 64 {
		return nil, errors.Wrapf(errs.SigningFailed, "signer returned %d signature bytes", len(sig.Signature))
	}
	if len(sig.PublicKey) == 0 {
		return nil, errors.Wrap(errs.SigningFailed, "signer returned no public key")
	}
	return sig, nil
}

// RecordSuiMint reports a confirmed mint for bookkeeping.
func (c *Client) RecordSuiMint(ctx context.Context, report types.MintReport) error {
	var ignored any
	return c.call(ctx, &ignored, "recordSuiMint",
		report.ObjectID, report.TxDigest, report.Amount, report.TokenType, report.LinkedDepositID)
}

func (c *Client) GetConfig(ctx context.Context) (*types.BridgeConfig, error) {
	var cfg types.BridgeConfig
	if err := c.call(ctx, &cfg, "getConfig"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) GetMySuiMints(ctx context.Context) ([]types.MintedCoin, error) {
	var mints []types.MintedCoin
	if err := c.call(ctx, &mints, "getMySuiMints"); err != nil {
		return nil, err
	}
	return mints, nil
}

func (c *Client) GetMyDeposits(ctx context.Context) ([]types.BridgeDeposit, error) {
	var deposits []types.BridgeDeposit
	if err := c.call(ctx, &deposits, "getMyDeposits"); err != nil {
		return nil, err
	}
	return deposits, nil
}

// MarkDepositReleased links a deposit to the burn that released it.
func (c *Client) MarkDepositReleased(ctx context.Context, depositID uint64, burnDigest string) (bool, error) {
	var ok bool
	if err := c.call(ctx, &ok, "markDepositReleased", depositID, burnDigest); err != nil {
		return false, err
	}
	return ok, nil
}
