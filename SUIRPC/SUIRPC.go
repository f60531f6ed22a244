package SUIRPC

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ybbus/jsonrpc"

	"gowicpbridge/errs"
	"gowicpbridge/logger"
)

// Client talks to Sui full nodes over JSON-RPC. Reads go through WithClient
// and fail over across the endpoint list; transaction execution only uses
// the first endpoint.
type Client struct {
	urls    []string
	clients []jsonrpc.RPCClient
}

// New builds a client for urls. timeout bounds each HTTP request since the
// transport does not take a context.
func New(urls []string, timeout time.Duration) *Client {
	httpClient := &http.Client{Timeout: timeout}
	c := &Client{urls: urls}
	for _, url := range urls {
		c.clients = append(c.clients, jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{
			HTTPClient: httpClient,
		}))
	}
	return c
}

// WithClient runs f against each endpoint in order until one succeeds.
// An answer from a node (RPC error, object not found) is final and is not
// retried elsewhere.
func WithClient[T any](ctx context.Context, c *Client, f func(rpc jsonrpc.RPCClient) (T, error)) (res T, err error) {
	if len(c.clients) == 0 {
		err = errors.Wrap(errs.ConfigMissing, "no sui rpc endpoints configured")
		return
	}
	for i, rpc := range c.clients {
		if err = ctx.Err(); err != nil {
			return
		}

		res, err = f(rpc)
		if err == nil || isFinal(err) {
			return
		}
		logger.WarnContext(ctx, "sui rpc endpoint failed", "url", c.urls[i], logger.Err(err))
	}
	return
}

func isFinal(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return errors.As(err, &rpcErr) || errors.Is(err, errs.NotFound)
}

// uint64 values come back as decimal strings
type u64String uint64

func (u *u64String) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseUint(strings.Trim(string(b), `"`), 10, 64)
	if err != nil {
		return errors.Wrapf(err, "cannot parse %s as u64", b)
	}
	*u = u64String(v)
	return nil
}

// GetReferenceGasPrice returns the current reference gas price in MIST.
func (c *Client) GetReferenceGasPrice(ctx context.Context) (uint64, error) {
	return WithClient(ctx, c, func(rpc jsonrpc.RPCClient) (uint64, error) {
		var price u64String
		if err := rpc.CallFor(&price, "suix_getReferenceGasPrice"); err != nil {
			return 0, errors.Wrap(err, "suix_getReferenceGasPrice")
		}
		return uint64(price), nil
	})
}
