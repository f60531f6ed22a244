package ICPRPC

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowicpbridge/errs"
	"gowicpbridge/types"
)

type rpcRequest struct {
	ID     int               `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type call struct {
	principal string
	req       rpcRequest
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) all() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

// fakeLedger records every call and answers from results keyed by method.
func fakeLedger(t *testing.T, results map[string]any, rpcErrors map[string]string) (*httptest.Server, *recorder) {
	t.Helper()
	calls := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		calls.mu.Lock()
		calls.calls = append(calls.calls, call{principal: r.Header.Get(PrincipalHeader), req: req})
		calls.mu.Unlock()

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if msg, ok := rpcErrors[req.Method]; ok {
			resp["error"] = map[string]any{"code": -32000, "message": msg}
		} else {
			resp["result"] = results[req.Method]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func TestBridgeDeposit(t *testing.T) {
	server, calls := fakeLedger(t, map[string]any{
		"bridgeDeposit": map[string]any{"ok": true, "msg": "locked", "depositId": 17},
	}, nil)

	recipient := "0x" + strings.Repeat("ab", 32)
	c := New(server.URL, time.Second).As("rdmx6-jaaaa-aaaaa-aaadq-cai")
	receipt, err := c.BridgeDeposit(context.Background(), 1_000_000, recipient)
	require.NoError(t, err)
	assert.True(t, receipt.OK)
	require.NotNil(t, receipt.DepositID)
	assert.Equal(t, uint64(17), *receipt.DepositID)

	require.Len(t, calls.all(), 1)
	got := calls.all()[0]
	assert.Equal(t, "rdmx6-jaaaa-aaaaa-aaadq-cai", got.principal)
	assert.Equal(t, "bridgeDeposit", got.req.Method)
	require.Len(t, got.req.Params, 2)
	assert.JSONEq(t, `1000000`, string(got.req.Params[0]))
	assert.JSONEq(t, `"`+recipient+`"`, string(got.req.Params[1]))
}

func TestBridgeDepositRejected(t *testing.T) {
	server, _ := fakeLedger(t, map[string]any{
		"bridgeDeposit": map[string]any{"ok": false, "msg": "insufficient balance", "depositId": nil},
	}, nil)

	receipt, err := New(server.URL, time.Second).BridgeDeposit(context.Background(), 5, "0x00")
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, "insufficient balance", receipt.Msg)
	assert.Nil(t, receipt.DepositID)
}

func TestAnonymousClientSendsNoPrincipal(t *testing.T) {
	server, calls := fakeLedger(t, map[string]any{
		"getConfig": map[string]any{
			"admin":              "aaaaa-aa",
			"canisterSuiAddress": "0x" + strings.Repeat("01", 32),
			"gasObjectId":        "0x" + strings.Repeat("02", 32),
			"paused":             true,
		},
	}, nil)

	cfg, err := New(server.URL, time.Second).GetConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.Paused)
	assert.Equal(t, "0x"+strings.Repeat("01", 32), cfg.CustodialAddress)
	assert.Equal(t, "", calls.all()[0].principal)
}

func TestSignTransactionHash(t *testing.T) {
	sig := strings.Repeat("11", 64)
	pub := "02" + strings.Repeat("22", 32)
	server, calls := fakeLedger(t, map[string]any{
		"signTransactionHash": map[string]any{"signature": sig, "publicKey": "0x" + pub},
	}, nil)

	var digest [32]byte
	digest[0], digest[31] = 0xaa, 0xbb
	res, err := New(server.URL, time.Second).SignTransactionHash(context.Background(), digest)
	require.NoError(t, err)
	assert.Len(t, res.Signature, 64)
	assert.Len(t, res.PublicKey, 33)
	assert.Equal(t, byte(0x02), res.PublicKey[0])

	require.Len(t, calls.all()[0].req.Params, 1)
	assert.JSONEq(t, `"0xaa`+strings.Repeat("00", 30)+`bb"`, string(calls.all()[0].req.Params[0]))
}

func TestSignTransactionHashFailures(t *testing.T) {
	t.Run("signer error", func(t *testing.T) {
		server, _ := fakeLedger(t, nil, map[string]string{"signTransactionHash": "ecdsa key not available"})
		_, err := New(server.URL, time.Second).SignTransactionHash(context.Background(), [32]byte{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.SigningFailed))
		assert.Contains(t, err.Error(), "ecdsa key not available")
	})

	t.Run("short signature", func(t *testing.T) {
		server, _ := fakeLedger(t, map[string]any{
			"signTransactionHash": map[string]any{"signature": "0x1234", "publicKey": "0x02"},
		}, nil)
		_, err := New(server.URL, time.Second).SignTransactionHash(context.Background(), [32]byte{})
		assert.True(t, errors.Is(err, errs.SigningFailed))
	})
}

func TestRecordSuiMint(t *testing.T) {
	server, calls := fakeLedger(t, map[string]any{"recordSuiMint": nil}, nil)
	c := New(server.URL, time.Second).As("2vxsx-fae")

	depositID := uint64(3)
	require.NoError(t, c.RecordSuiMint(context.Background(), types.MintReport{
		ObjectID: "0xcoin", TxDigest: "digest", Amount: 42, TokenType: "wICP", LinkedDepositID: &depositID,
	}))
	require.NoError(t, c.RecordSuiMint(context.Background(), types.MintReport{
		ObjectID: "0xcoin2", TxDigest: "digest2", Amount: 1, TokenType: "wICP",
	}))

	require.Len(t, calls.all(), 2)
	assert.JSONEq(t, `3`, string(calls.all()[0].req.Params[4]))
	assert.JSONEq(t, `null`, string(calls.all()[1].req.Params[4]))
}

func TestCallerScopedLists(t *testing.T) {
	burn := "burnDigest"
	server, _ := fakeLedger(t, map[string]any{
		"getMySuiMints": []any{
			map[string]any{"objectId": "0x1", "digest": "d1", "amount": 100, "tokenType": "wICP", "ts": 1, "depositId": 5},
			map[string]any{"objectId": "0x2", "digest": "d2", "amount": 200, "tokenType": "wICP", "ts": 2, "depositId": nil},
		},
		"getMyDeposits": []any{
			map[string]any{"id": 5, "user": "2vxsx-fae", "amount": 100, "suiRecipient": "0xabc", "createdAt": 10, "released": false, "suiBurnTx": nil},
			map[string]any{"id": 6, "user": "2vxsx-fae", "amount": 7, "suiRecipient": "0xabc", "createdAt": 11, "released": true, "suiBurnTx": burn},
		},
		"markDepositReleased": true,
	}, nil)
	c := New(server.URL, time.Second).As("2vxsx-fae")
	ctx := context.Background()

	mints, err := c.GetMySuiMints(ctx)
	require.NoError(t, err)
	require.Len(t, mints, 2)
	require.NotNil(t, mints[0].LinkedDepositID)
	assert.Equal(t, uint64(5), *mints[0].LinkedDepositID)
	assert.Nil(t, mints[1].LinkedDepositID)

	deposits, err := c.GetMyDeposits(ctx)
	require.NoError(t, err)
	require.Len(t, deposits, 2)
	assert.Equal(t, types.DepositPending, deposits[0].Status())
	assert.Equal(t, types.DepositReleased, deposits[1].Status())
	assert.Equal(t, burn, *deposits[1].BurnTxRef)

	ok, err := c.MarkDepositReleased(ctx, 5, burn)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanceledContext(t *testing.T) {
	server, calls := fakeLedger(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(server.URL, time.Second).GetConfig(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls.all())
}
