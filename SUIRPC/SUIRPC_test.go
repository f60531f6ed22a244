package SUIRPC

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowicpbridge/errs"
)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      int               `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// fakeNode answers each JSON-RPC request with handle's result or error.
func fakeNode(t *testing.T, handle func(req rpcRequest) (result any, rpcErr map[string]any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		result, rpcErr := handle(req)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

var (
	testObjectID = "0x" + strings.Repeat("ab", 32)
	testDigest   = base58.Encode([]byte(strings.Repeat("d", 32)))
)

func TestResolveGas(t *testing.T) {
	server := fakeNode(t, func(req rpcRequest) (any, map[string]any) {
		assert.Equal(t, "sui_getObject", req.Method)
		if !assert.Len(t, req.Params, 2) {
			return nil, nil
		}
		assert.JSONEq(t, `"`+testObjectID+`"`, string(req.Params[0]))
		assert.JSONEq(t, `{"showOwner":true}`, string(req.Params[1]))

		return map[string]any{"data": map[string]any{
			"objectId": testObjectID,
			"version":  "4181",
			"digest":   testDigest,
			"owner":    map[string]any{"AddressOwner": "0x" + strings.Repeat("01", 32)},
		}}, nil
	})

	c := New([]string{server.URL}, time.Second)
	ref, err := c.ResolveGas(context.Background(), testObjectID)
	require.NoError(t, err)
	assert.Equal(t, testObjectID, ref.ObjectID)
	assert.Equal(t, uint64(4181), ref.Version)
	assert.Equal(t, testDigest, ref.Digest)
}

func TestResolveGasIsNeverCached(t *testing.T) {
	var version atomic.Int64
	server := fakeNode(t, func(req rpcRequest) (any, map[string]any) {
		v := version.Add(1)
		return map[string]any{"data": map[string]any{
			"objectId": testObjectID,
			"version":  strconv.FormatInt(v, 10),
			"digest":   testDigest,
		}}, nil
	})

	c := New([]string{server.URL}, time.Second)
	first, err := c.ResolveGas(context.Background(), testObjectID)
	require.NoError(t, err)
	second, err := c.ResolveGas(context.Background(), testObjectID)
	require.NoError(t, err)
	assert.Equal(t, first.Version+1, second.Version)
}

func TestResolveGasMissing(t *testing.T) {
	var calls atomic.Int32
	handler := func(req rpcRequest) (any, map[string]any) {
		calls.Add(1)
		return map[string]any{"error": map[string]any{"code": "notExists", "object_id": testObjectID}}, nil
	}
	first := fakeNode(t, handler)
	second := fakeNode(t, handler)

	c := New([]string{first.URL, second.URL}, time.Second)
	_, err := c.ResolveGas(context.Background(), testObjectID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.GasObjectMissing))
	assert.Equal(t, int32(1), calls.Load(), "a node answer must not fail over")
}

func TestReadFailover(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	healthy := fakeNode(t, func(req rpcRequest) (any, map[string]any) {
		assert.Equal(t, "suix_getReferenceGasPrice", req.Method)
		return "750", nil
	})

	c := New([]string{broken.URL, healthy.URL}, time.Second)
	price, err := c.GetReferenceGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(750), price)
}

func TestResolveObjectShared(t *testing.T) {
	server := fakeNode(t, func(req rpcRequest) (any, map[string]any) {
		return map[string]any{"data": map[string]any{
			"objectId": testObjectID,
			"version":  "99",
			"digest":   testDigest,
			"owner":    map[string]any{"Shared": map[string]any{"initial_shared_version": 12}},
		}}, nil
	})

	c := New([]string{server.URL}, time.Second)
	arg, err := c.ResolveObject(context.Background(), testObjectID, true)
	require.NoError(t, err)
	require.NotNil(t, arg.Shared)
	assert.Nil(t, arg.Owned)
	assert.Equal(t, uint64(12), arg.Shared.InitialSharedVersion)
	assert.True(t, arg.Shared.Mutable)
	assert.Equal(t, byte(0xab), arg.Shared.ID[0])
}

func TestResolveObjectOwned(t *testing.T) {
	server := fakeNode(t, func(req rpcRequest) (any, map[string]any) {
		return map[string]any{"data": map[string]any{
			"objectId": testObjectID,
			"version":  "99",
			"digest":   testDigest,
			"owner":    "Immutable",
		}}, nil
	})

	c := New([]string{server.URL}, time.Second)
	arg, err := c.ResolveObject(context.Background(), testObjectID, false)
	require.NoError(t, err)
	require.NotNil(t, arg.Owned)
	assert.Equal(t, uint64(99), arg.Owned.Version)
	assert.Equal(t, []byte(strings.Repeat("d", 32)), arg.Owned.Digest[:])
}

func TestExecuteTransactionBlock(t *testing.T) {
	server := fakeNode(t, func(req rpcRequest) (any, map[string]any) {
		assert.Equal(t, methodExecute, req.Method)
		if !assert.Len(t, req.Params, 4) {
			return nil, nil
		}
		assert.JSONEq(t, `"dHg="`, string(req.Params[0]))
		assert.JSONEq(t, `["c2ln"]`, string(req.Params[1]))
		assert.JSONEq(t, `{"showEffects":true,"showEvents":true}`, string(req.Params[2]))
		assert.JSONEq(t, `"WaitForLocalExecution"`, string(req.Params[3]))

		return map[string]any{
			"digest": "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			"effects": map[string]any{
				"status":  map[string]any{"status": "success"},
				"created": []any{map[string]any{"reference": map[string]any{"objectId": testObjectID}}},
			},
			"events": []any{},
		}, nil
	})

	c := New([]string{server.URL}, time.Second)
	res, err := c.ExecuteTransactionBlock(context.Background(), "dHg=", "c2ln")
	require.NoError(t, err)
	assert.Equal(t, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", res.Digest)
	assert.Equal(t, []string{testObjectID}, res.CreatedObjectIDs)
}

func TestExecuteClassification(t *testing.T) {
	tests := []struct {
		name     string
		result   any
		rpcErr   map[string]any
		kind     errs.Kind
		contains string
	}{
		{
			name:     "stale gas object",
			rpcErr:   map[string]any{"code": -32002, "message": "Transaction validator signing failed due to issues with transaction inputs: Object (0xab, SequenceNumber(4181), o#abc) is not available for consumption, its current version: SequenceNumber(4182)"},
			kind:     errs.StaleGasObject,
			contains: "not available for consumption",
		},
		{
			name:     "stale, alternate wording",
			rpcErr:   map[string]any{"code": -32002, "message": "Object unavailable for consumption"},
			kind:     errs.StaleGasObject,
			contains: "unavailable for consumption",
		},
		{
			name:     "rpc failure",
			rpcErr:   map[string]any{"code": -32602, "message": "Invalid user signature"},
			kind:     errs.ChainBSubmissionFailed,
			contains: "Invalid user signature",
		},
		{
			name: "move abort",
			result: map[string]any{
				"digest":  "abc",
				"effects": map[string]any{"status": map[string]any{"status": "failure", "error": "MoveAbort(token::mint, 3)"}},
			},
			kind:     errs.ChainBSubmissionFailed,
			contains: "MoveAbort",
		},
		{
			name: "insufficient gas",
			result: map[string]any{
				"digest":  "abc",
				"effects": map[string]any{"status": map[string]any{"status": "failure", "error": "InsufficientGas"}},
			},
			kind:     errs.ChainBSubmissionFailed,
			contains: "InsufficientGas",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			server := fakeNode(t, func(req rpcRequest) (any, map[string]any) {
				calls.Add(1)
				return tc.result, tc.rpcErr
			})
			backup := fakeNode(t, func(req rpcRequest) (any, map[string]any) {
				t.Error("execution must not fail over")
				return nil, nil
			})

			c := New([]string{server.URL, backup.URL}, time.Second)
			_, err := c.ExecuteTransactionBlock(context.Background(), "dHg=", "c2ln")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
			assert.Contains(t, err.Error(), tc.contains)
			assert.Equal(t, int32(1), calls.Load(), "execution must not be retried")
		})
	}
}

func TestNoEndpoints(t *testing.T) {
	c := New(nil, time.Second)
	_, err := c.GetObject(context.Background(), testObjectID)
	assert.True(t, errors.Is(err, errs.ConfigMissing))
	_, err = c.ExecuteTransactionBlock(context.Background(), "", "")
	assert.True(t, errors.Is(err, errs.ConfigMissing))
}
