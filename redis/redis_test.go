package redis

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowicpbridge/config"
	"gowicpbridge/errs"
	"gowicpbridge/types"
)

func TestRecordKey(t *testing.T) {
	assert.Equal(t, "bridgeop:burned:abc", recordKey("burned", "abc"))

	set, err := statusSet("deposited")
	require.NoError(t, err)
	assert.Equal(t, "bridgeops:deposited", set)

	_, err = statusSet("unknown")
	assert.Error(t, err)
}

func TestCheckOperation(t *testing.T) {
	assert.Error(t, checkOperation(nil))
	assert.Error(t, checkOperation(&types.BridgeOperation{ID: "x"}))

	op := &types.BridgeOperation{Status: "burning"}
	require.NoError(t, checkOperation(op))
	_, err := uuid.Parse(op.ID)
	assert.NoError(t, err, "missing ids are generated")
}

// testStore connects to WICP_TEST_REDIS (host:port) or skips.
func testStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("WICP_TEST_REDIS")
	if addr == "" {
		t.Skip("WICP_TEST_REDIS not set")
	}
	host, portText, ok := strings.Cut(addr, ":")
	require.True(t, ok, "WICP_TEST_REDIS must be host:port")
	port, err := strconv.Atoi(portText)
	require.NoError(t, err)

	s := New(host, port)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Ping(context.Background()))
	return s
}

func TestOperationLifecycle(t *testing.T) {
	s := testStore(t)

	op := &types.BridgeOperation{Kind: types.OperationBurn, Status: "burning", Amount: 5}
	require.NoError(t, s.UpsertBridgeOperation(op))
	require.NotEmpty(t, op.ID)

	got, err := s.GetBridgeOperation(op.ID)
	require.NoError(t, err)
	assert.Equal(t, "burning", got.Status)

	op.Status = "burned"
	op.TxDigest = "digest"
	require.NoError(t, s.ChangeBridgeOperationStatus(op, "burning"))

	got, err = s.GetBridgeOperation(op.ID)
	require.NoError(t, err)
	assert.Equal(t, "burned", got.Status)
	assert.Equal(t, "digest", got.TxDigest)

	burning, err := s.FindAllBridgeOperationsByStatus("burning")
	require.NoError(t, err)
	for _, o := range burning {
		assert.NotEqual(t, op.ID, o.ID, "an operation is in one status set only")
	}

	burned, err := s.FindAllBridgeOperationsByStatus("burned")
	require.NoError(t, err)
	assert.True(t, lo.ContainsBy(burned, func(o *types.BridgeOperation) bool { return o.ID == op.ID }))

	// a second mover that still believes the record is burning loses
	stale := *op
	stale.Status = "interrupted"
	err = s.ChangeBridgeOperationStatus(&stale, "burning")
	assert.True(t, errors.Is(err, errs.InvalidState), "got %v", err)

	interrupted, err := s.FindAllBridgeOperationsByStatus("interrupted")
	require.NoError(t, err)
	assert.False(t, lo.ContainsBy(interrupted, func(o *types.BridgeOperation) bool { return o.ID == op.ID }))
	got, err = s.GetBridgeOperation(op.ID)
	require.NoError(t, err)
	assert.Equal(t, "burned", got.Status)

	missing := &types.BridgeOperation{ID: uuid.New().String(), Status: "burned"}
	err = s.ChangeBridgeOperationStatus(missing, "burning")
	assert.True(t, errors.Is(err, errs.InvalidState))

	_, err = s.GetBridgeOperation(uuid.New().String())
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestNextBurnNonce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	conn := s.pool.Get()
	_, err := conn.Do("DEL", config.RedisBurnNonceKey)
	conn.Close()
	require.NoError(t, err)

	n, err := s.NextBurnNonce(ctx, 1_700_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_700_000_000_000), n)

	n, err = s.NextBurnNonce(ctx, 1_700_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_700_000_000_001), n)

	n, err = s.NextBurnNonce(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_700_000_000_002), n)
}
