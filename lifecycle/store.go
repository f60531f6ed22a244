package lifecycle

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"gowicpbridge/errs"
	"gowicpbridge/types"
)

// MemoryStore keeps operation records for the process lifetime. It is used
// when no redis store is configured.
type MemoryStore struct {
	mu        sync.Mutex
	ops       map[string]types.BridgeOperation
	order     []string
	lastNonce uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]types.BridgeOperation)}
}

func (m *MemoryStore) UpsertBridgeOperation(op *types.BridgeOperation) error {
	if op.ID == "" {
		return errors.New("operation id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsert(op)
	return nil
}

func (m *MemoryStore) upsert(op *types.BridgeOperation) {
	if _, ok := m.ops[op.ID]; !ok {
		m.order = append(m.order, op.ID)
	}
	m.ops[op.ID] = *op
}

// ChangeBridgeOperationStatus fails with errs.InvalidState unless the stored
// record is still in prevStatus.
func (m *MemoryStore) ChangeBridgeOperationStatus(op *types.BridgeOperation, prevStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.ops[op.ID]
	if !ok {
		return errors.Wrapf(errs.InvalidState, "operation %s is not stored", op.ID)
	}
	if stored.Status != prevStatus {
		return errors.Wrapf(errs.InvalidState, "operation %s is %s, not %s", op.ID, stored.Status, prevStatus)
	}
	m.upsert(op)
	return nil
}

// NextBurnNonce returns max(nowMillis, last+1) so nonces stay unique and
// increasing across burns, even within one millisecond.
func (m *MemoryStore) NextBurnNonce(_ context.Context, nowMillis uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastNonce = max(nowMillis, m.lastNonce+1)
	return m.lastNonce, nil
}

func (m *MemoryStore) Operation(id string) (types.BridgeOperation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	return op, ok
}

func (m *MemoryStore) FindAllBridgeOperationsByStatus(status string) ([]*types.BridgeOperation, error) {
	ops := lo.Filter(m.Operations(), func(op types.BridgeOperation, _ int) bool { return op.Status == status })
	return lo.Map(ops, func(op types.BridgeOperation, _ int) *types.BridgeOperation { return &op }), nil
}

// Operations returns records in creation order.
func (m *MemoryStore) Operations() []types.BridgeOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(m.order, func(id string, _ int) types.BridgeOperation { return m.ops[id] })
}
