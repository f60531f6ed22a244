package lifecycle

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"gowicpbridge/amount"
	"gowicpbridge/errs"
	"gowicpbridge/events"
	"gowicpbridge/logger"
	"gowicpbridge/suisig"
	"gowicpbridge/suitx"
	"gowicpbridge/types"
)

type DepositState string

const (
	StateInput      DepositState = "input"
	StateDepositing DepositState = "depositing"
	StateDeposited  DepositState = "deposited"
	StateMinting    DepositState = "minting"
	StateComplete   DepositState = "complete"
)

// operation record statuses that are not flow states
const statusRejected = "rejected"

// DepositFlow is one ICP lock followed by the wICP mint on Sui.
type DepositFlow struct {
	session *Session
	id      string

	mu             sync.Mutex
	state          DepositState
	busy           bool
	amount         uint64
	recipient      string
	depositID      *uint64
	mintedObjectID string
	mintDigest     string
	lastError      string
	op             *types.BridgeOperation
}

// DepositView is a copy of a flow's state.
type DepositView struct {
	ID             string       `json:"id"`
	OperationID    string       `json:"operationId"`
	State          DepositState `json:"state"`
	Busy           bool         `json:"busy"`
	Amount         string       `json:"amount,omitempty"`
	AmountE8s      uint64       `json:"amountE8s,omitempty"`
	Recipient      string       `json:"recipient,omitempty"`
	DepositID      *uint64      `json:"depositId,omitempty"`
	MintedObjectID string       `json:"mintedObjectId,omitempty"`
	MintDigest     string       `json:"mintDigest,omitempty"`
	LastError      string       `json:"lastError,omitempty"`
}

// NewDepositFlow starts a flow in the input state and registers it with the
// session.
func (s *Session) NewDepositFlow() *DepositFlow {
	f := &DepositFlow{session: s, id: uuid.New().String(), state: StateInput}
	f.op = f.newOperation()

	s.mu.Lock()
	s.deposits[f.id] = f
	s.mu.Unlock()
	return f
}

// DepositFlow returns a flow registered in this session.
func (s *Session) DepositFlow(id string) (*DepositFlow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.deposits[id]
	return f, ok
}

func (f *DepositFlow) newOperation() *types.BridgeOperation {
	return &types.BridgeOperation{
		ID:        uuid.New().String(),
		Kind:      types.OperationDeposit,
		TsCreated: f.session.now().Unix(),
	}
}

func (f *DepositFlow) ID() string { return f.id }

func (f *DepositFlow) State() DepositState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *DepositFlow) View() DepositView {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := DepositView{
		ID:             f.id,
		OperationID:    f.op.ID,
		State:          f.state,
		Busy:           f.busy,
		AmountE8s:      f.amount,
		Recipient:      f.recipient,
		DepositID:      f.depositID,
		MintedObjectID: f.mintedObjectID,
		MintDigest:     f.mintDigest,
		LastError:      f.lastError,
	}
	if f.amount > 0 {
		v.Amount = amount.ToDecimalString(f.amount)
	}
	return v
}

// begin claims the flow for one step from state from.
func (f *DepositFlow) begin(from DepositState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return errors.Wrapf(errs.InvalidState, "a %s step is already in flight", f.state)
	}
	if f.state != from {
		return errors.Wrapf(errs.InvalidState, "flow is %s, expected %s", f.state, from)
	}
	f.busy = true
	return nil
}

func (f *DepositFlow) release() {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
}

// transition moves to state, recording the step's error (if any) on the
// flow and its operation record, then persists the record.
func (f *DepositFlow) transition(ctx context.Context, state DepositState, status string, stepErr error) {
	f.mu.Lock()
	prev := f.op.Status
	f.state = state
	f.op.Status = status
	f.lastError = ""
	if stepErr != nil {
		f.lastError = stepErr.Error()
		f.op.AddMessage(stepErr.Error())
	}
	op := *f.op
	f.mu.Unlock()

	f.session.persist(ctx, &op, prev)
}

// Deposit validates the request locally, then asks the ledger to lock the
// amount. On success the flow is deposited; on any failure it is back to
// input with the ledger's reason.
func (f *DepositFlow) Deposit(ctx context.Context, amountText, recipient string) error {
	if err := f.begin(StateInput); err != nil {
		return err
	}
	defer f.release()

	e8s, err := amount.Validate(amountText)
	if err != nil {
		return err
	}
	recipient, err = suisig.NormalizeAddress(recipient)
	if err != nil {
		return err
	}

	id, err := f.session.Identity()
	if err != nil {
		return err
	}
	if id.Config.Paused {
		return errors.Wrap(errs.LedgerRejected, "bridge is paused")
	}

	f.mu.Lock()
	f.amount, f.recipient = e8s, recipient
	f.op.Amount, f.op.SuiRecipient = e8s, recipient
	f.mu.Unlock()

	ctx = logger.WithContext(ctx, "flow", f.id, "amount", e8s, "recipient", recipient)
	f.transition(ctx, StateDepositing, string(StateDepositing), nil)
	logger.InfoContext(ctx, "requesting deposit lock")

	receipt, err := id.Ledger.BridgeDeposit(ctx, e8s, recipient)
	if err == nil && !receipt.OK {
		msg := receipt.Msg
		if msg == "" {
			msg = "deposit rejected by ledger"
		}
		err = errors.Mark(errors.New(msg), errs.LedgerRejected)
	}
	if err != nil {
		logger.WarnContext(ctx, "deposit failed", logger.Err(err))
		f.transition(ctx, StateInput, statusRejected, err)
		return err
	}

	if receipt.DepositID == nil {
		logger.WarnContext(ctx, "ledger accepted deposit without an id, mint will not be linked")
	}
	f.mu.Lock()
	f.depositID = receipt.DepositID
	f.op.DepositID = receipt.DepositID
	f.mu.Unlock()

	f.transition(ctx, StateDeposited, string(StateDeposited), nil)
	logger.InfoContext(ctx, "deposit locked", "depositId", receipt.DepositID)
	return nil
}

// Mint builds and submits token::mint for the deposited amount. A failed
// submission leaves the flow deposited so it can be retried with fresh
// references. Reporting the mint to the ledger is best-effort.
//
// The pause flag is checked by Deposit only. A pause set later reaches the
// session through EstablishIdentity, which drops every open flow.
func (f *DepositFlow) Mint(ctx context.Context) error {
	if err := f.begin(StateDeposited); err != nil {
		return err
	}
	defer f.release()

	id, err := f.session.Identity()
	if err != nil {
		return err
	}
	if err := requireSuiConfig(id); err != nil {
		return err
	}

	f.mu.Lock()
	e8s, recipientText, depositID := f.amount, f.recipient, f.depositID
	f.mu.Unlock()

	recipient, err := suisig.AddressBytes(recipientText)
	if err != nil {
		return err
	}

	ctx = logger.WithContext(ctx, "flow", f.id, "amount", e8s, "recipient", recipientText)
	f.transition(ctx, StateMinting, string(StateMinting), nil)

	settings := f.session.settings
	exec, err := f.session.execute(ctx, id, func(pkg [32]byte, treasury suitx.ObjectArg) suitx.MoveCall {
		return suitx.MintCall(pkg, settings.Module, treasury, recipient, e8s)
	})
	if err != nil {
		logger.WarnContext(ctx, "mint failed", logger.Err(err))
		f.transition(ctx, StateDeposited, string(StateDeposited), err)
		return err
	}

	var objectID string
	if len(exec.CreatedObjectIDs) > 0 {
		objectID = exec.CreatedObjectIDs[0]
	} else {
		logger.WarnContext(ctx, "mint executed without a created coin", "digest", exec.Digest)
	}

	f.mu.Lock()
	f.mintedObjectID, f.mintDigest = objectID, exec.Digest
	f.op.ObjectID, f.op.TxDigest = objectID, exec.Digest
	f.mu.Unlock()
	f.transition(ctx, StateComplete, string(StateComplete), nil)
	logger.InfoContext(ctx, "mint complete", "digest", exec.Digest, "objectId", objectID)

	if objectID == "" {
		return nil
	}

	f.session.deps.Bus.Publish(events.MintCompleted{
		ObjectID:        objectID,
		Digest:          exec.Digest,
		Amount:          e8s,
		TokenType:       settings.TokenType,
		LinkedDepositID: depositID,
		Ts:              f.session.now(),
	})

	report := types.MintReport{
		ObjectID:        objectID,
		TxDigest:        exec.Digest,
		Amount:          e8s,
		TokenType:       settings.TokenType,
		LinkedDepositID: depositID,
	}
	f.session.detach(ctx, func(ctx context.Context) {
		if err := id.Ledger.RecordSuiMint(ctx, report); err != nil {
			logger.WarnContext(ctx, "mint not recorded on ledger", logger.Err(errors.Mark(err, errs.BookkeepingFailed)))
		}
	})
	return nil
}

// execute builds the call with fresh references, signs and submits it.
func (s *Session) execute(ctx context.Context, id *Identity, call func(pkg [32]byte, treasury suitx.ObjectArg) suitx.MoveCall) (*types.Execution, error) {
	txBytes, err := s.buildCall(ctx, id, call)
	if err != nil {
		return nil, err
	}
	return s.submitter(id).SignAndSubmit(ctx, txBytes)
}

// Reset returns a completed flow to input for the next deposit. The
// completed operation record is kept and a new one is started.
func (f *DepositFlow) Reset() error {
	if err := f.begin(StateComplete); err != nil {
		return err
	}
	defer f.release()

	f.mu.Lock()
	f.state = StateInput
	f.amount, f.recipient, f.depositID = 0, "", nil
	f.mintedObjectID, f.mintDigest, f.lastError = "", "", ""
	f.op = f.newOperation()
	f.mu.Unlock()
	return nil
}
