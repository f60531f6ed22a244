package lifecycle

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"gowicpbridge/errs"
	"gowicpbridge/events"
	"gowicpbridge/logger"
	"gowicpbridge/suisig"
	"gowicpbridge/suitx"
	"gowicpbridge/types"
)

type BurnState string

const (
	BurnIdle    BurnState = "idle"
	BurnBurning BurnState = "burning"
	BurnBurned  BurnState = "burned"
	BurnFailed  BurnState = "failed"
)

// BurnFlow destroys one wICP coin so the ledger can release the matching
// ICP.
type BurnFlow struct {
	session *Session
	id      string

	mu        sync.Mutex
	state     BurnState
	busy      bool
	objectID  string
	amount    uint64
	depositID *uint64
	nonce     uint64
	digest    string
	lastError string
	op        *types.BridgeOperation
}

type BurnView struct {
	ID          string    `json:"id"`
	OperationID string    `json:"operationId"`
	State       BurnState `json:"state"`
	ObjectID    string    `json:"objectId,omitempty"`
	AmountE8s   uint64    `json:"amountE8s,omitempty"`
	DepositID   *uint64   `json:"depositId,omitempty"`
	Nonce       uint64    `json:"nonce,omitempty"`
	TxDigest    string    `json:"txDigest,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
}

func (s *Session) NewBurnFlow() *BurnFlow {
	f := &BurnFlow{session: s, id: uuid.New().String(), state: BurnIdle}
	f.op = &types.BridgeOperation{
		ID:        uuid.New().String(),
		Kind:      types.OperationBurn,
		TsCreated: s.now().Unix(),
	}

	s.mu.Lock()
	s.burns[f.id] = f
	s.mu.Unlock()
	return f
}

func (s *Session) BurnFlow(id string) (*BurnFlow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.burns[id]
	return f, ok
}

func (f *BurnFlow) ID() string { return f.id }

func (f *BurnFlow) State() BurnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ObjectID is the coin of the last burn attempt.
func (f *BurnFlow) ObjectID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objectID
}

func (f *BurnFlow) View() BurnView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return BurnView{
		ID:          f.id,
		OperationID: f.op.ID,
		State:       f.state,
		ObjectID:    f.objectID,
		AmountE8s:   f.amount,
		DepositID:   f.depositID,
		Nonce:       f.nonce,
		TxDigest:    f.digest,
		LastError:   f.lastError,
	}
}

func (f *BurnFlow) transition(ctx context.Context, state BurnState, stepErr error) {
	f.mu.Lock()
	prev := f.op.Status
	f.state = state
	f.op.Status = string(state)
	f.lastError = ""
	if stepErr != nil {
		f.lastError = stepErr.Error()
		f.op.AddMessage(stepErr.Error())
	}
	op := *f.op
	f.mu.Unlock()

	f.session.persist(ctx, &op, prev)
}

// Burn submits token::burn for coin with the caller's principal and a fresh
// nonce. A failed flow may be retried; a burned one may not. Burns are not
// blocked by the ledger's pause flag so holders can always exit.
func (f *BurnFlow) Burn(ctx context.Context, coin types.MintedCoin) error {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return errors.Wrap(errs.InvalidState, "a burn is already in flight")
	}
	if f.state != BurnIdle && f.state != BurnFailed {
		state := f.state
		f.mu.Unlock()
		return errors.Wrapf(errs.InvalidState, "burn is %s", state)
	}
	f.busy = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.busy = false
		f.mu.Unlock()
	}()

	id, err := f.session.Identity()
	if err != nil {
		return err
	}
	if err := requireSuiConfig(id); err != nil {
		return err
	}
	if err := suisig.ValidateAddress(coin.ObjectID); err != nil {
		return errors.Wrap(err, "coin object id")
	}

	f.mu.Lock()
	f.objectID, f.amount, f.depositID = coin.ObjectID, coin.Amount, coin.LinkedDepositID
	f.op.ObjectID, f.op.Amount, f.op.DepositID = coin.ObjectID, coin.Amount, coin.LinkedDepositID
	f.mu.Unlock()

	ctx = logger.WithContext(ctx, "burn", f.id, "objectId", coin.ObjectID, "amount", coin.Amount)
	f.transition(ctx, BurnBurning, nil)

	nonce, err := f.session.deps.Store.NextBurnNonce(ctx, uint64(f.session.now().UnixMilli()))
	if err != nil {
		err = errors.Wrap(err, "cannot allocate burn nonce")
		f.transition(ctx, BurnFailed, err)
		return err
	}
	f.mu.Lock()
	f.nonce, f.op.Nonce = nonce, nonce
	f.mu.Unlock()

	coinArg, err := f.session.deps.Chain.ResolveObject(ctx, coin.ObjectID, true)
	if err != nil {
		err = markKind(errors.Wrap(err, "coin object"), errs.ChainBSubmissionFailed)
		f.transition(ctx, BurnFailed, err)
		return err
	}

	settings := f.session.settings
	exec, err := f.session.execute(ctx, id, func(pkg [32]byte, treasury suitx.ObjectArg) suitx.MoveCall {
		return suitx.BurnCall(pkg, settings.Module, treasury, coinArg, id.Raw, nonce)
	})
	if err != nil {
		logger.WarnContext(ctx, "burn failed", logger.Err(err))
		f.transition(ctx, BurnFailed, err)
		return err
	}

	f.mu.Lock()
	f.digest, f.op.TxDigest = exec.Digest, exec.Digest
	f.mu.Unlock()
	f.transition(ctx, BurnBurned, nil)
	logger.InfoContext(ctx, "burn submitted", "digest", exec.Digest, "nonce", nonce)

	f.session.deps.Bus.Publish(events.BurnSubmitted{
		ObjectID:        coin.ObjectID,
		Digest:          exec.Digest,
		Amount:          coin.Amount,
		LinkedDepositID: coin.LinkedDepositID,
		Ts:              f.session.now(),
	})

	if coin.LinkedDepositID != nil {
		depositID := *coin.LinkedDepositID
		f.session.detach(ctx, func(ctx context.Context) {
			ok, err := id.Ledger.MarkDepositReleased(ctx, depositID, exec.Digest)
			if err != nil {
				logger.WarnContext(ctx, "deposit not marked released", "depositId", depositID, logger.Err(errors.Mark(err, errs.BookkeepingFailed)))
				return
			}
			if !ok {
				logger.WarnContext(ctx, "ledger refused to mark deposit released", "depositId", depositID)
			}
		})
	}
	return nil
}
