// Package reconciler merges the three views of bridge state: ledger-confirmed
// mints, mints seen in this session and not yet on the ledger, and burns that
// are in flight before they settle into history.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"gowicpbridge/errs"
	"gowicpbridge/events"
	"gowicpbridge/logger"
	"gowicpbridge/types"
)

// Source is the caller-scoped part of the ledger the reconciler reads.
type Source interface {
	GetMySuiMints(ctx context.Context) ([]types.MintedCoin, error)
	GetMyDeposits(ctx context.Context) ([]types.BridgeDeposit, error)
}

type Config struct {
	// SettleDelay is how long a submitted burn stays in flight.
	SettleDelay time.Duration
}

const DefaultSettleDelay = 10 * time.Second

type Reconciler struct {
	settleDelay time.Duration
	now         func() time.Time

	mu          sync.RWMutex
	source      Source
	ledger      []types.MintedCoin
	deposits    []types.BridgeDeposit
	duplicates  []string
	session     []types.MintedCoin
	inFlight    []types.BurnRecord
	history     []types.BurnRecord
	timers      map[string]*time.Timer
	refreshedAt time.Time
}

func New(cfg Config) *Reconciler {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	return &Reconciler{
		settleDelay: cfg.SettleDelay,
		now:         time.Now,
		timers:      make(map[string]*time.Timer),
	}
}

// Attach switches the reconciler to a new caller. Views of the previous
// caller are dropped.
func (r *Reconciler) Attach(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.timers {
		t.Stop()
	}
	r.source = src
	r.ledger, r.deposits, r.duplicates = nil, nil, nil
	r.session, r.inFlight, r.history = nil, nil, nil
	r.timers = make(map[string]*time.Timer)
	r.refreshedAt = time.Time{}
}

// Refresh replaces the ledger view with the caller's current mints and
// deposits. Session mints the ledger now reports are dropped. On error the
// previous view is kept.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.RLock()
	src := r.source
	r.mu.RUnlock()
	if src == nil {
		return errors.Wrap(errs.InvalidState, "no identity established")
	}

	mints, err := src.GetMySuiMints(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot fetch ledger mints")
	}
	deposits, err := src.GetMyDeposits(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot fetch ledger deposits")
	}

	duplicates := lo.Map(lo.FindDuplicatesBy(mints, func(m types.MintedCoin) string { return m.ObjectID }),
		func(m types.MintedCoin, _ int) string { return m.ObjectID })
	if len(duplicates) > 0 {
		logger.WarnContext(ctx, "ledger reported duplicate coin objects", "objectIds", duplicates)
	}
	mints = lo.UniqBy(mints, func(m types.MintedCoin) string { return m.ObjectID })

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.source != src {
		// identity changed while fetching
		return nil
	}

	confirmed := lo.Associate(mints, func(m types.MintedCoin) (string, struct{}) { return m.ObjectID, struct{}{} })
	r.session = lo.Reject(r.session, func(m types.MintedCoin, _ int) bool {
		_, ok := confirmed[m.ObjectID]
		return ok
	})
	r.ledger = mints
	r.deposits = deposits
	r.duplicates = duplicates
	r.refreshedAt = r.now()

	logger.DebugContext(ctx, "ledger view refreshed", "mints", len(mints), "deposits", len(deposits), "sessionMints", len(r.session))
	return nil
}

// Handle applies one bridge event.
func (r *Reconciler) Handle(ev events.Event) {
	switch e := ev.(type) {
	case events.MintCompleted:
		r.addSessionMint(e)
	case events.BurnSubmitted:
		r.addBurn(e)
	}
}

func (r *Reconciler) addSessionMint(e events.MintCompleted) {
	r.mu.Lock()
	defer r.mu.Unlock()

	known := func(m types.MintedCoin) bool { return m.ObjectID == e.ObjectID }
	if lo.ContainsBy(r.ledger, known) || lo.ContainsBy(r.session, known) {
		return
	}
	coin := types.MintedCoin{
		ObjectID:        e.ObjectID,
		TxDigest:        e.Digest,
		Amount:          e.Amount,
		TokenType:       e.TokenType,
		MintedAt:        e.Ts.UnixNano(),
		LinkedDepositID: e.LinkedDepositID,
	}
	r.session = append([]types.MintedCoin{coin}, r.session...)
}

func (r *Reconciler) addBurn(e events.BurnSubmitted) {
	r.mu.Lock()
	defer r.mu.Unlock()

	known := func(b types.BurnRecord) bool { return b.ObjectID == e.ObjectID }
	if lo.ContainsBy(r.inFlight, known) || lo.ContainsBy(r.history, known) {
		return
	}
	ts := e.Ts
	if ts.IsZero() {
		ts = r.now()
	}
	r.inFlight = append([]types.BurnRecord{{
		ObjectID:        e.ObjectID,
		TxDigest:        e.Digest,
		Amount:          e.Amount,
		LinkedDepositID: e.LinkedDepositID,
		BurnedAt:        ts,
	}}, r.inFlight...)

	id := e.ObjectID
	r.timers[id] = time.AfterFunc(r.settleDelay, func() { r.settle(id) })
}

// settle moves a burn from in flight to history in one step.
func (r *Reconciler) settle(objectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.timers, objectID)
	rec, idx, ok := lo.FindIndexOf(r.inFlight, func(b types.BurnRecord) bool { return b.ObjectID == objectID })
	if !ok {
		return
	}
	r.inFlight = append(r.inFlight[:idx:idx], r.inFlight[idx+1:]...)
	r.history = append([]types.BurnRecord{rec}, r.history...)
}

// Run applies events from sub until ctx is done or sub is closed.
func (r *Reconciler) Run(ctx context.Context, sub *events.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			r.Handle(ev)
		}
	}
}

// Close stops pending settle timers.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = make(map[string]*time.Timer)
}
