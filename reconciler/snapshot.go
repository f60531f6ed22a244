package reconciler

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"

	"gowicpbridge/types"
)

// Snapshot is the merged view consumed by the API.
type Snapshot struct {
	// Active lists ledger coins followed by session mints, without coins
	// that have been burned.
	Active       []types.MintedCoin    `json:"active"`
	SessionMints []types.MintedCoin    `json:"sessionMints"`
	InFlight     []types.BurnRecord    `json:"inFlight"`
	History      []types.BurnRecord    `json:"history"`
	Deposits     []types.BridgeDeposit `json:"deposits"`
	// Balance is the sum of ledger-confirmed coins, in e8s.
	Balance     uint64    `json:"balance"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

func (r *Reconciler) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	burned := make(map[string]struct{}, len(r.inFlight)+len(r.history))
	for _, b := range r.inFlight {
		burned[b.ObjectID] = struct{}{}
	}
	for _, b := range r.history {
		burned[b.ObjectID] = struct{}{}
	}
	notBurned := func(m types.MintedCoin, _ int) bool {
		_, ok := burned[m.ObjectID]
		return !ok
	}

	session := lo.Filter(r.session, notBurned)
	active := append(lo.Filter(r.ledger, notBurned), session...)

	return Snapshot{
		Active:       active,
		SessionMints: session,
		InFlight:     slices.Clone(r.inFlight),
		History:      slices.Clone(r.history),
		Deposits:     slices.Clone(r.deposits),
		Balance:      lo.SumBy(r.ledger, func(m types.MintedCoin) uint64 { return m.Amount }),
		RefreshedAt:  r.refreshedAt,
	}
}

// Coin returns the active coin with objectID.
func (r *Reconciler) Coin(objectID string) (types.MintedCoin, bool) {
	return lo.Find(r.Snapshot().Active, func(m types.MintedCoin) bool { return m.ObjectID == objectID })
}

// Violation is a broken bookkeeping invariant.
type Violation struct {
	ObjectID  string  `json:"objectId,omitempty"`
	DepositID *uint64 `json:"depositId,omitempty"`
	Reason    string  `json:"reason"`
}

// Audit checks the ledger view: every linked coin has exactly one deposit
// with the same amount, object ids are unique, and no burn is both in
// flight and settled.
func (r *Reconciler) Audit() []Violation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	violations := make([]Violation, 0)
	for _, id := range r.duplicates {
		violations = append(violations, Violation{ObjectID: id, Reason: "object id reported more than once"})
	}

	byID := lo.GroupBy(r.deposits, func(d types.BridgeDeposit) uint64 { return d.ID })
	for _, coin := range r.ledger {
		if coin.LinkedDepositID == nil {
			continue
		}
		matches := byID[*coin.LinkedDepositID]
		switch {
		case len(matches) == 0:
			violations = append(violations, Violation{ObjectID: coin.ObjectID, DepositID: coin.LinkedDepositID, Reason: "linked deposit not found"})
		case len(matches) > 1:
			violations = append(violations, Violation{ObjectID: coin.ObjectID, DepositID: coin.LinkedDepositID,
				Reason: fmt.Sprintf("%d deposits share the linked id", len(matches))})
		case matches[0].Amount != coin.Amount:
			violations = append(violations, Violation{ObjectID: coin.ObjectID, DepositID: coin.LinkedDepositID,
				Reason: fmt.Sprintf("coin amount %d differs from deposit amount %d", coin.Amount, matches[0].Amount)})
		}
	}

	for _, b := range r.inFlight {
		if lo.ContainsBy(r.history, func(h types.BurnRecord) bool { return h.ObjectID == b.ObjectID }) {
			violations = append(violations, Violation{ObjectID: b.ObjectID, Reason: "burn both in flight and in history"})
		}
	}
	return violations
}
