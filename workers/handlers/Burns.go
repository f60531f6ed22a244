package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi"

	"gowicpbridge/errs"
	"gowicpbridge/lifecycle"
	"gowicpbridge/suisig"
	"gowicpbridge/types"
)

// activeCoin finds objectID among the caller's unburned coins.
func (a *API) activeCoin(objectID string) (types.MintedCoin, error) {
	if _, err := a.Session.Identity(); err != nil {
		return types.MintedCoin{}, err
	}
	normalized, err := suisig.NormalizeAddress(objectID)
	if err != nil {
		return types.MintedCoin{}, err
	}
	coin, ok := a.Reconciler.Coin(normalized)
	if !ok {
		// ledger ids are not guaranteed to be lower-cased
		coin, ok = a.Reconciler.Coin(objectID)
	}
	if !ok {
		return types.MintedCoin{}, errors.Wrapf(errs.NotFound, "coin %s is not an active wICP coin of the caller", objectID)
	}
	return coin, nil
}

// PostBurn burns one of the caller's active coins.
func (a *API) PostBurn(w http.ResponseWriter, r *http.Request) {
	var req BurnRequest
	if !readJSON(w, r, &req) {
		return
	}
	coin, err := a.activeCoin(req.ObjectID)
	if err != nil {
		responseError(w, r, err, "objectId", "")
		return
	}
	a.burn(w, r, a.Session.NewBurnFlow(), coin)
}

// PostBurnRetry retries a failed burn of the same coin.
func (a *API) PostBurnRetry(w http.ResponseWriter, r *http.Request) {
	flow, ok := a.burnFlow(w, r)
	if !ok {
		return
	}
	if state := flow.State(); state != lifecycle.BurnFailed {
		responseError(w, r, errors.Wrapf(errs.InvalidState, "burn is %s", state), "", flow.ID())
		return
	}
	coin, err := a.activeCoin(flow.ObjectID())
	if err != nil {
		responseError(w, r, err, "objectId", flow.ID())
		return
	}
	a.burn(w, r, flow, coin)
}

func (a *API) burn(w http.ResponseWriter, r *http.Request, flow *lifecycle.BurnFlow, coin types.MintedCoin) {
	if err := flow.Burn(stepContext(r), coin); err != nil {
		responseError(w, r, err, "objectId", flow.ID())
		return
	}
	responseJSON(w, flow.View(), http.StatusCreated)
}

func (a *API) burnFlow(w http.ResponseWriter, r *http.Request) (*lifecycle.BurnFlow, bool) {
	id := chi.URLParam(r, "id")
	flow, ok := a.Session.BurnFlow(id)
	if !ok {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "burn flow not found",
			Kind:    string(errs.NotFound),
			ID:      id,
		}, http.StatusNotFound)
	}
	return flow, ok
}

func (a *API) GetBurn(w http.ResponseWriter, r *http.Request) {
	flow, ok := a.burnFlow(w, r)
	if !ok {
		return
	}
	responseJSON(w, flow.View(), http.StatusOK)
}
