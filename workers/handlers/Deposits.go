package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/samber/lo"

	"gowicpbridge/amount"
	"gowicpbridge/errs"
	"gowicpbridge/lifecycle"
	"gowicpbridge/types"
)

func depositField(err error) string {
	switch errs.KindOf(err) {
	case errs.InvalidAmount:
		return "amount"
	case errs.InvalidAddress:
		return "recipient"
	}
	return ""
}

// PostDeposit starts a new flow and requests the lock.
func (a *API) PostDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !readJSON(w, r, &req) {
		return
	}
	flow := a.Session.NewDepositFlow()
	a.deposit(w, r, flow, req)
}

// PostDepositRetry requests the lock again on a flow back in input.
func (a *API) PostDepositRetry(w http.ResponseWriter, r *http.Request) {
	flow, ok := a.depositFlow(w, r)
	if !ok {
		return
	}
	var req DepositRequest
	if !readJSON(w, r, &req) {
		return
	}
	a.deposit(w, r, flow, req)
}

func (a *API) deposit(w http.ResponseWriter, r *http.Request, flow *lifecycle.DepositFlow, req DepositRequest) {
	if err := flow.Deposit(stepContext(r), req.Amount, req.Recipient); err != nil {
		responseError(w, r, err, depositField(err), flow.ID())
		return
	}
	responseJSON(w, flow.View(), http.StatusCreated)
}

func (a *API) depositFlow(w http.ResponseWriter, r *http.Request) (*lifecycle.DepositFlow, bool) {
	id := chi.URLParam(r, "id")
	flow, ok := a.Session.DepositFlow(id)
	if !ok {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "deposit flow not found",
			Kind:    string(errs.NotFound),
			ID:      id,
		}, http.StatusNotFound)
	}
	return flow, ok
}

func (a *API) GetDeposit(w http.ResponseWriter, r *http.Request) {
	flow, ok := a.depositFlow(w, r)
	if !ok {
		return
	}
	responseJSON(w, flow.View(), http.StatusOK)
}

func (a *API) PostMint(w http.ResponseWriter, r *http.Request) {
	flow, ok := a.depositFlow(w, r)
	if !ok {
		return
	}
	if err := flow.Mint(stepContext(r)); err != nil {
		responseError(w, r, err, "", flow.ID())
		return
	}
	responseJSON(w, flow.View(), http.StatusOK)
}

func (a *API) PostReset(w http.ResponseWriter, r *http.Request) {
	flow, ok := a.depositFlow(w, r)
	if !ok {
		return
	}
	if err := flow.Reset(); err != nil {
		responseError(w, r, err, "", flow.ID())
		return
	}
	responseJSON(w, flow.View(), http.StatusOK)
}

// GetLedgerDeposits lists the caller's deposits as the ledger records them.
func (a *API) GetLedgerDeposits(w http.ResponseWriter, r *http.Request) {
	id, err := a.Session.Identity()
	if err != nil {
		responseError(w, r, err, "", "")
		return
	}
	deposits, err := id.Ledger.GetMyDeposits(r.Context())
	if err != nil {
		responseError(w, r, err, "", "")
		return
	}
	responseJSON(w, lo.Map(deposits, func(d types.BridgeDeposit, _ int) LedgerDeposit {
		return LedgerDeposit{BridgeDeposit: d, Status: d.Status(), AmountDecimal: amount.ToDecimalString(d.Amount)}
	}), http.StatusOK)
}
