package handlers

import (
	"net/http"

	"gowicpbridge/amount"
	"gowicpbridge/types"
)

func (a *API) dashboard(w http.ResponseWriter) {
	snap := a.Reconciler.Snapshot()
	responseJSON(w, &DashboardResponse{
		Snapshot:    snap,
		BalanceText: amount.Format(snap.Balance, types.SymbolWICP),
	}, http.StatusOK)
}

func (a *API) GetDashboard(w http.ResponseWriter, r *http.Request) {
	a.dashboard(w)
}

// PostDashboardRefresh pulls the ledger views now. On failure the previous
// views are kept and the error is returned.
func (a *API) PostDashboardRefresh(w http.ResponseWriter, r *http.Request) {
	if err := a.Reconciler.Refresh(r.Context()); err != nil {
		responseError(w, r, err, "", "")
		return
	}
	a.dashboard(w)
}

func (a *API) GetAudit(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, &AuditResponse{
		Status:     "ok",
		Violations: a.Reconciler.Audit(),
	}, http.StatusOK)
}
