package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"gowicpbridge/config"
)

// GetOperations lists persisted operation records with the status in the
// path, e.g. /stats/failed.
func (a *API) GetOperations(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "status")
	if _, ok := config.RedisStatusSets[status]; !ok {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "unknown operation status",
			Field:   "status",
		}, http.StatusBadRequest)
		return
	}

	ops, err := a.Operations.FindAllBridgeOperationsByStatus(status)
	if err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: err.Error(),
		}, http.StatusInternalServerError)
		return
	}
	responseJSON(w, ops, http.StatusOK)
}
