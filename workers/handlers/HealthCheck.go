package handlers

import (
	"net/http"
)

func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if a.Health != nil {
		if err := a.Health.Ping(r.Context()); err != nil {
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: err.Error(),
			}, http.StatusServiceUnavailable)
			return
		}
	}
	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}
