package handlers

import (
	"net/http"
)

// State reports whether a caller identity is established.
func (a *API) State(w http.ResponseWriter, r *http.Request) {
	msg := "identity established"
	if _, err := a.Session.Identity(); err != nil {
		msg = "identity not established"
	}
	responseJSON(w, &APIStateResponse{
		Status:  "ok",
		Message: msg,
	}, http.StatusOK)
}
