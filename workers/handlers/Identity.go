package handlers

import (
	"net/http"
)

// PostIdentity establishes the caller the session acts for and returns the
// bridge config snapshot.
func (a *API) PostIdentity(w http.ResponseWriter, r *http.Request) {
	var req IdentityRequest
	if !readJSON(w, r, &req) {
		return
	}
	if _, err := a.Session.EstablishIdentity(r.Context(), req.Principal); err != nil {
		responseError(w, r, err, "principal", "")
		return
	}
	a.GetConfig(w, r)
}

func (a *API) GetConfig(w http.ResponseWriter, r *http.Request) {
	id, err := a.Session.Identity()
	if err != nil {
		responseError(w, r, err, "", "")
		return
	}
	responseJSON(w, &ConfigResponse{
		Status:        "ok",
		Principal:     id.Principal,
		EstablishedAt: id.EstablishedAt,
		Bridge:        id.Config,
		Sui:           a.Session.Settings(),
	}, http.StatusOK)
}
