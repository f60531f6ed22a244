package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"gowicpbridge/errs"
	"gowicpbridge/logger"
)

const maxBodyBytes = 1 << 16

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.WarnContext(r.Context(), "error reading request body", logger.Err(err))
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		logger.WarnContext(r.Context(), "error unmarshalling request body", logger.Err(err))
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return false
	}
	return true
}

// statusCode maps an error kind to the HTTP status returned for it.
func statusCode(kind errs.Kind) int {
	switch kind {
	case errs.InvalidAmount, errs.InvalidAddress, errs.ConfigMissing:
		return http.StatusBadRequest
	case errs.LedgerRejected, errs.InvalidState:
		return http.StatusConflict
	case errs.NotFound:
		return http.StatusNotFound
	default:
		// remote failures and anything unclassified
		return http.StatusBadGateway
	}
}

// responseError writes err with its kind. field names the request field a
// local validation error refers to.
func responseError(w http.ResponseWriter, r *http.Request, err error, field, flowID string) {
	kind := errs.KindOf(err)
	code := statusCode(kind)

	resp := &APIResponse{
		Status:  "error",
		Message: err.Error(),
		Kind:    string(kind),
		ID:      flowID,
	}
	if errs.IsLocal(kind) {
		resp.Field = field
	}

	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", err, "path", r.URL.Path, "kind", kind)
	} else {
		logger.InfoContext(r.Context(), "request rejected", "path", r.URL.Path, "kind", kind, "message", resp.Message)
	}
	responseJSON(w, resp, code)
}
