// Package handlers serves the bridge session over HTTP.
package handlers

import (
	"context"
	"net/http"

	"gowicpbridge/lifecycle"
	"gowicpbridge/reconciler"
	"gowicpbridge/types"
)

// OperationStore lists persisted operation records.
type OperationStore interface {
	FindAllBridgeOperationsByStatus(status string) ([]*types.BridgeOperation, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type API struct {
	Session    *lifecycle.Session
	Reconciler *reconciler.Reconciler
	Operations OperationStore
	// optional backend checked by HealthCheck
	Health Pinger
}

// stepContext keeps a started step running when the client goes away, so a
// signed transaction is never abandoned between signing and execution.
func stepContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
