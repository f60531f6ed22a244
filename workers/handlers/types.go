package handlers

import (
	"time"

	"gowicpbridge/lifecycle"
	"gowicpbridge/reconciler"
	"gowicpbridge/types"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field"`
	// error kind, see package errs
	Kind string `json:"kind,omitempty"`
	// flow the failed step belongs to
	ID string `json:"id,omitempty"`
}

type APIStateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type IdentityRequest struct {
	Principal string `json:"principal"`
}

type ConfigResponse struct {
	Status        string             `json:"status"`
	Principal     string             `json:"principal"`
	EstablishedAt time.Time          `json:"establishedAt"`
	Bridge        types.BridgeConfig `json:"bridge"`
	Sui           lifecycle.Settings `json:"sui"`
}

type DepositRequest struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type LedgerDeposit struct {
	types.BridgeDeposit
	Status        types.DepositStatus `json:"status"`
	AmountDecimal string              `json:"amountDecimal"`
}

type BurnRequest struct {
	ObjectID string `json:"objectId"`
}

type DashboardResponse struct {
	reconciler.Snapshot
	BalanceText string `json:"balanceText"`
}

type AuditResponse struct {
	Status     string                 `json:"status"`
	Violations []reconciler.Violation `json:"violations"`
}
