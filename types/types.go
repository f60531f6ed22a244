package types

import "time"

// Token symbols. Both sides use 8 decimals.
const (
	SymbolICP  = "ICP"
	SymbolWICP = "wICP"
)

type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositCompleted DepositStatus = "completed"
	DepositReleased  DepositStatus = "released"
)

// BridgeDeposit is a lock recorded by the ledger. Local copies are read-only.
type BridgeDeposit struct {
	ID           uint64  `json:"id"`
	Owner        string  `json:"user"`
	Amount       uint64  `json:"amount"`       // e8s
	SuiRecipient string  `json:"suiRecipient"` // 0x-prefixed sui address
	CreatedAt    int64   `json:"createdAt"`    // ns
	Released     bool    `json:"released"`
	BurnTxRef    *string `json:"suiBurnTx"`
}

func (d BridgeDeposit) Status() DepositStatus {
	switch {
	case d.Released:
		return DepositReleased
	case d.BurnTxRef != nil:
		return DepositCompleted
	default:
		return DepositPending
	}
}

// MintedCoin is a wICP coin object on Sui, as recorded by the ledger or
// observed in this session.
type MintedCoin struct {
	ObjectID        string  `json:"objectId"`
	TxDigest        string  `json:"digest"`
	Amount          uint64  `json:"amount"`
	TokenType       string  `json:"tokenType"`
	MintedAt        int64   `json:"ts"`
	LinkedDepositID *uint64 `json:"depositId"`
}

// BurnRecord is kept locally only: in flight right after submission, then
// moved to history.
type BurnRecord struct {
	ObjectID        string    `json:"objectId"`
	TxDigest        string    `json:"txDigest"`
	Amount          uint64    `json:"amount"`
	LinkedDepositID *uint64   `json:"linkedDepositId"`
	BurnedAt        time.Time `json:"burnedAt"`
}

// BridgeConfig is fetched once per session.
type BridgeConfig struct {
	AdminIdentity    string `json:"admin"`
	CustodialAddress string `json:"canisterSuiAddress"`
	GasObjectID      string `json:"gasObjectId"`
	Paused           bool   `json:"paused"`
	// informational, the local configuration is authoritative
	PackageID     string `json:"packageId,omitempty"`
	TreasuryCapID string `json:"treasuryCapId,omitempty"`
}

// GasObjectRef must be resolved right before each submission.
type GasObjectRef struct {
	ObjectID string `json:"objectId"`
	Version  uint64 `json:"version"`
	Digest   string `json:"digest"`
}

// DepositReceipt is the ledger's answer to a lock request.
type DepositReceipt struct {
	OK        bool    `json:"ok"`
	Msg       string  `json:"msg"`
	DepositID *uint64 `json:"depositId"`
}

// Signature is what the threshold signer returns for a digest.
type Signature struct {
	Signature []byte
	PublicKey []byte
}

// MintReport is sent back to the ledger after a successful mint.
type MintReport struct {
	ObjectID        string
	TxDigest        string
	Amount          uint64
	TokenType       string
	LinkedDepositID *uint64
}

// Execution is the part of a Sui execution response the bridge acts on.
type Execution struct {
	Digest           string
	CreatedObjectIDs []string
}

type OperationKind string

const (
	OperationDeposit OperationKind = "deposit"
	OperationBurn    OperationKind = "burn"
)

// BridgeOperation is the persisted status record of one deposit/mint or
// burn flow.
type BridgeOperation struct {
	ID           string
	Kind         OperationKind
	Status       string
	Amount       uint64
	SuiRecipient string
	DepositID    *uint64
	ObjectID     string // minted or burned coin
	TxDigest     string
	Nonce        uint64
	TsCreated    int64
	TsUpdated    int64
	Message      string // messages that help to track processing/errors
}

// AddMessage appends msg to the operation's message trail.
func (op *BridgeOperation) AddMessage(msg string) {
	if op.Message == "" {
		op.Message = msg
	} else {
		op.Message += "; " + msg
	}
}
