package errs

import "github.com/cockroachdb/errors"

// Kind identifies a class of bridge error.
// Wrap it with github.com/cockroachdb/errors and match with errors.Is.
type Kind string

const (
	// local validation, never reaches the network
	InvalidAmount  = Kind("invalid amount")
	InvalidAddress = Kind("invalid address")

	// remote business-rule failure: paused, insufficient funds, policy
	LedgerRejected = Kind("ledger rejected")

	// remote signer error or malformed digest/signature
	SigningFailed = Kind("signing failed")

	// Sui object model failures
	GasObjectMissing = Kind("gas object missing")
	StaleGasObject   = Kind("stale gas object")

	// generic execution failure (gas budget, Move abort, transport)
	ChainBSubmissionFailed = Kind("sui submission failed")

	// the on-chain action succeeded, only the ledger's record of it failed
	BookkeepingFailed = Kind("bookkeeping failed")

	ConfigMissing = Kind("configuration missing")
	InvalidState  = Kind("invalid state")
	NotFound      = Kind("not found")
)

// Error satisfies the error interface.
func (k Kind) Error() string {
	return string(k)
}

// IsLocal reports whether k is produced by local validation only.
func IsLocal(k Kind) bool {
	return k == InvalidAmount || k == InvalidAddress || k == ConfigMissing
}

var kinds = []Kind{
	InvalidAmount, InvalidAddress, LedgerRejected, SigningFailed,
	GasObjectMissing, StaleGasObject, ChainBSubmissionFailed,
	BookkeepingFailed, ConfigMissing, InvalidState, NotFound,
}

// KindOf returns the first Kind found in err's chain, or "" when err carries none.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ""
}
