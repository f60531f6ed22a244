package workers

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"gowicpbridge/logger"
	"gowicpbridge/types"
)

// statuses a step holds only while its remote call is outstanding
var transientStatuses = []string{"depositing", "minting", "burning"}

const statusInterrupted = "interrupted"

type OperationStore interface {
	FindAllBridgeOperationsByStatus(status string) ([]*types.BridgeOperation, error)
	ChangeBridgeOperationStatus(op *types.BridgeOperation, prevStatus string) error
}

// Worker_markInterrupted runs once at startup. Records left in a transient
// status by a previous process are moved to "interrupted"; the remote
// outcome is unknown so nothing is resubmitted.
func Worker_markInterrupted(store OperationStore, now int64) (int, error) {
	marked := 0
	for _, status := range transientStatuses {
		pending, err := store.FindAllBridgeOperationsByStatus(status)
		if err != nil {
			return marked, errors.Wrapf(err, "cannot list %s operations", status)
		}

		for _, op := range pending {
			op.Status = statusInterrupted
			op.TsUpdated = now
			op.AddMessage(fmt.Sprintf("process stopped while %s, check the ledger and Sui before retrying", status))

			if err := store.ChangeBridgeOperationStatus(op, status); err != nil {
				logger.Warn("cannot mark operation interrupted", "id", op.ID, logger.Err(err))
				continue
			}
			logger.Warn("operation interrupted by restart", "id", op.ID, "kind", op.Kind, "was", status,
				"amount", op.Amount, "objectId", op.ObjectID, "digest", op.TxDigest)
			marked++
		}
	}
	return marked, nil
}
