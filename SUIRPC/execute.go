package SUIRPC

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"gowicpbridge/errs"
	"gowicpbridge/logger"
	"gowicpbridge/types"
)

const (
	methodExecute  = "sui_executeTransactionBlock"
	requestWaitFor = "WaitForLocalExecution"
)

// node messages for an input object whose version was already consumed
var staleMarkers = []string{
	"not available for consumption",
	"unavailable for consumption",
}

type executeResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
		Created []struct {
			Reference struct {
				ObjectID string `json:"objectId"`
			} `json:"reference"`
		} `json:"created"`
	} `json:"effects"`
	Events []json.RawMessage `json:"events"`
}

// classify keeps msg verbatim and marks it as a stale object or a generic
// submission failure.
func classify(msg string) error {
	if msg == "" {
		msg = "sui execution failed"
	}
	kind := errs.ChainBSubmissionFailed
	lower := strings.ToLower(msg)
	for _, marker := range staleMarkers {
		if strings.Contains(lower, marker) {
			kind = errs.StaleGasObject
			break
		}
	}
	return errors.Mark(errors.New(msg), kind)
}

// ExecuteTransactionBlock submits base64 transaction bytes with one base64
// signature and waits for local execution. It is never retried: a failed
// submission is surfaced and the caller starts over with fresh references.
func (c *Client) ExecuteTransactionBlock(ctx context.Context, txB64, sigB64 string) (*types.Execution, error) {
	if len(c.clients) == 0 {
		return nil, errors.Wrap(errs.ConfigMissing, "no sui rpc endpoints configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.clients[0].Call(methodExecute,
		txB64,
		[]string{sigB64},
		map[string]bool{"showEffects": true, "showEvents": true},
		requestWaitFor,
	)
	if err != nil {
		return nil, classify(err.Error())
	}
	if resp.Error != nil {
		return nil, classify(resp.Error.Message)
	}

	var res executeResponse
	if err := resp.GetObject(&res); err != nil {
		return nil, errors.Wrap(errs.ChainBSubmissionFailed, err.Error())
	}
	if res.Effects == nil {
		return nil, classify("execution response carries no effects for " + res.Digest)
	}
	if res.Effects.Status.Status != "success" {
		return nil, classify(res.Effects.Status.Error)
	}

	out := &types.Execution{Digest: res.Digest}
	for _, created := range res.Effects.Created {
		out.CreatedObjectIDs = append(out.CreatedObjectIDs, created.Reference.ObjectID)
	}
	logger.DebugContext(ctx, "sui transaction executed",
		"digest", out.Digest, "created", len(out.CreatedObjectIDs), "events", len(res.Events))
	return out, nil
}
