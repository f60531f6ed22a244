package SUIRPC

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/ybbus/jsonrpc"

	"gowicpbridge/errs"
	"gowicpbridge/suitx"
	"gowicpbridge/types"
)

// Owner kinds reported in the object "owner" field.
const (
	OwnerAddress   = "AddressOwner"
	OwnerObject    = "ObjectOwner"
	OwnerShared    = "Shared"
	OwnerImmutable = "Immutable"
)

type Owner struct {
	Kind                 string
	Address              string // AddressOwner / ObjectOwner
	InitialSharedVersion uint64 // Shared
}

func (o *Owner) UnmarshalJSON(b []byte) error {
	var kind string
	if err := json.Unmarshal(b, &kind); err == nil {
		o.Kind = kind
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return errors.Wrap(err, "unexpected owner")
	}
	for k, v := range fields {
		o.Kind = k
		switch k {
		case OwnerAddress, OwnerObject:
			return json.Unmarshal(v, &o.Address)
		case OwnerShared:
			var shared struct {
				InitialSharedVersion u64String `json:"initial_shared_version"`
			}
			if err := json.Unmarshal(v, &shared); err != nil {
				return err
			}
			o.InitialSharedVersion = uint64(shared.InitialSharedVersion)
			return nil
		}
	}
	return nil
}

// Object is the current state of an on-chain object.
type Object struct {
	ObjectID string    `json:"objectId"`
	Version  u64String `json:"version"`
	Digest   string    `json:"digest"`
	Owner    *Owner    `json:"owner"`
}

type objectResponse struct {
	Data  *Object `json:"data"`
	Error *struct {
		Code     string `json:"code"`
		ObjectID string `json:"object_id"`
	} `json:"error"`
}

// GetObject fetches the latest version of id. A missing or deleted object is
// errs.NotFound.
func (c *Client) GetObject(ctx context.Context, id string) (*Object, error) {
	return WithClient(ctx, c, func(rpc jsonrpc.RPCClient) (*Object, error) {
		var resp objectResponse
		err := rpc.CallFor(&resp, "sui_getObject", id, map[string]bool{"showOwner": true})
		if err != nil {
			return nil, errors.Wrapf(err, "sui_getObject %s", id)
		}
		if resp.Error != nil {
			return nil, errors.Wrapf(errs.NotFound, "object %s: %s", id, resp.Error.Code)
		}
		if resp.Data == nil {
			return nil, errors.Wrapf(errs.NotFound, "object %s", id)
		}
		return resp.Data, nil
	})
}

// ResolveGas fetches a fresh reference to the gas object. It must be called
// for every submission: any transaction touching the object bumps its
// version.
func (c *Client) ResolveGas(ctx context.Context, id string) (types.GasObjectRef, error) {
	obj, err := c.GetObject(ctx, id)
	if errors.Is(err, errs.NotFound) {
		return types.GasObjectRef{}, errors.Wrapf(errs.GasObjectMissing, "gas object %s does not exist", id)
	}
	if err != nil {
		return types.GasObjectRef{}, err
	}
	return types.GasObjectRef{
		ObjectID: obj.ObjectID,
		Version:  uint64(obj.Version),
		Digest:   obj.Digest,
	}, nil
}

// ResolveObject fetches id and turns it into a transaction input: a shared
// object argument when the object is shared, an owned reference otherwise.
func (c *Client) ResolveObject(ctx context.Context, id string, mutable bool) (suitx.ObjectArg, error) {
	obj, err := c.GetObject(ctx, id)
	if err != nil {
		return suitx.ObjectArg{}, err
	}

	if obj.Owner != nil && obj.Owner.Kind == OwnerShared {
		ref, err := suitx.ParseObjectRef(obj.ObjectID, 0, obj.Digest)
		if err != nil {
			return suitx.ObjectArg{}, err
		}
		return suitx.ObjectArg{Shared: &suitx.SharedObject{
			ID:                   ref.ID,
			InitialSharedVersion: obj.Owner.InitialSharedVersion,
			Mutable:              mutable,
		}}, nil
	}

	ref, err := suitx.ParseObjectRef(obj.ObjectID, uint64(obj.Version), obj.Digest)
	if err != nil {
		return suitx.ObjectArg{}, err
	}
	return suitx.ObjectArg{Owned: &ref}, nil
}
