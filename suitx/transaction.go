// Package suitx builds the BCS-encoded Sui TransactionData for the bridge's
// Move calls (token::mint and token::burn).
package suitx

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/fardream/go-bcs/bcs"
	"github.com/mr-tron/base58"
	"github.com/samber/lo"

	"gowicpbridge/suisig"
)

const (
	DigestLen = 32

	// DefaultGasBudget is the budget, in MIST, attached to bridge calls.
	DefaultGasBudget = 10_000_000
)

// ObjectRef is (object id, version, digest).
type ObjectRef struct {
	ID      [32]byte
	Version uint64
	Digest  [DigestLen]byte
}

// ParseObjectRef decodes the JSON-RPC representation of an object
// reference (hex id, base58 digest).
func ParseObjectRef(id string, version uint64, digest string) (ObjectRef, error) {
	ref := ObjectRef{Version: version}

	rawID, err := suisig.AddressBytes(id)
	if err != nil {
		return ref, errors.Wrap(err, "object id")
	}
	ref.ID = rawID

	rawDigest, err := base58.Decode(digest)
	if err != nil {
		return ref, errors.Wrapf(err, "object digest %q", digest)
	}
	if len(rawDigest) != DigestLen {
		return ref, errors.Newf("object digest %q decodes to %d bytes", digest, len(rawDigest))
	}
	copy(ref.Digest[:], rawDigest)
	return ref, nil
}

// SharedObject is a shared object input.
type SharedObject struct {
	ID                   [32]byte
	InitialSharedVersion uint64
	Mutable              bool
}

// ObjectArg is either an owned/immutable reference or a shared object.
type ObjectArg struct {
	Owned  *ObjectRef
	Shared *SharedObject
}

// Input is a programmable transaction input: a pure BCS value or an object.
type Input struct {
	Pure   []byte
	Object *ObjectArg
}

// MoveCall invokes Package::Module::Function with all Inputs as arguments,
// in order.
type MoveCall struct {
	Package  [32]byte
	Module   string
	Function string
	Inputs   []Input
}

// GasData pays for the transaction. Payment is the freshly resolved gas
// object reference.
type GasData struct {
	Payment []ObjectRef
	Owner   [32]byte
	Price   uint64
	Budget  uint64
}

// TransactionData is a V1 programmable transaction with a single Move call
// and no expiration.
type TransactionData struct {
	Sender [32]byte
	Call   MoveCall
	Gas    GasData
}

const maxProgrammableInput = 1<<16 - 1

func (in Input) wire(i int) (wireCallArg, error) {
	switch {
	case in.Object == nil:
		pure := bytes.Clone(in.Pure)
		return wireCallArg{Pure: &pure}, nil
	case in.Object.Owned != nil:
		ref := toWireRef(*in.Object.Owned)
		return wireCallArg{Object: &wireObjectArg{ImmOrOwnedObject: &ref}}, nil
	case in.Object.Shared != nil:
		sh := in.Object.Shared
		return wireCallArg{Object: &wireObjectArg{SharedObject: &wireSharedObject{
			ObjectID:             sh.ID,
			InitialSharedVersion: sh.InitialSharedVersion,
			Mutable:              sh.Mutable,
		}}}, nil
	default:
		return wireCallArg{}, errors.Newf("input %d: empty object argument", i)
	}
}

// Bytes returns the BCS encoding of t, which is what gets signed (behind the
// intent prefix) and submitted.
func (t *TransactionData) Bytes() ([]byte, error) {
	if len(t.Call.Inputs) > maxProgrammableInput {
		return nil, errors.Newf("too many inputs: %d", len(t.Call.Inputs))
	}
	if len(t.Gas.Payment) == 0 {
		return nil, errors.New("missing gas payment")
	}

	inputs := make([]wireCallArg, 0, len(t.Call.Inputs))
	args := make([]wireArgument, 0, len(t.Call.Inputs))
	for i, in := range t.Call.Inputs {
		arg, err := in.wire(i)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, arg)
		idx := uint16(i)
		args = append(args, wireArgument{Input: &idx})
	}

	tx := wireTransactionData{V1: &wireTransactionDataV1{
		Kind: wireTransactionKind{ProgrammableTransaction: &wireProgrammable{
			Inputs: inputs,
			Commands: []wireCommand{{MoveCall: &wireMoveCall{
				Package:       t.Call.Package,
				Module:        t.Call.Module,
				Function:      t.Call.Function,
				TypeArguments: []string{},
				Arguments:     args,
			}}},
		}},
		Sender: t.Sender,
		GasData: wireGasData{
			Payment: lo.Map(t.Gas.Payment, func(ref ObjectRef, _ int) wireObjectRef { return toWireRef(ref) }),
			Owner:   t.Gas.Owner,
			Price:   t.Gas.Price,
			Budget:  t.Gas.Budget,
		},
		Expiration: wireExpiration{None: &struct{}{}},
	}}

	b, err := bcs.Marshal(tx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode transaction data")
	}
	return b, nil
}

// MintCall is token::mint(treasury_cap, recipient, amount).
func MintCall(pkg [32]byte, module string, treasuryCap ObjectArg, recipient [32]byte, amount uint64) MoveCall {
	return MoveCall{
		Package:  pkg,
		Module:   module,
		Function: "mint",
		Inputs: []Input{
			{Object: &treasuryCap},
			{Pure: PureAddress(recipient)},
			{Pure: PureU64(amount)},
		},
	}
}

// BurnCall is token::burn(treasury_cap, coin, owner, nonce). owner is the
// raw ICP principal that is owed the unlocked funds.
func BurnCall(pkg [32]byte, module string, treasuryCap, coin ObjectArg, owner []byte, nonce uint64) MoveCall {
	return MoveCall{
		Package:  pkg,
		Module:   module,
		Function: "burn",
		Inputs: []Input{
			{Object: &treasuryCap},
			{Object: &coin},
			{Pure: PureBytes(owner)},
			{Pure: PureU64(nonce)},
		},
	}
}
