package suitx

import (
	"bytes"

	"github.com/fardream/go-bcs/bcs"
)

// Wire mirrors of the Sui transaction types. Enum variants are ordered as
// in Sui; only the variants the bridge uses are spelled out past the first.

type wireTransactionData struct {
	V1 *wireTransactionDataV1
}

func (wireTransactionData) IsBcsEnum() {}

type wireTransactionDataV1 struct {
	Kind       wireTransactionKind
	Sender     [32]byte
	GasData    wireGasData
	Expiration wireExpiration
}

type wireTransactionKind struct {
	ProgrammableTransaction *wireProgrammable
}

func (wireTransactionKind) IsBcsEnum() {}

type wireProgrammable struct {
	Inputs   []wireCallArg
	Commands []wireCommand
}

type wireCallArg struct {
	Pure   *[]byte
	Object *wireObjectArg
}

func (wireCallArg) IsBcsEnum() {}

type wireObjectArg struct {
	ImmOrOwnedObject *wireObjectRef
	SharedObject     *wireSharedObject
}

func (wireObjectArg) IsBcsEnum() {}

type wireObjectRef struct {
	ObjectID [32]byte
	Version  uint64
	Digest   []byte
}

type wireSharedObject struct {
	ObjectID             [32]byte
	InitialSharedVersion uint64
	Mutable              bool
}

type wireCommand struct {
	MoveCall *wireMoveCall
}

func (wireCommand) IsBcsEnum() {}

type wireMoveCall struct {
	Package       [32]byte
	Module        string
	Function      string
	TypeArguments []string // bridge calls are not generic
	Arguments     []wireArgument
}

type wireArgument struct {
	GasCoin *struct{}
	Input   *uint16
}

func (wireArgument) IsBcsEnum() {}

type wireGasData struct {
	Payment []wireObjectRef
	Owner   [32]byte
	Price   uint64
	Budget  uint64
}

type wireExpiration struct {
	None *struct{}
}

func (wireExpiration) IsBcsEnum() {}

func toWireRef(ref ObjectRef) wireObjectRef {
	return wireObjectRef{ObjectID: ref.ID, Version: ref.Version, Digest: bytes.Clone(ref.Digest[:])}
}

func mustMarshal(v any) []byte {
	b, err := bcs.Marshal(v)
	if err != nil {
		// only called with fixed-shape values
		panic(err)
	}
	return b
}

// PureU64 is the BCS encoding of a Move u64.
func PureU64(v uint64) []byte {
	return mustMarshal(v)
}

// PureAddress is the BCS encoding of a Move address.
func PureAddress(a [32]byte) []byte {
	return mustMarshal(a)
}

// PureBytes is the BCS encoding of a Move vector<u8>.
func PureBytes(b []byte) []byte {
	return mustMarshal(b)
}
