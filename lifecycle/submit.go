package lifecycle

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"gowicpbridge/errs"
	"gowicpbridge/logger"
	"gowicpbridge/suisig"
	"gowicpbridge/suitx"
	"gowicpbridge/types"
)

// Submitter signs transaction bytes with the ledger's threshold key and
// executes them on Sui. Mint and burn share it.
type Submitter struct {
	Ledger Ledger
	Chain  Chain
	// Sender is the custodial address; a signer key that does not control it
	// is logged.
	Sender string
}

// SignAndSubmit runs digest -> remote signature -> low-S assembly -> local
// verification -> execution.
func (s *Submitter) SignAndSubmit(ctx context.Context, txBytes []byte) (*types.Execution, error) {
	digest := suisig.IntentDigest(txBytes)

	sig, err := s.Ledger.SignTransactionHash(ctx, digest)
	if err != nil {
		return nil, markKind(err, errs.SigningFailed)
	}

	serialized, err := suisig.Assemble(sig.Signature, sig.PublicKey)
	if err != nil {
		return nil, err
	}
	if err := suisig.VerifyDigest(serialized, digest); err != nil {
		return nil, err
	}
	if s.Sender != "" {
		if addr, err := suisig.AddressFromPublicKey(sig.PublicKey); err == nil && !strings.EqualFold(addr, s.Sender) {
			logger.WarnContext(ctx, "signer key does not control the custodial address", "signer", addr, "custodial", s.Sender)
		}
	}

	exec, err := s.Chain.ExecuteTransactionBlock(ctx, suisig.EncodeBase64(txBytes), suisig.EncodeBase64(serialized))
	if err != nil {
		return nil, markKind(err, errs.ChainBSubmissionFailed)
	}
	return exec, nil
}

// markKind tags err with kind unless it already carries a bridge error kind.
func markKind(err error, kind errs.Kind) error {
	if errs.KindOf(err) != "" {
		return err
	}
	return errors.Mark(err, kind)
}

// buildCall resolves fresh object references (gas included) and encodes the
// transaction returned by call.
func (s *Session) buildCall(ctx context.Context, id *Identity, call func(pkg [32]byte, treasury suitx.ObjectArg) suitx.MoveCall) ([]byte, error) {
	sender, err := suisig.AddressBytes(id.Config.CustodialAddress)
	if err != nil {
		return nil, errors.Wrap(errs.ConfigMissing, "custodial address: "+err.Error())
	}
	pkg, err := suisig.AddressBytes(s.settings.PackageID)
	if err != nil {
		return nil, errors.Wrap(errs.ConfigMissing, "package id: "+err.Error())
	}

	treasury, err := s.deps.Chain.ResolveObject(ctx, s.settings.TreasuryCapID, true)
	if err != nil {
		return nil, markKind(errors.Wrap(err, "treasury cap"), errs.ChainBSubmissionFailed)
	}
	price, err := s.deps.Chain.GetReferenceGasPrice(ctx)
	if err != nil {
		return nil, markKind(errors.Wrap(err, "reference gas price"), errs.ChainBSubmissionFailed)
	}

	// never reuse a gas reference across submissions
	gas, err := s.deps.Chain.ResolveGas(ctx, id.Config.GasObjectID)
	if err != nil {
		return nil, markKind(err, errs.ChainBSubmissionFailed)
	}
	gasRef, err := suitx.ParseObjectRef(gas.ObjectID, gas.Version, gas.Digest)
	if err != nil {
		return nil, markKind(errors.Wrap(err, "gas object"), errs.ChainBSubmissionFailed)
	}

	tx := suitx.TransactionData{
		Sender: sender,
		Call:   call(pkg, treasury),
		Gas: suitx.GasData{
			Payment: []suitx.ObjectRef{gasRef},
			Owner:   sender,
			Price:   price,
			Budget:  s.settings.GasBudget,
		},
	}
	txBytes, err := tx.Bytes()
	if err != nil {
		return nil, markKind(err, errs.ChainBSubmissionFailed)
	}
	logger.DebugContext(ctx, "transaction built", "function", tx.Call.Function, "gasVersion", gas.Version, "gasPrice", price)
	return txBytes, nil
}

func (s *Session) submitter(id *Identity) *Submitter {
	return &Submitter{Ledger: id.Ledger, Chain: s.deps.Chain, Sender: id.Config.CustodialAddress}
}

// requireSuiConfig fails before any network call when the snapshot lacks
// what a Sui submission needs.
func requireSuiConfig(id *Identity) error {
	if id.Config.GasObjectID == "" {
		return errors.Wrap(errs.ConfigMissing, "gas object id is not configured on the ledger")
	}
	if id.Config.CustodialAddress == "" {
		return errors.Wrap(errs.ConfigMissing, "custodial sui address is not configured on the ledger")
	}
	return nil
}
