package suisig

import (
	"encoding/base64"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/crypto"

	"gowicpbridge/errs"
)

// SchemeSecp256k1 is the Sui signature scheme flag for ECDSA over secp256k1.
const SchemeSecp256k1 byte = 0x01

const RawSignatureLen = 2 * ScalarLen

// Assemble builds flag || r || low-S(s) || pubkey from a raw 64-byte r||s
// signature and the signer's public key.
func Assemble(rawSig, pubKey []byte) ([]byte, error) {
	if len(rawSig) != RawSignatureLen {
		return nil, errors.Wrapf(errs.SigningFailed, "signature must be %d bytes, got %d", RawSignatureLen, len(rawSig))
	}
	if len(pubKey) == 0 {
		return nil, errors.Wrap(errs.SigningFailed, "empty public key")
	}

	var s [ScalarLen]byte
	copy(s[:], rawSig[ScalarLen:])
	s = NormalizeS(s)

	out := make([]byte, 0, 1+RawSignatureLen+len(pubKey))
	out = append(out, SchemeSecp256k1)
	out = append(out, rawSig[:ScalarLen]...)
	out = append(out, s[:]...)
	out = append(out, pubKey...)
	return out, nil
}

// Split returns the r||s part and the public key of an assembled signature.
func Split(serialized []byte) (rawSig, pubKey []byte, err error) {
	if len(serialized) <= 1+RawSignatureLen || serialized[0] != SchemeSecp256k1 {
		return nil, nil, errors.Wrap(errs.SigningFailed, "not a secp256k1 serialized signature")
	}
	return serialized[1 : 1+RawSignatureLen], serialized[1+RawSignatureLen:], nil
}

// VerifyDigest checks an assembled signature against digest. Sui, like
// go-ethereum, only accepts low-S signatures, so this must run after Assemble.
func VerifyDigest(serialized []byte, digest [32]byte) error {
	rawSig, pubKey, err := Split(serialized)
	if err != nil {
		return err
	}
	if !crypto.VerifySignature(pubKey, digest[:], rawSig) {
		return errors.Wrap(errs.SigningFailed, "signature does not verify against transaction digest")
	}
	return nil
}

// EncodeBase64 is the encoding the Sui execution RPC expects for both
// transaction bytes and signatures.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
