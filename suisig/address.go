package suisig

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"

	"gowicpbridge/errs"
)

var addressRe = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ValidateAddress checks that s is a Sui address: 64 hex characters,
// optionally 0x-prefixed.
func ValidateAddress(s string) error {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return errors.Wrap(errs.InvalidAddress, "sui address is required")
	}
	if !addressRe.MatchString(strings.TrimPrefix(clean, "0x")) {
		return errors.Wrapf(errs.InvalidAddress, "%q must be 64 hex characters", s)
	}
	return nil
}

// NormalizeAddress validates s and returns it lower-cased with a 0x prefix.
func NormalizeAddress(s string) (string, error) {
	if err := ValidateAddress(s); err != nil {
		return "", err
	}
	return "0x" + strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "0x")), nil
}

// AddressBytes decodes a Sui address or object id into its 32 raw bytes.
func AddressBytes(s string) ([32]byte, error) {
	var out [32]byte
	if err := ValidateAddress(s); err != nil {
		return out, err
	}
	copy(out[:], common.FromHex(strings.TrimSpace(s)))
	return out, nil
}

// AddressFromPublicKey derives the Sui address controlled by a secp256k1
// key: blake2b-256(flag || compressed pubkey).
func AddressFromPublicKey(pubKey []byte) (string, error) {
	compressed := pubKey
	switch len(pubKey) {
	case 33:
	case 65:
		pk, err := crypto.UnmarshalPubkey(pubKey)
		if err != nil {
			return "", errors.Wrap(errs.SigningFailed, err.Error())
		}
		compressed = crypto.CompressPubkey(pk)
	default:
		return "", errors.Wrapf(errs.SigningFailed, "unexpected public key length %d", len(pubKey))
	}

	sum := blake2b.Sum256(append([]byte{SchemeSecp256k1}, compressed...))
	return hexutil.Encode(sum[:]), nil
}
