package suisig

import (
	"crypto/sha256"

	"golang.org/x/crypto/blake2b"
)

// transactionIntent is the Sui intent prefix for transaction data:
// scope TransactionData, version V0, app id Sui.
var transactionIntent = [3]byte{0, 0, 0}

// IntentMessage returns intent prefix || txBytes.
func IntentMessage(txBytes []byte) []byte {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent[:]...)
	return append(msg, txBytes...)
}

// IntentDigest returns the 32 bytes the ICP signer must sign for txBytes:
// sha256(blake2b-256(intent || txBytes)). Sui hashes the intent message with
// blake2b and its secp256k1 verifier applies sha256 on top.
func IntentDigest(txBytes []byte) [32]byte {
	inner := blake2b.Sum256(IntentMessage(txBytes))
	return sha256.Sum256(inner[:])
}
