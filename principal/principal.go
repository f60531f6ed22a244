// Package principal converts ICP principals between their textual form
// (e.g. "rdmx6-jaaaa-aaaaa-aaadq-cai") and raw bytes.
package principal

import (
	"bytes"
	"strings"

	icp "github.com/aviate-labs/agent-go/principal"
	"github.com/cockroachdb/errors"

	"gowicpbridge/errs"
)

const (
	MaxLen = 29

	// base32 characters of a 4 byte checksum alone, and of checksum plus MaxLen bytes
	minTextLen = 7
	maxTextLen = 53
)

// Anonymous is the principal of unauthenticated callers.
var Anonymous = icp.AnonymousID.Raw

// Decode parses a textual principal and verifies its checksum.
func Decode(text string) ([]byte, error) {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return nil, errors.Wrap(errs.InvalidAddress, "principal is required")
	}
	if n := len(strings.ReplaceAll(clean, "-", "")); n < minTextLen || n > maxTextLen {
		return nil, errors.Wrapf(errs.InvalidAddress, "principal %q has invalid length", text)
	}

	p, err := icp.Decode(clean)
	if err != nil {
		return nil, errors.Wrapf(errs.InvalidAddress, "principal %q: %v", text, err)
	}

	// reject non-canonical spellings (wrong grouping)
	if p.Encode() != clean {
		return nil, errors.Wrapf(errs.InvalidAddress, "principal %q is not canonical", text)
	}
	if p.Raw == nil {
		return []byte{}, nil
	}
	return p.Raw, nil
}

// Encode renders raw principal bytes in the dash-grouped textual form.
func Encode(raw []byte) string {
	return icp.Principal{Raw: raw}.Encode()
}

// IsAnonymous reports whether text is the anonymous principal.
func IsAnonymous(text string) bool {
	raw, err := Decode(text)
	return err == nil && bytes.Equal(raw, Anonymous)
}
