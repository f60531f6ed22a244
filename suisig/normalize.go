// Package suisig turns a raw secp256k1 signature produced by the ICP
// threshold signer into the serialized signature Sui accepts.
package suisig

const ScalarLen = 32

// secp256k1 group order N and floor(N/2), big-endian.
var (
	curveOrder = [ScalarLen]byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe,
		0xba, 0xae, 0xdc, 0xe6, 0xaf, 0x48, 0xa0, 0x3b,
		0xbf, 0xd2, 0x5e, 0x8c, 0xd0, 0x36, 0x41, 0x41,
	}
	halfOrder = [ScalarLen]byte{
		0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x5d, 0x57, 0x6e, 0x73, 0x57, 0xa4, 0x50, 0x1d,
		0xdf, 0xe9, 0x2f, 0x46, 0x68, 0x1b, 0x20, 0xa0,
	}
)

// CurveOrder returns a copy of N.
func CurveOrder() [ScalarLen]byte { return curveOrder }

// HalfOrder returns a copy of N/2.
func HalfOrder() [ScalarLen]byte { return halfOrder }

// compare32 compares two big-endian unsigned integers.
func compare32(a, b *[ScalarLen]byte) int {
	for i := 0; i < ScalarLen; i++ {
		switch {
		case a[i] > b[i]:
			return 1
		case a[i] < b[i]:
			return -1
		}
	}
	return 0
}

// sub32 returns a - b modulo 2^256, propagating the borrow across all bytes.
func sub32(a, b *[ScalarLen]byte) [ScalarLen]byte {
	var out [ScalarLen]byte
	borrow := 0
	for i := ScalarLen - 1; i >= 0; i-- {
		d := int(a[i]) - int(b[i]) - borrow
		if d < 0 {
			d += 256
			borrow = 1
		} else {
			borrow = 0
		}
		out[i] = byte(d)
	}
	return out
}

// NormalizeS returns the low-S form of s: N - s when s > N/2, s otherwise.
func NormalizeS(s [ScalarLen]byte) [ScalarLen]byte {
	if compare32(&s, &halfOrder) > 0 {
		return sub32(&curveOrder, &s)
	}
	return s
}

// IsLowS reports whether s <= N/2.
func IsLowS(s [ScalarLen]byte) bool {
	return compare32(&s, &halfOrder) <= 0
}
