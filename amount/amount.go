// Package amount converts between human decimal ICP amounts and e8s
// (minor units, 8 fractional digits).
package amount

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"gowicpbridge/errs"
)

const Decimals = 8

var (
	numberRe = regexp.MustCompile(`^\d+(\.\d*)?$`)

	maxUint64 = new(big.Int).SetUint64(^uint64(0))
)

// ToMinorUnits parses a non-negative decimal string into e8s.
// Empty input and "0" yield 0.
func ToMinorUnits(s string) (uint64, error) {
	clean := strings.TrimSpace(s)
	if clean == "" || clean == "0" {
		return 0, nil
	}
	if !numberRe.MatchString(clean) {
		return 0, errors.Wrapf(errs.InvalidAmount, "%q is not a number", s)
	}

	whole, frac, _ := strings.Cut(clean, ".")
	if len(frac) > Decimals {
		return 0, errors.Wrapf(errs.InvalidAmount, "%q has more than %d decimal places", s, Decimals)
	}
	if frac == "" {
		clean = whole
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, errors.Wrapf(errs.InvalidAmount, "%q: %v", s, err)
	}

	minor := d.Shift(Decimals).BigInt()
	if minor.Cmp(maxUint64) > 0 {
		return 0, errors.Wrapf(errs.InvalidAmount, "%q is out of range", s)
	}
	return minor.Uint64(), nil
}

// ToDecimalString renders e8s as a decimal string with trailing fractional
// zeros trimmed and no decimal point for whole amounts.
func ToDecimalString(e8s uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(e8s), -Decimals).String()
}

// Validate parses s and additionally rejects zero.
func Validate(s string) (uint64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, errors.Wrap(errs.InvalidAmount, "amount is required")
	}
	e8s, err := ToMinorUnits(s)
	if err != nil {
		return 0, err
	}
	if e8s == 0 {
		return 0, errors.Wrap(errs.InvalidAmount, "amount must be greater than 0")
	}
	return e8s, nil
}

// Format renders e8s followed by symbol, e.g. "0.01 wICP".
func Format(e8s uint64, symbol string) string {
	if symbol == "" {
		return ToDecimalString(e8s)
	}
	return fmt.Sprintf("%s %s", ToDecimalString(e8s), symbol)
}
