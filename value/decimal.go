package value

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Decimal is an arbitrary-precision fixed-point number, represented as
// an unscaled coefficient and a base-10 exponent (value = coeff *
// 10^-scale). No suitable decimal library ships anywhere in the
// dependency corpus this module was grown from, so this is a
// deliberate, narrow standard-library exception: it exists only to
// satisfy the record model's "arbitrary-precision decimal" variant and
// implements just the operations UdtCodec and the JSON wire format
// need (construction, string round-trip, equality).
type Decimal struct {
	coeff *big.Int
	scale int32
}

// NewDecimalFromString parses a decimal literal such as "1.50" or
// "-3". Scientific notation is not accepted; callers needing it should
// convert to float64 first (accepting the precision loss the spec
// already prescribes for that variant).
func NewDecimalFromString(s string) (Decimal, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	intPart, fracPart, hasFrac := s, "", false
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart, hasFrac = s[:i], s[i+1:], true
	}
	if intPart == "" {
		intPart = "0"
	}
	digits := intPart
	if hasFrac {
		digits += fracPart
	}
	coeff, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("invalid decimal literal %q", s)
	}
	if neg {
		coeff.Neg(coeff)
	}
	return Decimal{coeff: coeff, scale: int32(len(fracPart))}, nil
}

// NewDecimalFromInt64 returns the exact decimal representation of an
// integer value, used when promoting int32/int64 record fields.
func NewDecimalFromInt64(v int64) Decimal {
	return Decimal{coeff: big.NewInt(v), scale: 0}
}

// NewDecimalFromFloat64 promotes a float64 to a decimal. The spec
// requires this promotion on write; per §3, precision beyond what
// strconv's shortest round-trip representation captures is not
// guaranteed, matching float64's inherent limits.
func NewDecimalFromFloat64(v float64) (Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Decimal{}, fmt.Errorf("cannot represent %v as a decimal", v)
	}
	return NewDecimalFromString(strconv.FormatFloat(v, 'f', -1, 64))
}

// String renders the decimal in plain fixed-point notation.
func (d Decimal) String() string {
	if d.coeff == nil {
		return "0"
	}
	if d.scale <= 0 {
		return d.coeff.String()
	}
	neg := d.coeff.Sign() < 0
	digits := new(big.Int).Abs(d.coeff).String()
	for int32(len(digits)) <= d.scale {
		digits = "0" + digits
	}
	cut := int32(len(digits)) - d.scale
	whole, frac := digits[:cut], digits[cut:]
	out := whole + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// Equal compares two decimals by numeric value, independent of scale
// (1.50 equals 1.5), matching the round-trip law's tolerance for
// scale differences introduced by numeric-to-decimal promotion.
func (d Decimal) Equal(o Decimal) bool {
	return d.Cmp(o) == 0
}

// Cmp orders two decimals numerically, aligning scales first.
func (d Decimal) Cmp(o Decimal) int {
	ds, os := d.scale, o.scale
	dc, oc := new(big.Int).Set(d.coeff), new(big.Int).Set(o.coeff)
	switch {
	case ds < os:
		dc.Mul(dc, pow10(os-ds))
	case os < ds:
		oc.Mul(oc, pow10(ds-os))
	}
	return dc.Cmp(oc)
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Float64 converts the decimal to a float64; precision beyond what a
// float64 holds is lost.
func (d Decimal) Float64() float64 {
	f := new(big.Float).SetInt(d.coeff)
	scale := new(big.Float).SetInt(pow10(d.scale))
	f.Quo(f, scale)
	v, _ := f.Float64()
	return v
}
