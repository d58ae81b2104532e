// Package marshal converts raw wire values from the ledger into exact
// numeric and calendar types. Token amounts carry up to 18+ decimal digits,
// so everything numeric stays in arbitrary precision; floats never appear.
package marshal

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/louisbranch/payrollwatch/internal/platform/errors"
)

// Amount is an exact integer amount in token base units.
//
// The zero value behaves as zero, so re-wrapping an Amount (or wrapping a
// missing field) is always safe and idempotent.
type Amount struct {
	value *big.Int
}

// NewAmount wraps a big integer as an Amount. The input is copied.
func NewAmount(v *big.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return Amount{value: new(big.Int).Set(v)}
}

// NewAmountFromInt64 builds an Amount from a machine integer.
func NewAmountFromInt64(v int64) Amount {
	return Amount{value: big.NewInt(v)}
}

// ParseAmount parses a decimal-string or numeric literal into an exact
// amount. It fails with CodeInvalidAmount on non-numeric input.
func ParseAmount(raw string) (Amount, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Amount{}, apperrors.WithMetadata(apperrors.CodeInvalidAmount,
			"amount is empty", map[string]string{"raw": raw})
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return Amount{}, apperrors.WithMetadata(apperrors.CodeInvalidAmount,
			"amount is not a decimal integer", map[string]string{"raw": raw})
	}
	return Amount{value: value}, nil
}

// Wrap returns an Amount backed by a non-nil integer. Applying Wrap to an
// already-wrapped Amount returns an equal Amount.
func Wrap(a Amount) Amount {
	if a.value == nil {
		return Amount{value: new(big.Int)}
	}
	return NewAmount(a.value)
}

// BigInt returns a copy of the underlying integer.
func (a Amount) BigInt() *big.Int {
	if a.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.value)
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	sum := a.BigInt()
	sum.Add(sum, b.BigInt())
	return Amount{value: sum}
}

// Cmp compares a and b, returning -1, 0, or +1.
func (a Amount) Cmp(b Amount) int {
	return a.BigInt().Cmp(b.BigInt())
}

// Equal reports whether a and b represent the same value.
func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

// IsZero reports whether the amount is zero (including the unset value).
func (a Amount) IsZero() bool {
	return a.value == nil || a.value.Sign() == 0
}

// Decimal converts the amount to a decimal for rate arithmetic.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.BigInt(), 0)
}

// String renders the amount as a decimal string.
func (a Amount) String() string {
	return a.BigInt().String()
}

// MarshalJSON renders the amount as a quoted decimal string so consumers
// never lose precision to float parsing.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare decimal integers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "null" || raw == "" {
		*a = Amount{}
		return nil
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
