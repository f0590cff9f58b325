// Package types provides the value types every pricing computation flows through.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity is a fixed-point quantity with 4 decimal places (scale = 1e4).
//
// Matches Postgres NUMERIC(15,4) and is stored as a scaled BIGINT.
// JSON is a number (or numeric string) with up to 4 decimals.
type Quantity int64

const (
	QuantityScale  int64 = 10_000
	quantityDigits       = 4
)

// NewQuantity creates a Quantity of whole units.
func NewQuantity(units int64) Quantity { return Quantity(units * QuantityScale) }

func NewQuantityFromInt64Scaled(v int64) Quantity { return Quantity(v) }

// ParseQuantity parses a plain decimal string ("40", "2.5", "0.0125").
func ParseQuantity(s string) (Quantity, error) { return parseQuantityString(s) }

// MustQuantity parses s or panics. Use only for constants and tests.
func MustQuantity(s string) Quantity {
	q, err := parseQuantityString(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

// Decimal returns the exact decimal value of the quantity.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), -quantityDigits) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

// String returns a decimal string with 4 fractional digits.
func (q Quantity) String() string {
	neg := q < 0
	v := q
	if neg {
		v = -v
	}
	intPart := int64(v) / QuantityScale
	frac := int64(v) % QuantityScale
	if neg {
		return fmt.Sprintf("-%d.%04d", intPart, frac)
	}
	return fmt.Sprintf("%d.%04d", intPart, frac)
}

// MarshalJSON encodes Quantity as JSON number (not string), preserving 4 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string and parses to fixed-point (4 digits).
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	parsed, err := parseQuantityString(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func parseQuantityString(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	// Exponent form would have to go through float64.
	if strings.ContainsAny(s, "eE") {
		return 0, fmt.Errorf("parse quantity %q: exponent form is not supported", s)
	}

	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = strings.TrimPrefix(s, "-")
	} else if strings.HasPrefix(s, "+") {
		s = strings.TrimPrefix(s, "+")
	}

	intPartStr, fracStr, _ := strings.Cut(s, ".")
	if intPartStr == "" && fracStr == "" {
		return 0, fmt.Errorf("parse quantity %q: no digits", s)
	}
	// Only the leading sign is allowed; ParseInt would accept another one.
	if !isDigits(intPartStr) || !isDigits(fracStr) {
		return 0, fmt.Errorf("parse quantity %q: invalid digits", s)
	}
	if intPartStr == "" {
		intPartStr = "0"
	}
	intPart, err := strconv.ParseInt(intPartStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity integer part: %w", err)
	}

	fracStr = strings.TrimRight(fracStr, "0")
	if len(fracStr) > quantityDigits {
		return 0, fmt.Errorf("parse quantity %q: more than %d fractional digits", s, quantityDigits)
	}
	for len(fracStr) < quantityDigits {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity fractional part: %w", err)
	}

	if intPart > (math.MaxInt64-frac)/QuantityScale {
		return 0, fmt.Errorf("parse quantity %q: out of range", s)
	}

	return Quantity(sign * (intPart*QuantityScale + frac)), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
