package types

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"quoteengine/internal/core/apperror"
)

// Money is a currency-tagged amount held at the currency's minor-unit precision.
// Every constructor and arithmetic operation rounds half-up exactly once, so
// repeated computation over the same inputs is bit-for-bit identical.
//
// The zero value has no currency and is not a valid amount.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// RoundHalfUp rounds d to scale fractional digits, ties away from zero, so a
// negative amount rounds to the mirror of its positive counterpart.
// This is the only rounding primitive in the module.
func RoundHalfUp(d decimal.Decimal, scale int32) decimal.Decimal {
	return d.Round(scale)
}

// NewMoney creates Money from an exact decimal, rounding to the currency minor unit.
func NewMoney(amount decimal.Decimal, currency string) Money {
	currency = NormalizeCurrency(currency)
	return Money{
		amount:   RoundHalfUp(amount, CurrencyScale(currency)),
		currency: currency,
	}
}

// MoneyFromString parses a decimal string amount.
// This is the preferred constructor for external input.
func MoneyFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, apperror.NewValidation("invalid monetary amount").
			WithDetail(apperror.DetailValue, amount).
			WithCause(err)
	}
	return NewMoney(d, currency), nil
}

// MustMoney creates Money from a string, panics on error.
// Use only for constants and tests.
func MustMoney(amount, currency string) Money {
	m, err := MoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// ZeroMoney returns a zero amount in currency.
func ZeroMoney(currency string) Money {
	return NewMoney(decimal.Zero, currency)
}

// FromMinorUnits builds Money from an integer count of minor units
// (cents, fils, yen), the form amounts are persisted in.
func FromMinorUnits(units int64, currency string) Money {
	currency = NormalizeCurrency(currency)
	return Money{amount: decimal.New(units, -CurrencyScale(currency)), currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() string { return m.currency }

func (m Money) Scale() int32 { return CurrencyScale(m.currency) }

// MinorUnits returns the amount as an integer count of minor units.
func (m Money) MinorUnits() int64 {
	return m.amount.Shift(m.Scale()).IntPart()
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// SameCurrency reports whether both amounts carry the same currency code.
func (m Money) SameCurrency(o Money) bool { return m.currency == o.currency }

func (m Money) checkCurrency(o Money) error {
	if !m.SameCurrency(o) {
		return apperror.NewCurrencyMismatch(m.currency, o.currency)
	}
	return nil
}

// Add returns m + o. Both operands must share a currency.
func (m Money) Add(o Money) (Money, error) {
	if err := m.checkCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(o.amount), currency: m.currency}, nil
}

// Sub returns m - o. Both operands must share a currency.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.checkCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(o.amount), currency: m.currency}, nil
}

// MulQuantity returns m * q rounded to the minor unit.
func (m Money) MulQuantity(q Quantity) Money {
	return NewMoney(m.amount.Mul(q.Decimal()), m.currency)
}

// MulRate returns m * rate rounded to the minor unit.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return NewMoney(m.amount.Mul(rate), m.currency)
}

// Cmp compares amounts; callers must ensure both share a currency.
func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }

// Equal reports whether amount and currency match.
func (m Money) Equal(o Money) bool {
	return m.SameCurrency(o) && m.amount.Equal(o.amount)
}

// Min returns the smaller of m and o (same currency assumed).
func (m Money) Min(o Money) Money {
	if o.Cmp(m) < 0 {
		return o
	}
	return m
}

// Max returns the larger of m and o (same currency assumed).
func (m Money) Max(o Money) Money {
	if o.Cmp(m) > 0 {
		return o
	}
	return m
}

// ClampZero returns m, or zero when m is negative.
func (m Money) ClampZero() Money {
	if m.IsNegative() {
		return ZeroMoney(m.currency)
	}
	return m
}

// StringFixed renders the amount with exactly Scale() fractional digits.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.Scale())
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.StringFixed(), m.currency)
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// MarshalJSON renders {"amount":"150.00","currency":"NZD"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{Amount: m.StringFixed(), Currency: m.currency})
}

// UnmarshalJSON accepts the amount as a JSON string or number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !IsISOCode(NormalizeCurrency(raw.Currency)) {
		return fmt.Errorf("invalid currency code %q", raw.Currency)
	}
	*m = NewMoney(raw.Amount, raw.Currency)
	return nil
}
