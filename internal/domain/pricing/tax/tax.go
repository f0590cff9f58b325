// Package tax computes tax on a taxable base in tax-exclusive or tax-inclusive mode.
// The rate is supplied by the caller; jurisdiction rules live elsewhere.
package tax

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/types"
)

// Mode states whether an amount already contains tax.
type Mode string

const (
	// Exclusive: tax is added on top of the base.
	Exclusive Mode = "exclusive"
	// Inclusive: the base already contains tax; the tax share is extracted.
	Inclusive Mode = "inclusive"
)

// divisionPrecision bounds the intermediate quotient in inclusive mode.
// It is well beyond any currency scale, and the result is rounded once.
const divisionPrecision = 16

// ParseMode accepts "exclusive"/"inclusive"; empty means exclusive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Exclusive:
		return Exclusive, nil
	case Inclusive:
		return Inclusive, nil
	default:
		return "", apperror.NewValidation("unknown tax mode").
			WithField("taxMode").
			WithDetail(apperror.DetailValue, s)
	}
}

// ValidateRate fails unless rate lies in [0,1].
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return apperror.NewValidation("tax rate must be between 0 and 1").
			WithField("taxRate").
			WithDetail(apperror.DetailValue, rate.String())
	}
	return nil
}

// Calculate returns the tax amount for base at rate.
//
//	exclusive: round(base * rate)
//	inclusive: round(base - base/(1+rate))
//
// Rounding happens once, at the currency minor unit.
func Calculate(base types.Money, rate decimal.Decimal, mode Mode) (types.Money, error) {
	if err := ValidateRate(rate); err != nil {
		return types.Money{}, err
	}
	if base.Currency() == "" {
		return types.Money{}, apperror.NewValidation("taxable amount has no currency").WithField("amount")
	}

	switch mode {
	case Exclusive:
		return base.MulRate(rate), nil
	case Inclusive:
		net := base.Amount().DivRound(decimal.NewFromInt(1).Add(rate), divisionPrecision)
		return types.NewMoney(base.Amount().Sub(net), base.Currency()), nil
	default:
		panic(fmt.Sprintf("tax: unhandled mode %q", mode))
	}
}

// Breakdown splits an amount into net, tax and gross parts.
// Net + Tax == Gross holds exactly.
type Breakdown struct {
	Net   types.Money `json:"net"`
	Tax   types.Money `json:"tax"`
	Gross types.Money `json:"gross"`
}

// Split interprets amount according to mode and returns its breakdown.
// In exclusive mode amount is the net; in inclusive mode it is the gross.
func Split(amount types.Money, rate decimal.Decimal, mode Mode) (Breakdown, error) {
	t, err := Calculate(amount, rate, mode)
	if err != nil {
		return Breakdown{}, err
	}

	if mode == Inclusive {
		net, err := amount.Sub(t)
		if err != nil {
			return Breakdown{}, err
		}
		return Breakdown{Net: net, Tax: t, Gross: amount}, nil
	}

	gross, err := amount.Add(t)
	if err != nil {
		return Breakdown{}, err
	}
	return Breakdown{Net: amount, Tax: t, Gross: gross}, nil
}
