// Package discount computes discount amounts for line items and quotes.
//
// A Discount is a closed set of variants: Percentage, FixedAmount and PerUnit.
// Each variant carries only the value it needs; code that applies discounts
// switches over the variants exhaustively.
package discount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"quoteengine/internal/core/apperror"
)

// Kind is the wire name of a discount variant.
type Kind string

const (
	KindPercentage  Kind = "percentage"
	KindFixedAmount Kind = "fixed_amount"
	KindPerUnit     Kind = "per_unit"
)

var hundred = decimal.NewFromInt(100)

// Discount is implemented only by the variants in this package.
type Discount interface {
	Kind() Kind
	// Value is the raw figure the variant was specified with.
	Value() decimal.Decimal
	sealed()
}

// Percentage takes Percent/100 of the base amount. Percent must lie in [0,100].
type Percentage struct {
	Percent decimal.Decimal
}

// FixedAmount takes a flat amount, in the currency of the base, clamped to the base.
type FixedAmount struct {
	Amount decimal.Decimal
}

// PerUnit takes Amount for every unit of quantity, clamped to the base.
type PerUnit struct {
	Amount decimal.Decimal
}

func (Percentage) Kind() Kind  { return KindPercentage }
func (FixedAmount) Kind() Kind { return KindFixedAmount }
func (PerUnit) Kind() Kind     { return KindPerUnit }

func (d Percentage) Value() decimal.Decimal  { return d.Percent }
func (d FixedAmount) Value() decimal.Decimal { return d.Amount }
func (d PerUnit) Value() decimal.Decimal     { return d.Amount }

func (Percentage) sealed()  {}
func (FixedAmount) sealed() {}
func (PerUnit) sealed()     {}

// Spec is a discount as stored on a line item or quote.
// Inactive specs are kept for history but never applied.
type Spec struct {
	Discount Discount
	Active   bool
}

// Applies reports whether the discount contributes to totals.
func (s *Spec) Applies() bool {
	return s != nil && s.Active && s.Discount != nil
}

// New builds the variant for kind.
func New(kind Kind, value decimal.Decimal) (Discount, error) {
	var d Discount
	switch kind {
	case KindPercentage:
		d = Percentage{Percent: value}
	case KindFixedAmount:
		d = FixedAmount{Amount: value}
	case KindPerUnit:
		d = PerUnit{Amount: value}
	default:
		return nil, apperror.NewValidation("unknown discount type").
			WithField("discount.type").
			WithDetail(apperror.DetailValue, string(kind))
	}
	if err := Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Parse builds a discount from wire input such as ("percentage", "10").
func Parse(kind, value string) (Discount, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, apperror.NewValidation("discount value is not a decimal number").
			WithField("discount.value").
			WithDetail(apperror.DetailValue, value)
	}
	return New(Kind(strings.ToLower(strings.TrimSpace(kind))), v)
}

// Validate fails with a validation error when the value is out of range for its variant.
func Validate(d Discount) error {
	switch d := d.(type) {
	case Percentage:
		if d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
			return outOfRange(d, "percentage discount must be between 0 and 100")
		}
	case FixedAmount:
		if d.Amount.IsNegative() {
			return outOfRange(d, "fixed discount must not be negative")
		}
	case PerUnit:
		if d.Amount.IsNegative() {
			return outOfRange(d, "per-unit discount must not be negative")
		}
	case nil:
		return apperror.NewValidation("discount is required").WithField("discount")
	default:
		panic(fmt.Sprintf("discount: unhandled variant %T", d))
	}
	return nil
}

func outOfRange(d Discount, msg string) error {
	return apperror.NewValidation(msg).
		WithField("discount.value").
		WithDetail("type", string(d.Kind())).
		WithDetail(apperror.DetailValue, d.Value().String())
}
