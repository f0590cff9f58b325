package discount

import (
	"fmt"

	"github.com/shopspring/decimal"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/types"
)

// Result is the outcome of applying one discount to one amount.
// DiscountAmount + FinalAmount == Original holds exactly.
type Result struct {
	Kind           Kind        `json:"type"`
	Original       types.Money `json:"originalAmount"`
	DiscountAmount types.Money `json:"discountAmount"`
	FinalAmount    types.Money `json:"finalAmount"`
	// Clamped is set when the discount as specified exceeded the base.
	Clamped bool `json:"clamped"`
}

// MultiResult is the outcome of a chain of discounts.
type MultiResult struct {
	Original       types.Money `json:"originalAmount"`
	DiscountAmount types.Money `json:"discountAmount"`
	FinalAmount    types.Money `json:"finalAmount"`
	Steps          []Result    `json:"steps"`
}

// Calculate applies d to original. quantity is only consulted by PerUnit.
func Calculate(original types.Money, d Discount, quantity types.Quantity) (Result, error) {
	if err := checkBase(original); err != nil {
		return Result{}, err
	}
	if err := Validate(d); err != nil {
		return Result{}, err
	}

	raw, err := rawAmount(original, d, quantity)
	if err != nil {
		return Result{}, err
	}

	amount := raw.Min(original)
	final, err := original.Sub(amount)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Kind:           d.Kind(),
		Original:       original,
		DiscountAmount: amount,
		FinalAmount:    final,
		Clamped:        raw.Cmp(original) > 0,
	}, nil
}

// ApplyMultiple applies discounts in the given order. Each discount is computed
// against the amount left by the previous one, so discounts compound instead
// of adding up. The final amount never drops below zero.
func ApplyMultiple(original types.Money, discounts []Discount, quantity types.Quantity) (MultiResult, error) {
	if err := checkBase(original); err != nil {
		return MultiResult{}, err
	}

	res := MultiResult{
		Original:    original,
		FinalAmount: original,
		Steps:       make([]Result, 0, len(discounts)),
	}
	for i, d := range discounts {
		step, err := Calculate(res.FinalAmount, d, quantity)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return MultiResult{}, appErr.WithDetail("discountIndex", i)
			}
			return MultiResult{}, err
		}
		res.Steps = append(res.Steps, step)
		res.FinalAmount = step.FinalAmount
	}

	total, err := original.Sub(res.FinalAmount)
	if err != nil {
		return MultiResult{}, err
	}
	res.DiscountAmount = total
	return res, nil
}

// WouldResultInNegative reports whether d, as specified, exceeds original and
// would therefore be clamped.
func WouldResultInNegative(original types.Money, d Discount, quantity types.Quantity) (bool, error) {
	if err := checkBase(original); err != nil {
		return false, err
	}
	if err := Validate(d); err != nil {
		return false, err
	}
	raw, err := rawAmount(original, d, quantity)
	if err != nil {
		return false, err
	}
	return raw.Cmp(original) > 0, nil
}

// MaximumSafeValue returns the largest value of kind that can be applied to
// original without clamping.
func MaximumSafeValue(original types.Money, kind Kind, quantity types.Quantity) (decimal.Decimal, error) {
	if err := checkBase(original); err != nil {
		return decimal.Zero, err
	}

	switch kind {
	case KindPercentage:
		return hundred, nil
	case KindFixedAmount:
		return original.Amount(), nil
	case KindPerUnit:
		if !quantity.IsPositive() {
			return decimal.Zero, apperror.NewValidation("quantity must be positive").
				WithField("quantity")
		}
		scale := original.Scale()
		perUnit := original.Amount().Div(quantity.Decimal()).Shift(scale).Floor().Shift(-scale)
		// Div is precise to 16 digits; step back one minor unit if that pushed us over.
		if types.NewMoney(perUnit.Mul(quantity.Decimal()), original.Currency()).Cmp(original) > 0 {
			perUnit = perUnit.Sub(decimal.New(1, -scale))
		}
		return perUnit, nil
	default:
		return decimal.Zero, apperror.NewValidation("unknown discount type").
			WithField("discount.type").
			WithDetail(apperror.DetailValue, string(kind))
	}
}

func checkBase(original types.Money) error {
	if original.Currency() == "" {
		return apperror.NewValidation("amount has no currency").WithField("amount")
	}
	if original.IsNegative() {
		return apperror.NewValidation("amount to discount must not be negative").
			WithField("amount").
			WithDetail(apperror.DetailValue, original.StringFixed())
	}
	return nil
}

func rawAmount(original types.Money, d Discount, quantity types.Quantity) (types.Money, error) {
	switch d := d.(type) {
	case Percentage:
		return original.MulRate(d.Percent.Shift(-2)), nil
	case FixedAmount:
		return types.NewMoney(d.Amount, original.Currency()), nil
	case PerUnit:
		if quantity.IsNegative() {
			return types.Money{}, apperror.NewValidation("quantity must not be negative").
				WithField("quantity")
		}
		return types.NewMoney(d.Amount.Mul(quantity.Decimal()), original.Currency()), nil
	default:
		panic(fmt.Sprintf("discount: unhandled variant %T", d))
	}
}
