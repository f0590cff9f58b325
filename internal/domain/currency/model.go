// Package currency holds the currency catalog and the CurrencyValidator used
// by pricing to reject unknown codes.
package currency

import (
	"github.com/shopspring/decimal"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/types"
)

// Currency is one row of the currency catalog.
type Currency struct {
	// ISOCode is the ISO 4217 alphabetic code (e.g., "NZD", "USD", "JPY")
	ISOCode string `db:"iso_code" json:"isoCode"`

	// Symbol is the display symbol (e.g., "$", "€", "¥")
	Symbol string `db:"symbol" json:"symbol"`

	Name string `db:"name" json:"name"`

	// DecimalPlaces is the minor-unit exponent; must agree with the money rounding table.
	DecimalPlaces int `db:"decimal_places" json:"decimalPlaces"`
}

// Validate checks the row against ISO 4217 and the rounding table.
func (c *Currency) Validate() error {
	if !types.IsISOCode(c.ISOCode) {
		return apperror.NewValidation("ISO code must be 3 uppercase letters").
			WithField("isoCode").
			WithDetail(apperror.DetailValue, c.ISOCode)
	}
	if c.Symbol == "" {
		return apperror.NewValidation("symbol is required").WithField("symbol")
	}
	if want := int(types.CurrencyScale(c.ISOCode)); c.DecimalPlaces != want {
		return apperror.NewValidation("decimal places disagree with ISO 4217 minor unit").
			WithField("decimalPlaces").
			WithDetail(apperror.DetailValue, c.DecimalPlaces).
			WithDetail("expected", want)
	}
	return nil
}

// Format renders amount with the currency symbol, e.g. "$150.00".
func (c *Currency) Format(amount decimal.Decimal) string {
	return c.Symbol + types.RoundHalfUp(amount, int32(c.DecimalPlaces)).StringFixed(int32(c.DecimalPlaces))
}
