package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteengine/internal/core/apperror"
)

type stubRepo struct {
	rows []Currency
	err  error
}

func (s stubRepo) List(context.Context) ([]Currency, error) { return s.rows, s.err }

func TestRegistry_Defaults(t *testing.T) {
	r := DefaultRegistry()

	assert.True(t, r.IsValidCurrency("NZD"))
	assert.True(t, r.IsValidCurrency(" nzd "))
	assert.False(t, r.IsValidCurrency("XXX"))

	sym, ok := r.GetCurrencySymbol("JPY")
	require.True(t, ok)
	assert.Equal(t, "¥", sym)

	_, ok = r.GetCurrencySymbol("ZZZ")
	assert.False(t, ok)
}

func TestRegistry_Reload(t *testing.T) {
	r := DefaultRegistry()

	err := r.Reload(context.Background(), stubRepo{rows: []Currency{
		{ISOCode: "CHF", Symbol: "Fr", DecimalPlaces: 2},
		{ISOCode: "JPY", Symbol: "¥", DecimalPlaces: 2}, // wrong minor unit, skipped
	}})
	require.NoError(t, err)

	assert.True(t, r.IsValidCurrency("CHF"))
	assert.False(t, r.IsValidCurrency("JPY"))
	assert.False(t, r.IsValidCurrency("NZD"))
}

func TestRegistry_ReloadErrorKeepsContent(t *testing.T) {
	r := DefaultRegistry()
	err := r.Reload(context.Background(), stubRepo{err: errors.New("boom")})
	require.Error(t, err)
	assert.True(t, r.IsValidCurrency("NZD"))
}

func TestCurrency_Validate(t *testing.T) {
	c := Currency{ISOCode: "nzd", Symbol: "$", DecimalPlaces: 2}
	assert.True(t, apperror.IsValidation(c.Validate()))

	c = Currency{ISOCode: "KWD", Symbol: "KD", DecimalPlaces: 3}
	assert.NoError(t, c.Validate())
	assert.Equal(t, "KD1.235", c.Format(decimal.RequireFromString("1.2345")))
}
