package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteengine/internal/core/apperror"
)

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in    string
		scale int32
		want  string
	}{
		{"1.005", 2, "1.01"},
		{"1.004", 2, "1"},
		{"2.5", 0, "3"},
		{"-2.5", 0, "-3"},
		{"-1.005", 2, "-1.01"},
		{"-1.004", 2, "-1"},
		{"0.0005", 3, "0.001"},
		{"6000", 2, "6000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundHalfUp(decimal.RequireFromString(tt.in), tt.scale)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestNewMoney_RoundsToCurrencyScale(t *testing.T) {
	assert.Equal(t, "10.13", NewMoney(decimal.RequireFromString("10.125"), "NZD").StringFixed())
	assert.Equal(t, "1013", NewMoney(decimal.RequireFromString("1012.5"), "JPY").StringFixed())
	assert.Equal(t, "1.235", NewMoney(decimal.RequireFromString("1.2345"), "KWD").StringFixed())
	assert.Equal(t, "NZD", NewMoney(decimal.Zero, " nzd ").Currency())
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustMoney("150.00", "NZD")

	sum, err := a.Add(MustMoney("0.10", "NZD"))
	require.NoError(t, err)
	assert.Equal(t, "150.10", sum.StringFixed())

	diff, err := a.Sub(MustMoney("200", "NZD"))
	require.NoError(t, err)
	assert.True(t, diff.IsNegative())
	assert.True(t, diff.ClampZero().IsZero())

	assert.Equal(t, "6000.00", a.MulQuantity(NewQuantity(40)).StringFixed())
	assert.Equal(t, "900.00", MustMoney("6000", "NZD").MulRate(decimal.RequireFromString("0.15")).StringFixed())
	assert.Equal(t, "0.33", MustMoney("0.99", "USD").MulQuantity(MustQuantity("0.3333")).StringFixed())
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	_, err := MustMoney("1", "NZD").Add(MustMoney("1", "AUD"))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = MustMoney("1", "NZD").Sub(MustMoney("1", "AUD"))
	assert.True(t, apperror.IsValidation(err))
}

func TestMoney_MinorUnits(t *testing.T) {
	m := MustMoney("123.45", "NZD")
	assert.Equal(t, int64(12345), m.MinorUnits())
	assert.True(t, FromMinorUnits(12345, "NZD").Equal(m))
	assert.Equal(t, int64(500), MustMoney("500", "JPY").MinorUnits())
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(MustMoney("150", "NZD"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"150.00","currency":"NZD"}`, string(data))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":12.345,"currency":"usd"}`), &m))
	assert.Equal(t, "12.35 USD", m.String())

	require.Error(t, json.Unmarshal([]byte(`{"amount":"1","currency":"dollars"}`), &m))
}

func TestMoneyFromString_Invalid(t *testing.T) {
	_, err := MoneyFromString("abc", "NZD")
	assert.True(t, apperror.IsValidation(err))
}

func TestQuantity_Parse(t *testing.T) {
	q, err := ParseQuantity("2.5")
	require.NoError(t, err)
	assert.Equal(t, int64(25_000), q.Int64Scaled())
	assert.Equal(t, "2.5000", q.String())

	_, err = ParseQuantity("1e3")
	assert.Error(t, err)

	_, err = ParseQuantity("0.00001")
	assert.Error(t, err)

	q, err = ParseQuantity("3.10000")
	require.NoError(t, err)
	assert.Equal(t, "3.1000", q.String())

	q, err = ParseQuantity("-5")
	require.NoError(t, err)
	assert.True(t, q.IsNegative())

	q, err = ParseQuantity("922337203685477.5807")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), q.Int64Scaled())

	for _, in := range []string{
		"--5", "+-5", "-+5", "1.-5", "1.+5", "1-5", "-", ".", "1..5", " 1 2",
		"922337203685478", "-922337203685478", "922337203685477.5808",
	} {
		_, err := ParseQuantity(in)
		assert.Error(t, err, in)
	}

	var neg Quantity
	assert.Error(t, json.Unmarshal([]byte(`"--5"`), &neg))
	assert.False(t, neg.IsPositive())

	var fromJSON Quantity
	require.NoError(t, json.Unmarshal([]byte(`"40"`), &fromJSON))
	assert.Equal(t, NewQuantity(40), fromJSON)
	require.NoError(t, json.Unmarshal([]byte(`0.25`), &fromJSON))
	assert.True(t, fromJSON.Decimal().Equal(decimal.RequireFromString("0.25")))
}
