package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/types"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name string
		base string
		rate string
		mode Mode
		want string
	}{
		{"exclusive gst", "6000.00", "0.15", Exclusive, "900.00"},
		{"exclusive after discount", "5400.00", "0.15", Exclusive, "810.00"},
		{"exclusive zero rate", "2000.00", "0", Exclusive, "0.00"},
		{"exclusive rounds half up", "0.10", "0.05", Exclusive, "0.01"},
		{"inclusive gst", "6900.00", "0.15", Inclusive, "900.00"},
		{"inclusive repeating quotient", "100.00", "0.15", Inclusive, "13.04"},
		{"inclusive full rate", "10.00", "1", Inclusive, "5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(types.MustMoney(tt.base, "NZD"), decimal.RequireFromString(tt.rate), tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed())
			assert.Equal(t, "NZD", got.Currency())
		})
	}
}

func TestCalculate_RateOutOfRange(t *testing.T) {
	for _, rate := range []string{"-0.01", "1.0001", "15"} {
		_, err := Calculate(types.MustMoney("10", "NZD"), decimal.RequireFromString(rate), Exclusive)
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err), rate)
	}
}

func TestSplit(t *testing.T) {
	b, err := Split(types.MustMoney("100.00", "NZD"), decimal.RequireFromString("0.15"), Inclusive)
	require.NoError(t, err)
	assert.Equal(t, "86.96", b.Net.StringFixed())
	assert.Equal(t, "13.04", b.Tax.StringFixed())
	assert.Equal(t, "100.00", b.Gross.StringFixed())

	b, err = Split(types.MustMoney("100.00", "NZD"), decimal.RequireFromString("0.15"), Exclusive)
	require.NoError(t, err)
	assert.Equal(t, "100.00", b.Net.StringFixed())
	assert.Equal(t, "115.00", b.Gross.StringFixed())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Exclusive, m)

	m, err = ParseMode("Inclusive")
	require.NoError(t, err)
	assert.Equal(t, Inclusive, m)

	_, err = ParseMode("gross")
	assert.True(t, apperror.IsValidation(err))
}

func TestCalculate_Deterministic(t *testing.T) {
	base := types.MustMoney("1234.57", "NZD")
	rate := decimal.RequireFromString("0.125")
	first, err := Calculate(base, rate, Inclusive)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Calculate(base, rate, Inclusive)
		require.NoError(t, err)
		assert.Equal(t, first.String(), again.String())
	}
}
