package discount

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculate(t *testing.T) {
	base := types.MustMoney("6000.00", "NZD")

	tests := []struct {
		name         string
		discount     Discount
		qty          types.Quantity
		wantDiscount string
		wantFinal    string
		wantClamped  bool
	}{
		{"percentage", Percentage{Percent: dec("10")}, types.NewQuantity(40), "600.00", "5400.00", false},
		{"percentage rounds half up", Percentage{Percent: dec("0.00125")}, types.NewQuantity(1), "0.08", "5999.92", false},
		{"full percentage", Percentage{Percent: dec("100")}, types.NewQuantity(1), "6000.00", "0.00", false},
		{"fixed", FixedAmount{Amount: dec("250.50")}, types.NewQuantity(1), "250.50", "5749.50", false},
		{"fixed clamps", FixedAmount{Amount: dec("7000")}, types.NewQuantity(1), "6000.00", "0.00", true},
		{"per unit", PerUnit{Amount: dec("5")}, types.NewQuantity(40), "200.00", "5800.00", false},
		{"per unit clamps", PerUnit{Amount: dec("200")}, types.NewQuantity(40), "6000.00", "0.00", true},
		{"zero", FixedAmount{Amount: decimal.Zero}, types.NewQuantity(1), "0.00", "6000.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calculate(base, tt.discount, tt.qty)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDiscount, res.DiscountAmount.StringFixed())
			assert.Equal(t, tt.wantFinal, res.FinalAmount.StringFixed())
			assert.Equal(t, tt.wantClamped, res.Clamped)

			// original - discount == final, exactly
			back, err := res.Original.Sub(res.DiscountAmount)
			require.NoError(t, err)
			assert.True(t, back.Equal(res.FinalAmount))
			assert.False(t, res.FinalAmount.IsNegative())
		})
	}
}

func TestCalculate_Validation(t *testing.T) {
	base := types.MustMoney("100", "USD")

	for _, d := range []Discount{
		Percentage{Percent: dec("100.01")},
		Percentage{Percent: dec("-1")},
		FixedAmount{Amount: dec("-0.01")},
		PerUnit{Amount: dec("-3")},
		nil,
	} {
		_, err := Calculate(base, d, types.NewQuantity(1))
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err), "%v", d)
	}

	_, err := Calculate(types.MustMoney("-1", "USD"), FixedAmount{Amount: dec("1")}, types.NewQuantity(1))
	assert.True(t, apperror.IsValidation(err))
}

func TestApplyMultiple_Compounds(t *testing.T) {
	base := types.MustMoney("1000.00", "NZD")

	res, err := ApplyMultiple(base, []Discount{
		Percentage{Percent: dec("10")},
		Percentage{Percent: dec("10")},
		FixedAmount{Amount: dec("10")},
	}, types.NewQuantity(1))
	require.NoError(t, err)

	require.Len(t, res.Steps, 3)
	assert.Equal(t, "100.00", res.Steps[0].DiscountAmount.StringFixed())
	// second 10% sees 900, not 1000
	assert.Equal(t, "90.00", res.Steps[1].DiscountAmount.StringFixed())
	assert.Equal(t, "10.00", res.Steps[2].DiscountAmount.StringFixed())
	assert.Equal(t, "800.00", res.FinalAmount.StringFixed())
	assert.Equal(t, "200.00", res.DiscountAmount.StringFixed())
}

func TestApplyMultiple_ClampsAtZero(t *testing.T) {
	res, err := ApplyMultiple(types.MustMoney("50", "NZD"), []Discount{
		FixedAmount{Amount: dec("40")},
		FixedAmount{Amount: dec("40")},
		Percentage{Percent: dec("50")},
	}, types.NewQuantity(1))
	require.NoError(t, err)
	assert.True(t, res.FinalAmount.IsZero())
	assert.Equal(t, "50.00", res.DiscountAmount.StringFixed())
	assert.True(t, res.Steps[1].Clamped)
}

func TestApplyMultiple_ReportsFailingIndex(t *testing.T) {
	_, err := ApplyMultiple(types.MustMoney("50", "NZD"), []Discount{
		FixedAmount{Amount: dec("1")},
		Percentage{Percent: dec("120")},
	}, types.NewQuantity(1))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 1, appErr.Details["discountIndex"])
}

func TestWouldResultInNegative(t *testing.T) {
	base := types.MustMoney("100", "USD")

	neg, err := WouldResultInNegative(base, FixedAmount{Amount: dec("100.01")}, types.NewQuantity(1))
	require.NoError(t, err)
	assert.True(t, neg)

	neg, err = WouldResultInNegative(base, PerUnit{Amount: dec("25")}, types.NewQuantity(4))
	require.NoError(t, err)
	assert.False(t, neg)
}

func TestMaximumSafeValue(t *testing.T) {
	base := types.MustMoney("100.00", "USD")

	v, err := MaximumSafeValue(base, KindPercentage, types.NewQuantity(3))
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("100")))

	v, err = MaximumSafeValue(base, KindFixedAmount, types.NewQuantity(3))
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("100")))

	v, err = MaximumSafeValue(base, KindPerUnit, types.NewQuantity(3))
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("33.33")), "got %s", v)

	neg, err := WouldResultInNegative(base, PerUnit{Amount: v}, types.NewQuantity(3))
	require.NoError(t, err)
	assert.False(t, neg)

	_, err = MaximumSafeValue(base, KindPerUnit, 0)
	assert.True(t, apperror.IsValidation(err))
}

func TestParse(t *testing.T) {
	d, err := Parse("Percentage", " 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, KindPercentage, d.Kind())
	assert.True(t, d.Value().Equal(dec("12.5")))

	_, err = Parse("bogus", "1")
	assert.True(t, apperror.IsValidation(err))

	_, err = Parse("fixed_amount", "ten")
	assert.True(t, apperror.IsValidation(err))
}

func TestSpec_Applies(t *testing.T) {
	var nilSpec *Spec
	assert.False(t, nilSpec.Applies())
	assert.False(t, (&Spec{Discount: FixedAmount{Amount: dec("1")}}).Applies())
	assert.True(t, (&Spec{Discount: FixedAmount{Amount: dec("1")}, Active: true}).Applies())
}

func TestSpec_JSON(t *testing.T) {
	var s Spec
	require.NoError(t, json.Unmarshal([]byte(`{"type":"per_unit","value":"2.50"}`), &s))
	assert.True(t, s.Active)
	assert.Equal(t, KindPerUnit, s.Discount.Kind())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"percentage","value":10,"isActive":false}`), &s))
	assert.False(t, s.Applies())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"percentage","value":"10","isActive":false}`, string(out))

	err = json.Unmarshal([]byte(`{"type":"percentage","value":"101"}`), &s)
	assert.True(t, apperror.IsValidation(err))
}
