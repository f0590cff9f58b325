package quote

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/id"
	"quoteengine/internal/core/types"
	"quoteengine/internal/domain/currency"
	"quoteengine/internal/domain/pricing/discount"
	"quoteengine/internal/domain/pricing/tax"
	"quoteengine/internal/domain/ratecard"
	"quoteengine/internal/domain/ratecard/ratecardtest"
)

var date = ratecardtest.Date

type env struct {
	calc *Calculator
	qc   Context
}

func newEnv(t *testing.T) env {
	t.Helper()
	repo := ratecardtest.NewRepository()
	org := id.New()
	card := repo.AddCard(org, "NZD", date("2024-01-01"), nil)
	repo.AddItem(card.ID, "DEV-STD", "150.00", date("2024-01-01"), nil)
	repo.AddItem(card.ID, "A", "100.00", date("2024-01-01"), nil)
	repo.AddItem(card.ID, "B", "200.00", date("2024-01-01"), nil)

	return env{
		calc: NewCalculator(ratecard.NewResolver(repo), currency.DefaultRegistry()),
		qc: Context{
			OrganizationID: org,
			EffectiveDate:  date("2024-05-01"),
			Currency:       "NZD",
			TaxMode:        tax.Exclusive,
		},
	}
}

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pct(p string) *discount.Spec {
	return &discount.Spec{Discount: discount.Percentage{Percent: rate(p)}, Active: true}
}

func fixed(a string) *discount.Spec {
	return &discount.Spec{Discount: discount.FixedAmount{Amount: rate(a)}, Active: true}
}

func TestCalculateLineItem_NoDiscount(t *testing.T) {
	e := newEnv(t)
	res, err := e.calc.CalculateLineItem(context.Background(), LineItem{
		LineNumber: 1, ItemCode: "DEV-STD", Quantity: types.NewQuantity(40), TaxRate: rate("0.15"),
	}, e.qc)
	require.NoError(t, err)

	assert.Equal(t, "150.00", res.UnitPrice.StringFixed())
	assert.Equal(t, ratecard.SourceRateCard, res.PriceSource)
	assert.Equal(t, "6000.00", res.LineSubtotal.StringFixed())
	assert.Equal(t, "900.00", res.LineTaxAmount.StringFixed())
	assert.Equal(t, "6900.00", res.LineTotal.StringFixed())
	assert.True(t, res.LineDiscountAmount.IsZero())
}

func TestCalculateLineItem_PercentageDiscount(t *testing.T) {
	e := newEnv(t)
	res, err := e.calc.CalculateLineItem(context.Background(), LineItem{
		LineNumber: 1, ItemCode: "DEV-STD", Quantity: types.NewQuantity(40), TaxRate: rate("0.15"),
		Discount: pct("10"),
	}, e.qc)
	require.NoError(t, err)

	assert.Equal(t, "600.00", res.LineDiscountAmount.StringFixed())
	assert.Equal(t, "5400.00", res.LineSubtotal.StringFixed())
	assert.Equal(t, "810.00", res.LineTaxAmount.StringFixed())
	assert.Equal(t, "6210.00", res.LineTotal.StringFixed())
}

func TestCalculateLineItem_FixedDiscountClamps(t *testing.T) {
	e := newEnv(t)
	res, err := e.calc.CalculateLineItem(context.Background(), LineItem{
		LineNumber: 1, ItemCode: "DEV-STD", Quantity: types.NewQuantity(40), TaxRate: rate("0.15"),
		Discount: fixed("7000.00"),
	}, e.qc)
	require.NoError(t, err)

	assert.Equal(t, "6000.00", res.RawAmount.StringFixed())
	assert.Equal(t, "6000.00", res.LineDiscountAmount.StringFixed())
	assert.Equal(t, "0.00", res.LineSubtotal.StringFixed())
	assert.Equal(t, "0.00", res.LineTotal.StringFixed())
}

func TestCalculateLineItem_InactiveDiscountIgnored(t *testing.T) {
	e := newEnv(t)
	d := pct("50")
	d.Active = false
	res, err := e.calc.CalculateLineItem(context.Background(), LineItem{
		LineNumber: 1, ItemCode: "A", Quantity: types.NewQuantity(1), TaxRate: rate("0"), Discount: d,
	}, e.qc)
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.LineTotal.StringFixed())
}

func TestCalculateLineItem_Inclusive(t *testing.T) {
	e := newEnv(t)
	e.qc.TaxMode = tax.Inclusive
	res, err := e.calc.CalculateLineItem(context.Background(), LineItem{
		LineNumber: 1, ItemCode: "A", Quantity: types.NewQuantity(1), TaxRate: rate("0.15"),
	}, e.qc)
	require.NoError(t, err)

	assert.Equal(t, "13.04", res.LineTaxAmount.StringFixed())
	assert.Equal(t, "86.96", res.LineSubtotal.StringFixed())
	assert.Equal(t, "100.00", res.LineTotal.StringFixed())
}

func TestCalculateLineItem_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		item  LineItem
		field string
		check func(error) bool
	}{
		{"zero quantity", LineItem{LineNumber: 3, ItemCode: "A", TaxRate: rate("0.15")}, "quantity", apperror.IsValidation},
		{"tax rate above one", LineItem{LineNumber: 3, ItemCode: "A", Quantity: types.NewQuantity(1), TaxRate: rate("1.5")}, "taxRate", apperror.IsValidation},
		{"discount out of range", LineItem{LineNumber: 3, ItemCode: "A", Quantity: types.NewQuantity(1), TaxRate: rate("0"),
			Discount: &discount.Spec{Discount: discount.Percentage{Percent: rate("120")}, Active: true}}, "discount.value", apperror.IsValidation},
		{"unknown item", LineItem{LineNumber: 3, ItemCode: "ZZZ", Quantity: types.NewQuantity(1), TaxRate: rate("0")}, "itemCode", apperror.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.calc.CalculateLineItem(ctx, tt.item, e.qc)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, 3, appErr.Details[apperror.DetailLine])
			assert.Equal(t, tt.field, appErr.Details[apperror.DetailField])
		})
	}
}

func TestCalculateLineItem_ExplicitPrice(t *testing.T) {
	e := newEnv(t)
	price := types.MustMoney("120.00", "NZD")
	item := LineItem{LineNumber: 1, ItemCode: "DEV-STD", Quantity: types.NewQuantity(2), UnitPrice: &price, TaxRate: rate("0")}

	res, err := e.calc.CalculateLineItem(context.Background(), item, e.qc)
	require.NoError(t, err)
	assert.Equal(t, ratecard.SourceRateCard, res.PriceSource)
	assert.Equal(t, "300.00", res.LineTotal.StringFixed())

	e.qc.HasOverridePermission = true
	res, err = e.calc.CalculateLineItem(context.Background(), item, e.qc)
	require.NoError(t, err)
	assert.Equal(t, ratecard.SourceExplicit, res.PriceSource)
	assert.Equal(t, "240.00", res.LineTotal.StringFixed())
}

func TestCalculateQuoteTotals_TwoLines(t *testing.T) {
	e := newEnv(t)
	totals, err := e.calc.CalculateQuoteTotals(context.Background(), []LineItem{
		{LineNumber: 1, ItemCode: "A", Quantity: types.NewQuantity(10), TaxRate: rate("0")},
		{LineNumber: 2, ItemCode: "B", Quantity: types.NewQuantity(5), TaxRate: rate("0")},
	}, nil, e.qc)
	require.NoError(t, err)

	assert.Equal(t, "2000.00", totals.Subtotal.StringFixed())
	assert.Equal(t, "0.00", totals.DiscountAmount.StringFixed())
	assert.Equal(t, "0.00", totals.TaxAmount.StringFixed())
	assert.Equal(t, "2000.00", totals.TotalAmount.StringFixed())
	assert.Len(t, totals.PerLine, 2)
}

func TestCalculateQuoteTotals_SumOfLineTotals(t *testing.T) {
	lines := []LineItem{
		{LineNumber: 1, ItemCode: "DEV-STD", Quantity: types.MustQuantity("12.5"), TaxRate: rate("0.15"), Discount: pct("7.5")},
		{LineNumber: 2, ItemCode: "A", Quantity: types.MustQuantity("3.333"), TaxRate: rate("0.125"), Discount: fixed("19.99")},
		{LineNumber: 3, ItemCode: "B", Quantity: types.NewQuantity(1), TaxRate: rate("0"),
			Discount: &discount.Spec{Discount: discount.PerUnit{Amount: rate("0.5")}, Active: true}},
	}

	for _, mode := range []tax.Mode{tax.Exclusive, tax.Inclusive} {
		t.Run(string(mode), func(t *testing.T) {
			e := newEnv(t)
			e.qc.TaxMode = mode
			totals, err := e.calc.CalculateQuoteTotals(context.Background(), lines, nil, e.qc)
			require.NoError(t, err)

			sum := types.ZeroMoney("NZD")
			for _, l := range totals.PerLine {
				sum, err = sum.Add(l.LineTotal)
				require.NoError(t, err)
			}
			assert.True(t, sum.Equal(totals.TotalAmount), "sum %s total %s", sum, totals.TotalAmount)
		})
	}
}

func TestCalculateQuoteTotals_QuoteLevelDiscount(t *testing.T) {
	e := newEnv(t)
	totals, err := e.calc.CalculateQuoteTotals(context.Background(), []LineItem{
		{LineNumber: 1, ItemCode: "A", Quantity: types.NewQuantity(10), TaxRate: rate("0.15"), Discount: fixed("100")},
		{LineNumber: 2, ItemCode: "B", Quantity: types.NewQuantity(5), TaxRate: rate("0.15")},
	}, pct("10"), e.qc)
	require.NoError(t, err)

	// base for the quote discount is 2000 - 100
	assert.Equal(t, "2000.00", totals.Subtotal.StringFixed())
	assert.Equal(t, "100.00", totals.LineDiscountAmount.StringFixed())
	assert.Equal(t, "190.00", totals.QuoteDiscountAmount.StringFixed())
	assert.Equal(t, "290.00", totals.DiscountAmount.StringFixed())
	assert.Equal(t, "285.00", totals.TaxAmount.StringFixed())
	assert.Equal(t, "1995.00", totals.TotalAmount.StringFixed())
}

func TestCalculateQuoteTotals_QuoteDiscountClamps(t *testing.T) {
	e := newEnv(t)
	totals, err := e.calc.CalculateQuoteTotals(context.Background(), []LineItem{
		{LineNumber: 1, ItemCode: "A", Quantity: types.NewQuantity(1), TaxRate: rate("0")},
	}, fixed("5000"), e.qc)
	require.NoError(t, err)
	assert.Equal(t, "100.00", totals.DiscountAmount.StringFixed())
	assert.Equal(t, "0.00", totals.TotalAmount.StringFixed())
}

func TestCalculateQuoteTotals_Deterministic(t *testing.T) {
	e := newEnv(t)
	lines := []LineItem{
		{LineNumber: 1, ItemCode: "DEV-STD", Quantity: types.MustQuantity("7.25"), TaxRate: rate("0.15"), Discount: pct("12.5")},
		{LineNumber: 2, ItemCode: "B", Quantity: types.MustQuantity("0.3333"), TaxRate: rate("0.0825")},
	}

	first, err := e.calc.CalculateQuoteTotals(context.Background(), lines, pct("3"), e.qc)
	require.NoError(t, err)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := e.calc.CalculateQuoteTotals(context.Background(), lines, pct("3"), e.qc)
		require.NoError(t, err)
		got, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestCalculateQuoteTotals_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	lines := []LineItem{{LineNumber: 1, ItemCode: "A", Quantity: types.NewQuantity(1), TaxRate: rate("0")}}

	// card is NZD
	qc := e.qc
	qc.Currency = "USD"
	_, err := e.calc.CalculateQuoteTotals(ctx, lines, nil, qc)
	assert.True(t, apperror.IsValidation(err))

	qc.Currency = "XTS"
	_, err = e.calc.CalculateQuoteTotals(ctx, lines, nil, qc)
	assert.True(t, apperror.IsValidation(err))

	_, err = e.calc.CalculateQuoteTotals(ctx, append(lines, lines[0]), nil, e.qc)
	assert.True(t, apperror.IsValidation(err))

	_, err = e.calc.CalculateQuoteTotals(ctx, lines, &discount.Spec{Discount: discount.FixedAmount{Amount: rate("-1")}, Active: true}, e.qc)
	require.True(t, apperror.IsValidation(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "quoteLevelDiscount", appErr.Details[apperror.DetailField])
}

func TestAggregate_NegativeTotalIsConsistencyError(t *testing.T) {
	// lines that could never come out of calculateLine
	_, err := Aggregate([]LineResult{{
		LineNumber:         1,
		Quantity:           types.NewQuantity(1),
		RawAmount:          types.MustMoney("10", "NZD"),
		LineDiscountAmount: types.MustMoney("20", "NZD"),
		LineTaxAmount:      types.MustMoney("0", "NZD"),
	}}, nil, Context{Currency: "NZD", TaxMode: tax.Exclusive})
	assert.True(t, apperror.IsConsistency(err))
}

func TestRecalculate(t *testing.T) {
	e := newEnv(t)
	q := &Quote{
		ID:             id.New(),
		OrganizationID: e.qc.OrganizationID,
		Currency:       "NZD",
		Status:         StatusSent,
		EffectiveDate:  e.qc.EffectiveDate,
		LineItems: []LineItem{
			{LineNumber: 1, ItemCode: "DEV-STD", Quantity: types.NewQuantity(40), TaxRate: rate("0.15"), Discount: pct("10")},
		},
	}

	require.NoError(t, e.calc.Recalculate(context.Background(), q, false))
	require.NotNil(t, q.Totals())
	require.NotNil(t, q.LineItems[0].Computed())
	assert.Equal(t, "6210.00", q.LineItems[0].Computed().LineTotal.StringFixed())
	assert.Equal(t, "6210.00", q.Totals().TotalAmount.StringFixed())
	first, _ := json.Marshal(q.Totals())

	require.NoError(t, e.calc.Recalculate(context.Background(), q, false))
	second, _ := json.Marshal(q.Totals())
	assert.Equal(t, string(first), string(second))

	// a failing recalculation leaves the previous figures alone
	q.LineItems = append(q.LineItems, LineItem{LineNumber: 2, ItemCode: "NOPE", Quantity: types.NewQuantity(1)})
	err := e.calc.Recalculate(context.Background(), q, false)
	require.True(t, apperror.IsNotFound(err))
	assert.Equal(t, "6210.00", q.Totals().TotalAmount.StringFixed())
	assert.Nil(t, q.LineItems[1].Computed())
}

func TestResolvePricing(t *testing.T) {
	e := newEnv(t)
	out, err := e.calc.ResolvePricing(context.Background(), []ratecard.PricingLine{
		{LineNumber: 1, ItemCode: "A", Quantity: types.NewQuantity(1)},
	}, e.qc)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "100.00", out[0].UnitPrice.StringFixed())
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusDraft.CanTransitionTo(StatusPending))
	assert.True(t, StatusPending.CanTransitionTo(StatusRejected))
	assert.True(t, StatusSent.CanTransitionTo(StatusExpired))
	assert.True(t, StatusApproved.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusDraft.CanTransitionTo(StatusAccepted))
	assert.False(t, StatusApproved.CanTransitionTo(StatusRejected))
	assert.False(t, StatusAccepted.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusSent.IsTerminal())
}
