package quote

import (
	"context"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/types"
	"quoteengine/internal/domain/pricing/discount"
	"quoteengine/internal/domain/pricing/tax"
	"quoteengine/internal/domain/ratecard"
)

// PriceResolver is the rate card side of the calculator.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, req ratecard.PriceRequest) (ratecard.ResolvedPrice, error)
	ResolvePricing(ctx context.Context, req ratecard.PricingRequest) ([]ratecard.LinePrice, error)
}

// CurrencyValidator rejects unknown currency codes.
type CurrencyValidator interface {
	IsValidCurrency(code string) bool
}

// Calculator derives line and quote totals. Apart from price resolution it
// is a pure function of its inputs: the same inputs always produce the same
// figures, down to the byte of their JSON encoding.
type Calculator struct {
	prices     PriceResolver
	currencies CurrencyValidator
}

// NewCalculator creates a calculator. currencies may be nil to accept any ISO code.
func NewCalculator(prices PriceResolver, currencies CurrencyValidator) *Calculator {
	return &Calculator{prices: prices, currencies: currencies}
}

// ResolvePricing resolves unit prices for a batch of lines.
func (c *Calculator) ResolvePricing(ctx context.Context, lines []ratecard.PricingLine, qc Context) ([]ratecard.LinePrice, error) {
	if err := c.checkContext(qc); err != nil {
		return nil, err
	}
	return c.prices.ResolvePricing(ctx, ratecard.PricingRequest{
		OrganizationID:        qc.OrganizationID,
		EffectiveDate:         qc.EffectiveDate,
		HasOverridePermission: qc.HasOverridePermission,
		Currency:              qc.Currency,
		RateCardID:            qc.RateCardID,
		Lines:                 lines,
	})
}

// CalculateLineItem resolves the unit price of item and computes its figures.
// Errors carry the line number and the offending field.
func (c *Calculator) CalculateLineItem(ctx context.Context, item LineItem, qc Context) (LineResult, error) {
	if err := c.checkContext(qc); err != nil {
		return LineResult{}, err
	}
	if err := checkLine(item); err != nil {
		return LineResult{}, apperror.AtLine(err, item.LineNumber)
	}

	price, err := c.prices.ResolvePrice(ctx, ratecard.PriceRequest{
		OrganizationID:        qc.OrganizationID,
		ItemCode:              item.ItemCode,
		EffectiveDate:         qc.EffectiveDate,
		ExplicitPrice:         item.UnitPrice,
		HasOverridePermission: qc.HasOverridePermission,
		RateCardID:            qc.RateCardID,
		Currency:              qc.Currency,
	})
	if err != nil {
		return LineResult{}, apperror.AtLine(err, item.LineNumber)
	}

	return CalculateResolvedLine(item, price, qc)
}

// CalculateResolvedLine computes line figures for a price resolved upstream.
//
//	raw           = unitPrice * quantity
//	afterDiscount = raw - lineDiscount
//	exclusive: subtotal = afterDiscount, tax = afterDiscount * rate, total = subtotal + tax
//	inclusive: tax extracted from afterDiscount, subtotal = afterDiscount - tax, total = afterDiscount
func CalculateResolvedLine(item LineItem, price ratecard.ResolvedPrice, qc Context) (LineResult, error) {
	res, err := calculateLine(item, price, qc)
	if err != nil {
		return LineResult{}, apperror.AtLine(err, item.LineNumber)
	}
	return res, nil
}

func calculateLine(item LineItem, price ratecard.ResolvedPrice, qc Context) (LineResult, error) {
	if err := checkLine(item); err != nil {
		return LineResult{}, err
	}
	if price.UnitPrice.Currency() != qc.Currency {
		return LineResult{}, apperror.NewCurrencyMismatch(qc.Currency, price.UnitPrice.Currency()).
			WithField("unitPrice")
	}

	raw := price.UnitPrice.MulQuantity(item.Quantity)

	lineDiscount := types.ZeroMoney(qc.Currency)
	afterDiscount := raw
	if item.Discount.Applies() {
		d, err := discount.Calculate(raw, item.Discount.Discount, item.Quantity)
		if err != nil {
			return LineResult{}, err
		}
		lineDiscount, afterDiscount = d.DiscountAmount, d.FinalAmount
	}

	split, err := tax.Split(afterDiscount, item.TaxRate, qc.TaxMode)
	if err != nil {
		return LineResult{}, err
	}

	return LineResult{
		LineNumber:         item.LineNumber,
		UnitPrice:          price.UnitPrice,
		PriceSource:        price.Source,
		Quantity:           item.Quantity,
		RawAmount:          raw,
		LineDiscountAmount: lineDiscount,
		LineSubtotal:       split.Net,
		LineTaxAmount:      split.Tax,
		LineTotal:          split.Gross,
	}, nil
}

// CalculateQuoteTotals computes every line and folds them into quote totals.
// Either the whole computation succeeds or a single error is returned.
func (c *Calculator) CalculateQuoteTotals(ctx context.Context, lines []LineItem, quoteDiscount *discount.Spec, qc Context) (Totals, error) {
	if err := c.checkContext(qc); err != nil {
		return Totals{}, err
	}

	seen := make(map[int]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line.LineNumber]; dup {
			return Totals{}, apperror.AtLine(
				apperror.NewValidation("duplicate line number").WithField("lineNumber"),
				line.LineNumber)
		}
		seen[line.LineNumber] = struct{}{}
	}

	perLine := make([]LineResult, 0, len(lines))
	for _, line := range lines {
		res, err := c.CalculateLineItem(ctx, line, qc)
		if err != nil {
			return Totals{}, err
		}
		perLine = append(perLine, res)
	}

	return Aggregate(perLine, quoteDiscount, qc)
}

// Aggregate folds computed lines into quote totals.
//
// The quote-level discount applies to subtotal minus line discounts. A
// per-unit quote discount counts the quantity of all lines.
func Aggregate(perLine []LineResult, quoteDiscount *discount.Spec, qc Context) (Totals, error) {
	cur := qc.Currency
	subtotal := types.ZeroMoney(cur)
	lineDiscounts := types.ZeroMoney(cur)
	taxAmount := types.ZeroMoney(cur)
	var quantity types.Quantity

	for _, l := range perLine {
		var err error
		if subtotal, err = subtotal.Add(l.RawAmount); err != nil {
			return Totals{}, apperror.AtLine(err, l.LineNumber)
		}
		if lineDiscounts, err = lineDiscounts.Add(l.LineDiscountAmount); err != nil {
			return Totals{}, apperror.AtLine(err, l.LineNumber)
		}
		if taxAmount, err = taxAmount.Add(l.LineTaxAmount); err != nil {
			return Totals{}, apperror.AtLine(err, l.LineNumber)
		}
		quantity += l.Quantity
	}

	quoteLevel := types.ZeroMoney(cur)
	if quoteDiscount.Applies() {
		base, err := subtotal.Sub(lineDiscounts)
		if err != nil {
			return Totals{}, err
		}
		d, err := discount.Calculate(base, quoteDiscount.Discount, quantity)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return Totals{}, appErr.WithField("quoteLevelDiscount")
			}
			return Totals{}, err
		}
		quoteLevel = d.DiscountAmount
	}

	discountAmount, err := lineDiscounts.Add(quoteLevel)
	if err != nil {
		return Totals{}, err
	}

	total, err := subtotal.Sub(discountAmount)
	if err != nil {
		return Totals{}, err
	}
	if qc.TaxMode != tax.Inclusive {
		if total, err = total.Add(taxAmount); err != nil {
			return Totals{}, err
		}
	}
	if total.IsNegative() {
		return Totals{}, apperror.NewConsistency("computed quote total is negative").
			WithField("totalAmount").
			WithDetail(apperror.DetailValue, total.StringFixed())
	}

	return Totals{
		Currency:            cur,
		TaxMode:             qc.TaxMode,
		Subtotal:            subtotal,
		LineDiscountAmount:  lineDiscounts,
		QuoteDiscountAmount: quoteLevel,
		DiscountAmount:      discountAmount,
		TaxAmount:           taxAmount,
		TotalAmount:         total,
		PerLine:             perLine,
	}, nil
}

// Recalculate derives every computed field of q. It has no effect on q when
// it fails, and running it twice on an unchanged quote yields identical figures.
func (c *Calculator) Recalculate(ctx context.Context, q *Quote, hasOverridePermission bool) error {
	totals, err := c.CalculateQuoteTotals(ctx, q.LineItems, q.QuoteDiscount, ContextFor(q, hasOverridePermission))
	if err != nil {
		return err
	}

	for i := range q.LineItems {
		res := totals.PerLine[i]
		q.LineItems[i].computed = &res
	}
	q.totals = &totals
	return nil
}

func (c *Calculator) checkContext(qc Context) error {
	if !types.IsISOCode(qc.Currency) {
		return apperror.NewValidation("currency must be an ISO 4217 code").
			WithField("currency").
			WithDetail(apperror.DetailValue, qc.Currency)
	}
	if c.currencies != nil && !c.currencies.IsValidCurrency(qc.Currency) {
		return apperror.NewValidation("unknown currency").
			WithField("currency").
			WithDetail(apperror.DetailValue, qc.Currency)
	}
	switch qc.TaxMode {
	case tax.Exclusive, tax.Inclusive:
	default:
		return apperror.NewValidation("unknown tax mode").
			WithField("taxMode").
			WithDetail(apperror.DetailValue, string(qc.TaxMode))
	}
	if qc.EffectiveDate.IsZero() {
		return apperror.NewValidation("effectiveDate is required").WithField("effectiveDate")
	}
	return nil
}

func checkLine(item LineItem) error {
	if !item.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be greater than zero").
			WithField("quantity").
			WithDetail(apperror.DetailValue, item.Quantity.String())
	}
	return tax.ValidateRate(item.TaxRate)
}
