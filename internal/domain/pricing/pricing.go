// Package pricing derives per-customer product prices and VAT amounts.
//
// Prices are flat: every customer category pays the same base price. A
// customer-level discount percentage, when assigned during approval, is
// subtracted from the base price. All arithmetic uses fixed-point decimals
// rounded to whole cents so that totals stay exact.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/product"
)

// VATRate is the reduced Dutch VAT rate that applies to foodstuffs.
var VATRate = decimal.RequireFromString("0.09")

var hundred = decimal.NewFromInt(100)

// PriceFor returns the unit price of p for c, rounded to two decimal places.
// A customer without a discount pays the base price.
func PriceFor(p product.Product, c customer.Customer) decimal.Decimal {
	price := p.Price
	if c.Discount > 0 {
		factor := decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(c.Discount)).Div(hundred))
		price = price.Mul(factor)
	}
	return price.Round(2)
}

// PriceStringFor returns PriceFor formatted with exactly two decimal places,
// the canonical serialization for prices.
func PriceStringFor(p product.Product, c customer.Customer) string {
	return PriceFor(p, c).StringFixed(2)
}

// VATAmount returns the VAT due over an ex-VAT amount, rounded to cents.
func VATAmount(exVAT decimal.Decimal) decimal.Decimal {
	return exVAT.Mul(VATRate).Round(2)
}

// WithVAT returns the amount including VAT, rounded to cents.
func WithVAT(exVAT decimal.Decimal) decimal.Decimal {
	return exVAT.Add(VATAmount(exVAT)).Round(2)
}
