package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/product"
)

func testProduct(price string) product.Product {
	return product.Product{
		ID:            1,
		ArticleNumber: "A-100",
		Title:         "Grillworst",
		Price:         decimal.RequireFromString(price),
		InStock:       true,
		IsActive:      true,
	}
}

func TestPriceFor_NoDiscount(t *testing.T) {
	p := testProduct("12.50")
	c := customer.Customer{ID: 1}

	assert.Equal(t, "12.50", PriceStringFor(p, c))
}

func TestPriceFor_Discounts(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		discount int
		want     string
	}{
		{"one percent", "10.00", 1, "9.90"},
		{"two percent", "10.00", 2, "9.80"},
		{"three percent rounds to cent", "9.99", 3, "9.69"},
		{"four percent", "25.00", 4, "24.00"},
		{"five percent", "7.35", 5, "6.98"},
		{"zero means no discount", "7.35", 0, "7.35"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProduct(tt.price)
			c := customer.Customer{Discount: tt.discount}

			assert.Equal(t, tt.want, PriceStringFor(p, c))
		})
	}
}

func TestPriceFor_ExactToTheCent(t *testing.T) {
	// 19.99 * 0.97 = 19.3903, must round to 19.39 without binary float drift.
	p := testProduct("19.99")
	c := customer.Customer{Discount: 3}

	got := PriceFor(p, c)
	assert.True(t, decimal.RequireFromString("19.39").Equal(got), "got %s", got)
}

func TestVAT(t *testing.T) {
	sub := decimal.RequireFromString("100.00")

	assert.Equal(t, "9.00", VATAmount(sub).StringFixed(2))
	assert.Equal(t, "109.00", WithVAT(sub).StringFixed(2))

	odd := decimal.RequireFromString("33.33")
	assert.Equal(t, "3.00", VATAmount(odd).StringFixed(2))
	assert.Equal(t, "36.33", WithVAT(odd).StringFixed(2))
}
