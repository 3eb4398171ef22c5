package reports

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stockapp/stockapp/internal/catalog"
)

func (p Parameters) normalize() Parameters {
	p.ReportType = strings.TrimSpace(p.ReportType)
	p.GroupBy = strings.TrimSpace(p.GroupBy)
	return p
}

func (p Parameters) matches(product catalog.ProductSnapshot) bool {
	if p.CategoryID != nil && product.CategoryID != *p.CategoryID {
		return false
	}
	if p.ProductID != nil && product.ID != *p.ProductID {
		return false
	}
	return true
}

func filterProducts(products []catalog.ProductSnapshot, params Parameters) []catalog.ProductSnapshot {
	filtered := make([]catalog.ProductSnapshot, 0, len(products))
	for _, product := range products {
		if params.matches(product) {
			filtered = append(filtered, product)
		}
	}
	return filtered
}

// ratio divides numerator by a count, yielding zero for an empty count.
func ratio(numerator decimal.Decimal, denominator int) decimal.Decimal {
	if denominator == 0 {
		return decimal.Zero
	}
	return numerator.Div(decimal.NewFromInt(int64(denominator)))
}
