package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockapp/stockapp/internal/catalog"
)

// simulatedOrders stands in for real order history, which the catalog does
// not expose: products with stock get max(1, 100-stock) orders, others none.
func simulatedOrders(p catalog.ProductSnapshot) int {
	if p.Stock <= 0 {
		return 0
	}
	return max(1, 100-p.Stock)
}

func (s *Service) buildSales(ctx context.Context, params Parameters, generatedAt time.Time) (Report, error) {
	products, err := s.products(ctx)
	if err != nil {
		return Report{}, err
	}
	report := s.newReport(ReportTypeSales, TitleSales, generatedAt)

	var (
		totalSales  = decimal.Zero
		totalOrders int
	)
	for _, product := range filterProducts(products, params) {
		orders := simulatedOrders(product)
		salesValue := product.Price.Mul(decimal.NewFromInt(int64(orders)))
		totalSales = totalSales.Add(salesValue)
		totalOrders += orders

		report.Rows = append(report.Rows, Row{
			Key:         product.Name,
			Value:       s.money.Format(salesValue),
			Description: fmt.Sprintf("Simulated sales for %s (%d orders)", product.Name, orders),
			Category:    CategorySales,
			Date:        rowDate(generatedAt),
		})
	}

	report.Summary.TotalRecords = len(report.Rows)
	report.Summary.TotalValue = totalSales
	report.Summary.AdditionalMetrics[MetricTotalOrders] = totalOrders
	report.Summary.AdditionalMetrics[MetricAverageOrderValue] = ratio(totalSales, totalOrders)
	return report, nil
}
