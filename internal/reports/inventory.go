package reports

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func stockCategory(stock int) string {
	if stock < LowStockThreshold {
		return CategoryLowStock
	}
	return CategoryNormalStock
}

func (s *Service) buildInventory(ctx context.Context, params Parameters, generatedAt time.Time) (Report, error) {
	products, err := s.products(ctx)
	if err != nil {
		return Report{}, err
	}
	report := s.newReport(ReportTypeInventory, TitleInventory, generatedAt)

	var (
		totalValue = decimal.Zero
		lowStock   int
	)
	for _, product := range filterProducts(products, params) {
		value := product.StockValue()
		totalValue = totalValue.Add(value)
		if product.Stock < LowStockThreshold {
			lowStock++
		}

		report.Rows = append(report.Rows, Row{
			Key:         product.Name,
			Value:       strconv.Itoa(product.Stock),
			Description: fmt.Sprintf("Current stock: %d units (value: %s)", product.Stock, s.money.Format(value)),
			Category:    stockCategory(product.Stock),
			Date:        rowDate(generatedAt),
		})
	}

	report.Summary.TotalRecords = len(report.Rows)
	report.Summary.TotalValue = totalValue
	report.Summary.AdditionalMetrics[MetricLowStockItems] = lowStock
	report.Summary.AdditionalMetrics[MetricAverageStockValue] = ratio(totalValue, len(report.Rows))
	return report, nil
}
