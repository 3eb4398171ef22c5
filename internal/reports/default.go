package reports

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func (s *Service) buildDefault(ctx context.Context, generatedAt time.Time) (Report, error) {
	products, err := s.products(ctx)
	if err != nil {
		return Report{}, err
	}

	totalValue := decimal.Zero
	for _, product := range products {
		totalValue = totalValue.Add(product.StockValue())
	}

	report := s.newReport(ReportTypeDefault, TitleDefault, generatedAt)
	report.Rows = append(report.Rows,
		Row{Key: KeyTotalProducts, Value: strconv.Itoa(len(products)), Description: "Total registered products"},
		Row{Key: KeyTotalStockValue, Value: s.money.Format(totalValue), Description: "Total stock value"},
	)
	report.Summary.TotalRecords = len(report.Rows)
	report.Summary.TotalValue = totalValue
	return report, nil
}
