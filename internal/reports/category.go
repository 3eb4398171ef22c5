package reports

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/stockapp/stockapp/internal/catalog"
)

type categoryGroup struct {
	id       int64
	products int
	value    decimal.Decimal
}

// groupByCategory groups products by category id in first-seen order.
func groupByCategory(products []catalog.ProductSnapshot) []categoryGroup {
	index := make(map[int64]int)
	groups := make([]categoryGroup, 0)
	for _, product := range products {
		pos, ok := index[product.CategoryID]
		if !ok {
			pos = len(groups)
			index[product.CategoryID] = pos
			groups = append(groups, categoryGroup{id: product.CategoryID, value: decimal.Zero})
		}
		groups[pos].products++
		groups[pos].value = groups[pos].value.Add(product.StockValue())
	}
	return groups
}

func (s *Service) buildCategory(ctx context.Context, generatedAt time.Time) (Report, error) {
	var (
		products   []catalog.ProductSnapshot
		categories []catalog.CategorySnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.categories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	names := make(map[int64]string, len(categories))
	for _, category := range categories {
		if _, seen := names[category.ID]; !seen {
			names[category.ID] = category.Name
		}
	}

	report := s.newReport(ReportTypeCategory, TitleCategory, generatedAt)
	totalValue := decimal.Zero
	for _, group := range groupByCategory(products) {
		totalValue = totalValue.Add(group.value)
		name, ok := names[group.id]
		if !ok {
			name = UnknownCategoryName
		}

		report.Rows = append(report.Rows, Row{
			Key:         name,
			Value:       strconv.Itoa(group.products),
			Description: fmt.Sprintf("%d products, total value: %s", group.products, s.money.Format(group.value)),
			Category:    CategoryGroup,
			Date:        rowDate(generatedAt),
		})
	}

	report.Summary.TotalRecords = len(report.Rows)
	report.Summary.TotalValue = totalValue
	report.Summary.AdditionalMetrics[MetricTotalCategories] = len(report.Rows)
	report.Summary.AdditionalMetrics[MetricAverageCategoryValue] = ratio(totalValue, len(report.Rows))
	return report, nil
}
