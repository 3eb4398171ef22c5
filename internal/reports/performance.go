package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockapp/stockapp/internal/catalog"
)

const maxComponentScore = 10

var (
	maxScoreComponent = decimal.NewFromInt(maxComponentScore)
	categoryScore     = decimal.NewFromInt(5)
	priceScoreDivisor = decimal.NewFromInt(100)
	scoreComponents   = decimal.NewFromInt(3)

	highPerformance   = decimal.NewFromInt(8)
	mediumPerformance = decimal.NewFromInt(6)
	lowPerformance    = decimal.NewFromInt(4)
)

// PerformanceScore rates a product on a 0-10 scale from its price and stock.
// Stock contributes in whole tens of units.
func PerformanceScore(p catalog.ProductSnapshot) decimal.Decimal {
	priceScore := decimal.Min(p.Price.Div(priceScoreDivisor), maxScoreComponent)
	stockScore := decimal.NewFromInt(int64(min(p.Stock/10, maxComponentScore)))
	return priceScore.Add(stockScore).Add(categoryScore).Div(scoreComponents)
}

// PerformanceCategory buckets a score; each lower bound is inclusive.
func PerformanceCategory(score decimal.Decimal) string {
	switch {
	case score.GreaterThanOrEqual(highPerformance):
		return CategoryHighPerformance
	case score.GreaterThanOrEqual(mediumPerformance):
		return CategoryMediumPerformance
	case score.GreaterThanOrEqual(lowPerformance):
		return CategoryLowPerformance
	default:
		return CategoryCriticalPerformance
	}
}

func (s *Service) buildPerformance(ctx context.Context, params Parameters, generatedAt time.Time) (Report, error) {
	products, err := s.products(ctx)
	if err != nil {
		return Report{}, err
	}
	report := s.newReport(ReportTypePerformance, TitlePerformance, generatedAt)

	var (
		totalScore    = decimal.Zero
		topPerformers int
	)
	for _, product := range filterProducts(products, params) {
		score := PerformanceScore(product)
		bucket := PerformanceCategory(score)
		totalScore = totalScore.Add(score)
		if bucket == CategoryHighPerformance {
			topPerformers++
		}

		report.Rows = append(report.Rows, Row{
			Key:         product.Name,
			Value:       score.StringFixed(2),
			Description: "Performance score based on price, stock and category",
			Category:    bucket,
			Date:        rowDate(generatedAt),
		})
	}

	report.Summary.TotalRecords = len(report.Rows)
	report.Summary.TotalValue = totalScore
	report.Summary.AdditionalMetrics[MetricAverageScore] = ratio(totalScore, len(report.Rows))
	report.Summary.AdditionalMetrics[MetricTopPerformers] = topPerformers
	return report, nil
}
