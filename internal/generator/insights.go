package generator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MartinDM/data-app/internal/domain"
)

const (
	trendMonths       = 6
	unusualLocationsN = 3
)

var hundred = decimal.NewFromInt(100)

// SummaryOptions parameterises SummarizeTransactions.
type SummaryOptions struct {
	Now                       time.Time
	HomeCountry               string
	LargeTransactionThreshold float64
	// LocationRiskScore supplies the synthetic score attached to each
	// unusual location flag. Nil yields zero.
	LocationRiskScore func() int
}

type spendAccumulator struct {
	amount decimal.Decimal
	count  int
}

// SummarizeTransactions derives the transaction insights of one person. It is
// a pure aggregation of txs apart from the injected LocationRiskScore; the
// synthetic frequent merchants list is left empty for the caller.
func SummarizeTransactions(txs []domain.CardTransaction, opts SummaryOptions) domain.TransactionInsights {
	total := decimal.Zero
	categories := make(map[domain.MerchantCategory]*spendAccumulator, len(domain.MerchantCategories))
	for _, category := range domain.MerchantCategories {
		categories[category] = &spendAccumulator{amount: decimal.Zero}
	}

	months := trailingMonths(opts.Now, trendMonths)
	monthly := make([]spendAccumulator, len(months))

	var (
		locations   []domain.LocationSpending
		locationIdx = make(map[string]int)
		large       = make([]domain.CardTransaction, 0)
		travel      = decimal.Zero
		foreign     = decimal.Zero
		foreignN    int
	)

	for _, tx := range txs {
		amount := decimal.NewFromFloat(tx.Amount)
		total = total.Add(amount)

		if acc, ok := categories[tx.MerchantCategory]; ok {
			acc.amount = acc.amount.Add(amount)
			acc.count++
		}
		if tx.MerchantCategory == domain.CategoryTravel {
			travel = travel.Add(amount)
		}
		if tx.Amount > opts.LargeTransactionThreshold {
			large = append(large, tx)
		}

		for i, m := range months {
			if tx.Timestamp.Year() == m.Year() && tx.Timestamp.Month() == m.Month() {
				monthly[i].amount = monthly[i].amount.Add(amount)
				monthly[i].count++
				break
			}
		}

		if tx.Location == nil {
			continue
		}
		if tx.Location.Country != opts.HomeCountry {
			foreign = foreign.Add(amount)
			foreignN++
		}

		spend := domain.LocationSpending{City: tx.Location.City, Country: tx.Location.Country}
		idx, seen := locationIdx[spend.Key()]
		if !seen {
			coords := tx.Location.Coords
			spend.Coords = &coords
			spend.LastTransaction = tx.Timestamp
			locations = append(locations, spend)
			idx = len(locations) - 1
			locationIdx[spend.Key()] = idx
		}
		loc := &locations[idx]
		loc.TotalSpent = decimal.NewFromFloat(loc.TotalSpent).Add(amount).InexactFloat64()
		loc.TransactionCount++
		if tx.Timestamp.After(loc.LastTransaction) {
			loc.LastTransaction = tx.Timestamp
		}
	}

	breakdown := make(map[domain.MerchantCategory]domain.CategorySpend, len(categories))
	for category, acc := range categories {
		pct := 0.0
		if !total.IsZero() {
			pct = acc.amount.Div(total).Mul(hundred).InexactFloat64()
		}
		breakdown[category] = domain.CategorySpend{
			Amount:           acc.amount.InexactFloat64(),
			Percentage:       pct,
			TransactionCount: acc.count,
		}
	}

	trends := make([]domain.MonthlyTrend, len(months))
	for i, m := range months {
		trends[i] = domain.MonthlyTrend{
			Month:            m.Format("2006-01"),
			TotalSpent:       monthly[i].amount.InexactFloat64(),
			TransactionCount: monthly[i].count,
		}
	}

	average := 0.0
	if len(txs) > 0 {
		average = total.Div(decimal.NewFromInt(int64(len(txs)))).InexactFloat64()
	}

	if locations == nil {
		locations = []domain.LocationSpending{}
	}

	return domain.TransactionInsights{
		RecentTransactions: txs,
		SpendingPatterns: domain.SpendingPatterns{
			TotalSpent:         total.InexactFloat64(),
			AverageTransaction: average,
			TransactionCount:   len(txs),
			CategoryBreakdown:  breakdown,
			MonthlyTrends:      trends,
		},
		LocationSpending: locations,
		TravelIndicators: domain.TravelIndicators{
			ForeignTransactions:   foreignN,
			UniqueLocations:       len(locations),
			TravelSpending:        travel.InexactFloat64(),
			InternationalSpending: foreign.InexactFloat64(),
		},
		RiskIndicators: domain.RiskIndicators{
			UnusualLocations:  unusualLocations(locations, opts.LocationRiskScore),
			LargeTransactions: large,
			FrequentMerchants: []domain.FrequentMerchant{},
		},
	}
}

func unusualLocations(locations []domain.LocationSpending, score func() int) []domain.UnusualLocation {
	n := min(len(locations), unusualLocationsN)
	flags := make([]domain.UnusualLocation, 0, n)
	for _, loc := range locations[:n] {
		risk := 0
		if score != nil {
			risk = score()
		}
		flags = append(flags, domain.UnusualLocation{
			Location:  loc.Key(),
			Date:      loc.LastTransaction,
			Amount:    loc.TotalSpent,
			RiskScore: risk,
			Synthetic: true,
		})
	}
	return flags
}

// trailingMonths returns the first day of the current month and the n-1
// months before it, newest first.
func trailingMonths(now time.Time, n int) []time.Time {
	months := make([]time.Time, n)
	for i := 0; i < n; i++ {
		months[i] = time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
	}
	return months
}
