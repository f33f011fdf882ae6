package generator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinDM/data-app/internal/domain"
)

func tx(amount float64, category domain.MerchantCategory, at time.Time, loc *domain.PlaceDetail) domain.CardTransaction {
	return domain.CardTransaction{
		ID:               at.Format(time.RFC3339Nano),
		Timestamp:        at,
		Amount:           amount,
		MerchantCategory: category,
		Location:         loc,
		IsOnline:         loc == nil,
	}
}

func TestSummarizeTransactions_Empty(t *testing.T) {
	insights := SummarizeTransactions(nil, SummaryOptions{Now: fixedNow, HomeCountry: "United States"})

	patterns := insights.SpendingPatterns
	assert.Zero(t, patterns.TotalSpent)
	assert.Zero(t, patterns.AverageTransaction)
	require.Len(t, patterns.CategoryBreakdown, len(domain.MerchantCategories))
	for _, spend := range patterns.CategoryBreakdown {
		assert.Zero(t, spend.Percentage)
		assert.Zero(t, spend.TransactionCount)
	}
	require.Len(t, patterns.MonthlyTrends, 6)
	assert.Equal(t, "2024-04", patterns.MonthlyTrends[0].Month)
	assert.Equal(t, "2023-11", patterns.MonthlyTrends[5].Month)
	assert.Empty(t, insights.LocationSpending)
	assert.Empty(t, insights.RiskIndicators.UnusualLocations)
}

func TestSummarizeTransactions_Aggregates(t *testing.T) {
	london := &domain.PlaceDetail{City: "London", Country: "United Kingdom"}
	boston := &domain.PlaceDetail{City: "Boston", Country: "United States"}

	txs := []domain.CardTransaction{
		tx(100, domain.CategoryGrocery, fixedNow.AddDate(0, 0, -1), london),
		tx(300, domain.CategoryTravel, fixedNow.AddDate(0, -1, 0), london),
		tx(50.5, domain.CategoryGrocery, fixedNow.AddDate(0, -2, 0), boston),
		tx(49.5, domain.CategoryOther, fixedNow.AddDate(0, -7, 0), nil),
	}

	scores := []int{17, 83}
	insights := SummarizeTransactions(txs, SummaryOptions{
		Now:                       fixedNow,
		HomeCountry:               "United States",
		LargeTransactionThreshold: 200,
		LocationRiskScore: func() int {
			s := scores[0]
			scores = scores[1:]
			return s
		},
	})

	patterns := insights.SpendingPatterns
	assert.InDelta(t, 500, patterns.TotalSpent, 1e-9)
	assert.InDelta(t, 125, patterns.AverageTransaction, 1e-9)
	assert.Equal(t, 4, patterns.TransactionCount)

	grocery := patterns.CategoryBreakdown[domain.CategoryGrocery]
	assert.InDelta(t, 150.5, grocery.Amount, 1e-9)
	assert.InDelta(t, 30.1, grocery.Percentage, 1e-9)
	assert.Equal(t, 2, grocery.TransactionCount)
	assert.Zero(t, patterns.CategoryBreakdown[domain.CategoryGas].Amount)

	assert.Equal(t, 1, patterns.MonthlyTrends[0].TransactionCount)
	assert.InDelta(t, 100, patterns.MonthlyTrends[0].TotalSpent, 1e-9)
	assert.Equal(t, 1, patterns.MonthlyTrends[1].TransactionCount)
	assert.Equal(t, 1, patterns.MonthlyTrends[2].TransactionCount)

	require.Len(t, insights.LocationSpending, 2)
	first := insights.LocationSpending[0]
	assert.Equal(t, "London, United Kingdom", first.Key())
	assert.InDelta(t, 400, first.TotalSpent, 1e-9)
	assert.Equal(t, 2, first.TransactionCount)
	assert.Equal(t, fixedNow.AddDate(0, 0, -1), first.LastTransaction)

	travel := insights.TravelIndicators
	assert.Equal(t, 2, travel.ForeignTransactions)
	assert.Equal(t, 2, travel.UniqueLocations)
	assert.InDelta(t, 300, travel.TravelSpending, 1e-9)
	assert.InDelta(t, 400, travel.InternationalSpending, 1e-9)

	risk := insights.RiskIndicators
	require.Len(t, risk.LargeTransactions, 1)
	assert.InDelta(t, 300, risk.LargeTransactions[0].Amount, 1e-9)
	require.Len(t, risk.UnusualLocations, 2)
	assert.Equal(t, 17, risk.UnusualLocations[0].RiskScore)
	assert.Equal(t, 83, risk.UnusualLocations[1].RiskScore)
	assert.True(t, risk.UnusualLocations[0].Synthetic)
}

func TestValidator_RejectsBrokenRecords(t *testing.T) {
	people, err := newTestGenerator(21).Generate(context.Background(), 1)
	require.NoError(t, err)
	v := NewValidator()
	require.NoError(t, v.Validate(people[0]))

	badDOB := people[0]
	badDOB.DOB = "1990-1-1"
	assert.Error(t, v.Validate(badDOB))

	badRisk := people[0]
	badRisk.Risk = 101
	assert.Error(t, v.Validate(badRisk))

	insights := *people[0].LocationInsights
	residences := append([]domain.ResidenceHistory(nil), insights.ResidenceHistory...)
	end := fixedNow
	residences[0].EndDate = &end
	insights.ResidenceHistory = residences
	openClosed := people[0]
	openClosed.LocationInsights = &insights
	assert.Error(t, v.Validate(openClosed))
}
