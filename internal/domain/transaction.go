package domain

import "time"

// MerchantCategory is the fixed merchant classification.
type MerchantCategory string

const (
	CategoryGrocery       MerchantCategory = "grocery"
	CategoryGas           MerchantCategory = "gas"
	CategoryRestaurant    MerchantCategory = "restaurant"
	CategoryRetail        MerchantCategory = "retail"
	CategoryTravel        MerchantCategory = "travel"
	CategoryEntertainment MerchantCategory = "entertainment"
	CategoryHealthcare    MerchantCategory = "healthcare"
	CategoryUtilities     MerchantCategory = "utilities"
	CategoryOther         MerchantCategory = "other"
)

// MerchantCategories lists all nine categories in display order.
var MerchantCategories = []MerchantCategory{
	CategoryGrocery,
	CategoryGas,
	CategoryRestaurant,
	CategoryRetail,
	CategoryTravel,
	CategoryEntertainment,
	CategoryHealthcare,
	CategoryUtilities,
	CategoryOther,
}

// Currencies is the fixed set of transaction currencies.
var Currencies = []string{"USD", "EUR", "GBP", "CAD", "JPY"}

// TransactionTypes is the fixed set of transaction kinds.
var TransactionTypes = []string{"purchase", "refund", "withdrawal", "fee"}

// TransactionStatuses is the fixed set of settlement states.
var TransactionStatuses = []string{"completed", "pending", "declined", "disputed"}

// CardTransaction is one synthetic credit card transaction. Location is nil
// for online transactions.
type CardTransaction struct {
	ID               string           `json:"id"`
	Timestamp        time.Time        `json:"timestamp"`
	Amount           float64          `json:"amount"`
	Currency         string           `json:"currency"`
	MerchantName     string           `json:"merchantName"`
	MerchantCategory MerchantCategory `json:"merchantCategory"`
	Location         *PlaceDetail     `json:"location,omitempty"`
	CardLastFour     string           `json:"cardLastFour"`
	TransactionType  string           `json:"transactionType"`
	IsOnline         bool             `json:"isOnline"`
	Status           string           `json:"status"`
	Description      string           `json:"description,omitempty"`
}

// CategorySpend is the per-category slice of total spend.
type CategorySpend struct {
	Amount           float64 `json:"amount"`
	Percentage       float64 `json:"percentage"`
	TransactionCount int     `json:"transactionCount"`
}

// MonthlyTrend is the spend of one calendar month (YYYY-MM).
type MonthlyTrend struct {
	Month            string  `json:"month"`
	TotalSpent       float64 `json:"totalSpent"`
	TransactionCount int     `json:"transactionCount"`
}

// SpendingPatterns aggregates the whole transaction list.
type SpendingPatterns struct {
	TotalSpent         float64                            `json:"totalSpent"`
	AverageTransaction float64                            `json:"averageTransaction"`
	TransactionCount   int                                `json:"transactionCount"`
	CategoryBreakdown  map[MerchantCategory]CategorySpend `json:"categoryBreakdown"`
	MonthlyTrends      []MonthlyTrend                     `json:"monthlyTrends"`
}

// LocationSpending is spend grouped by "city, country".
type LocationSpending struct {
	City             string       `json:"city"`
	Country          string       `json:"country"`
	TotalSpent       float64      `json:"totalSpent"`
	TransactionCount int          `json:"transactionCount"`
	LastTransaction  time.Time    `json:"lastTransaction"`
	Coords           *Coordinates `json:"coords,omitempty"`
}

// Key returns the grouping key of the location.
func (l LocationSpending) Key() string {
	return l.City + ", " + l.Country
}

// TravelIndicators summarises spend outside the home country.
type TravelIndicators struct {
	ForeignTransactions   int     `json:"foreignTransactions"`
	UniqueLocations       int     `json:"uniqueLocations"`
	TravelSpending        float64 `json:"travelSpending"`
	InternationalSpending float64 `json:"internationalSpending"`
}

// UnusualLocation flags a spend location. RiskScore is synthetic and
// non-authoritative: it is drawn at random, not computed.
type UnusualLocation struct {
	Location  string    `json:"location"`
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	RiskScore int       `json:"riskScore"`
	Synthetic bool      `json:"synthetic"`
}

// FrequentMerchant is a synthetic, non-authoritative merchant summary.
type FrequentMerchant struct {
	MerchantName     string  `json:"merchantName"`
	TransactionCount int     `json:"transactionCount"`
	TotalSpent       float64 `json:"totalSpent"`
}

// RiskIndicators groups the heuristic flags shown on the insights page.
type RiskIndicators struct {
	UnusualLocations  []UnusualLocation  `json:"unusualLocations"`
	LargeTransactions []CardTransaction  `json:"largeTransactions"`
	FrequentMerchants []FrequentMerchant `json:"frequentMerchants"`
}

// TransactionInsights is the transaction drill-down of a person.
type TransactionInsights struct {
	RecentTransactions []CardTransaction  `json:"recentTransactions"`
	SpendingPatterns   SpendingPatterns   `json:"spendingPatterns"`
	LocationSpending   []LocationSpending `json:"locationSpending"`
	TravelIndicators   TravelIndicators   `json:"travelIndicators"`
	RiskIndicators     RiskIndicators     `json:"riskIndicators"`
}
