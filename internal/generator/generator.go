package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/MartinDM/data-app/internal/domain"
)

// ErrInvalidArgument is returned for a negative record count.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	idBase      = 1000
	minSalary   = 30000
	maxSalary   = 120000
	dobYearSpan = 30
	kmPerDegree = 111.32
)

// Generator synthesises internally consistent person records. It is not safe
// for concurrent use; callers serialise Generate calls.
type Generator struct {
	cfg       Config
	faker     *gofakeit.Faker
	validator *Validator
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	cfg = cfg.withDefaults()
	return &Generator{
		cfg:       cfg,
		faker:     gofakeit.New(uint64(cfg.Seed)),
		validator: NewValidator(),
	}
}

// Generate produces count records with ids U1000.. in order. It respects
// context cancellation and never returns partial output.
func (g *Generator) Generate(ctx context.Context, count int) ([]domain.Person, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count must be non-negative, got %d", ErrInvalidArgument, count)
	}

	now := g.cfg.Now().UTC()
	people := make([]domain.Person, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		person := g.person(i, now)
		if err := g.validator.Validate(person); err != nil {
			return nil, fmt.Errorf("generated record %s: %w", person.ID, err)
		}
		people = append(people, person)
	}
	return people, nil
}

func (g *Generator) person(index int, now time.Time) domain.Person {
	city := g.faker.City()
	txs := g.transactions(now)

	insights := SummarizeTransactions(txs, SummaryOptions{
		Now:                       now,
		HomeCountry:               g.cfg.HomeCountry,
		LargeTransactionThreshold: g.cfg.LargeTransactionThreshold,
		LocationRiskScore:         func() int { return g.faker.IntRange(0, 100) },
	})
	insights.RiskIndicators.FrequentMerchants = g.frequentMerchants()

	locations := g.locationInsights(city, now)

	return domain.Person{
		ID:            fmt.Sprintf("U%04d", idBase+index),
		Name:          g.faker.Name(),
		Bio:           g.faker.Sentence(12),
		Risk:          g.faker.IntRange(0, 100),
		AccountNumber: fmt.Sprintf("%08d", g.faker.IntRange(0, 99999999)),
		Salary:        g.faker.IntRange(minSalary, maxSalary),
		DOB:           g.faker.DateRange(now.AddDate(-dobYearSpan, 0, 0), now).Format(time.DateOnly),
		Location: domain.Location{
			City:   city,
			Coords: g.nearby(),
		},
		LocationInsights:    &locations,
		TransactionInsights: &insights,
	}
}

func (g *Generator) transactions(now time.Time) []domain.CardTransaction {
	n := g.faker.IntRange(g.cfg.MinTransactions, g.cfg.MaxTransactions)
	txs := make([]domain.CardTransaction, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, g.transaction(now))
	}
	slices.SortStableFunc(txs, func(a, b domain.CardTransaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return txs
}

func (g *Generator) transaction(now time.Time) domain.CardTransaction {
	online := g.faker.Bool()
	tx := domain.CardTransaction{
		ID:               g.faker.UUID(),
		Timestamp:        g.faker.DateRange(now.Add(-g.cfg.TransactionWindow), now).UTC(),
		Amount:           roundMoney(g.faker.Float64Range(5, 500)),
		Currency:         pick(g.faker, domain.Currencies),
		MerchantName:     g.faker.Company(),
		MerchantCategory: pick(g.faker, domain.MerchantCategories),
		CardLastFour:     fmt.Sprintf("%04d", g.faker.IntRange(0, 9999)),
		TransactionType:  pick(g.faker, domain.TransactionTypes),
		IsOnline:         online,
		Status:           pick(g.faker, domain.TransactionStatuses),
		Description:      g.faker.Sentence(8),
	}
	if !online {
		tx.Location = &domain.PlaceDetail{
			City:    g.faker.City(),
			State:   g.faker.State(),
			Country: g.faker.Country(),
			Address: g.faker.Street(),
			Coords: domain.Coordinates{
				Lat: roundCoord(g.faker.Latitude()),
				Lng: roundCoord(g.faker.Longitude()),
			},
		}
	}
	return tx
}

func (g *Generator) frequentMerchants() []domain.FrequentMerchant {
	merchants := make([]domain.FrequentMerchant, 0, 3)
	for i := 0; i < 3; i++ {
		merchants = append(merchants, domain.FrequentMerchant{
			MerchantName:     g.faker.Company(),
			TransactionCount: g.faker.IntRange(5, 20),
			TotalSpent:       float64(g.faker.IntRange(100, 1000)),
		})
	}
	return merchants
}

// nearby scatters a point uniformly over a disc around the configured origin.
func (g *Generator) nearby() domain.Coordinates {
	origin := g.cfg.Origin
	distance := g.cfg.RadiusKm * math.Sqrt(g.faker.Float64())
	bearing := g.faker.Float64Range(0, 2*math.Pi)

	dLat := distance * math.Cos(bearing) / kmPerDegree
	dLng := distance * math.Sin(bearing) / (kmPerDegree * math.Cos(origin.Lat*math.Pi/180))

	return domain.Coordinates{
		Lat: roundCoord(origin.Lat + dLat),
		Lng: roundCoord(origin.Lng + dLng),
	}
}

func pick[T any](f *gofakeit.Faker, options []T) T {
	return options[f.IntRange(0, len(options)-1)]
}

func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func roundCoord(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
