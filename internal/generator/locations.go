package generator

import (
	"time"

	"github.com/MartinDM/data-app/internal/domain"
)

func (g *Generator) place() domain.PlaceDetail {
	return domain.PlaceDetail{
		City:       g.faker.City(),
		State:      g.faker.State(),
		Country:    g.faker.Country(),
		Address:    g.faker.Street(),
		PostalCode: g.faker.Zip(),
		Coords:     g.nearby(),
	}
}

func (g *Generator) pastDate(now time.Time, years int) time.Time {
	return g.faker.DateRange(now.AddDate(-years, 0, 0), now).UTC()
}

// locationInsights builds the map drill-down. It draws independently of the
// transaction data.
func (g *Generator) locationInsights(city string, now time.Time) domain.LocationInsights {
	current := g.place()
	current.City = city

	history := make([]domain.LocationHistoryEntry, g.faker.IntRange(5, 15))
	for i := range history {
		history[i] = domain.LocationHistoryEntry{
			ID:           g.faker.UUID(),
			Timestamp:    g.pastDate(now, 2),
			Location:     g.place(),
			LocationType: pick(g.faker, domain.LocationTypes),
			DurationDays: g.faker.IntRange(1, 365),
			Confidence:   pick(g.faker, domain.ConfidenceLevels),
			Source:       pick(g.faker, domain.LocationSources),
			Notes:        g.faker.Sentence(6),
		}
	}

	destinations := make([]domain.FrequentDestination, g.faker.IntRange(3, 8))
	for i := range destinations {
		destinations[i] = domain.FrequentDestination{
			City:       g.faker.City(),
			Country:    g.faker.Country(),
			VisitCount: g.faker.IntRange(1, 10),
			LastVisit:  g.faker.DateRange(now.AddDate(0, 0, -365), now).UTC(),
		}
	}

	residences := make([]domain.ResidenceHistory, g.faker.IntRange(2, 5))
	for i := range residences {
		start := g.pastDate(now, 10)
		residences[i] = domain.ResidenceHistory{
			ID:            g.faker.UUID(),
			Timestamp:     g.pastDate(now, 2),
			Location:      g.place(),
			StartDate:     start,
			EndDate:       g.closedAfter(i, start, now),
			ResidenceType: pick(g.faker, domain.ResidenceTypes),
		}
	}

	jobs := make([]domain.WorkLocation, g.faker.IntRange(1, 4))
	for i := range jobs {
		start := g.pastDate(now, 5)
		jobs[i] = domain.WorkLocation{
			Location:  g.place(),
			Company:   g.faker.Company(),
			StartDate: start,
			EndDate:   g.closedAfter(i, start, now),
			IsRemote:  g.faker.Bool(),
		}
	}

	return domain.LocationInsights{
		CurrentLocation: domain.CurrentLocation{
			PlaceDetail: current,
			Since:       g.pastDate(now, 2),
		},
		LocationHistory: history,
		TravelPatterns: domain.TravelPatterns{
			FrequentDestinations: destinations,
			MobilityScore:        g.faker.IntRange(0, 100),
			AverageStayDuration:  g.faker.IntRange(30, 365),
			TimeZoneChanges:      g.faker.IntRange(0, 20),
		},
		ResidenceHistory: residences,
		WorkLocations:    jobs,
	}
}

// closedAfter leaves the entry at index 0 open and closes every other one
// somewhere between its start and now.
func (g *Generator) closedAfter(index int, start, now time.Time) *time.Time {
	if index == 0 {
		return nil
	}
	end := g.faker.DateRange(start, now).UTC()
	if end.Before(start) {
		end = start
	}
	return &end
}
