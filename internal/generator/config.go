package generator

import "time"

// Config drives the synthetic record generator.
type Config struct {
	// Seed feeds the faker. Zero picks a time based seed.
	Seed int64
	// Now is the reference clock for every relative date.
	Now func() time.Time

	MinTransactions           int
	MaxTransactions           int
	TransactionWindow         time.Duration
	HomeCountry               string
	LargeTransactionThreshold float64
	// Origin and RadiusKm bound the synthetic coordinates.
	Origin   Origin
	RadiusKm float64
}

// Origin is the centre point coordinates are scattered around.
type Origin struct {
	Lat float64
	Lng float64
}

// DefaultConfig returns the settings the dashboard was built around.
func DefaultConfig() Config {
	return Config{
		Seed:                      0,
		Now:                       time.Now,
		MinTransactions:           20,
		MaxTransactions:           100,
		TransactionWindow:         180 * 24 * time.Hour,
		HomeCountry:               "United States",
		LargeTransactionThreshold: 200,
		Origin:                    Origin{Lat: 51.5074, Lng: -0.1278},
		RadiusKm:                  200,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Now == nil {
		c.Now = def.Now
	}
	if c.MinTransactions <= 0 {
		c.MinTransactions = def.MinTransactions
	}
	if c.MaxTransactions < c.MinTransactions {
		c.MaxTransactions = max(def.MaxTransactions, c.MinTransactions)
	}
	if c.TransactionWindow <= 0 {
		c.TransactionWindow = def.TransactionWindow
	}
	if c.HomeCountry == "" {
		c.HomeCountry = def.HomeCountry
	}
	if c.LargeTransactionThreshold <= 0 {
		c.LargeTransactionThreshold = def.LargeTransactionThreshold
	}
	if c.Origin == (Origin{}) {
		c.Origin = def.Origin
	}
	if c.RadiusKm <= 0 {
		c.RadiusKm = def.RadiusKm
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}
