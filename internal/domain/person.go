package domain

// Risk band thresholds. Scores below LowRiskCeiling are Low, scores below
// HighRiskFloor are Medium, everything else is High.
const (
	LowRiskCeiling = 33
	HighRiskFloor  = 66
)

// RiskBand is the display classification of a risk score.
type RiskBand string

const (
	RiskLow    RiskBand = "Low"
	RiskMedium RiskBand = "Medium"
	RiskHigh   RiskBand = "High"
)

// RiskBands lists every band in ascending order.
var RiskBands = []RiskBand{RiskLow, RiskMedium, RiskHigh}

// BandFor classifies a risk score.
func BandFor(risk int) RiskBand {
	switch {
	case risk < LowRiskCeiling:
		return RiskLow
	case risk < HighRiskFloor:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ParseRiskBand maps a label onto a RiskBand.
func ParseRiskBand(label string) (RiskBand, bool) {
	for _, band := range RiskBands {
		if string(band) == label {
			return band, true
		}
	}
	return "", false
}

// Coordinates is a lat/lng pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Location is the current city of a person.
type Location struct {
	City   string      `json:"city" validate:"required"`
	Coords Coordinates `json:"coords"`
}

// Person is one synthetic identity record.
//
// DOB is kept as a fixed-width YYYY-MM-DD string; range filters and sorting
// compare it lexically.
type Person struct {
	ID                  string               `json:"id" validate:"required,startswith=U"`
	Name                string               `json:"name" validate:"required"`
	Bio                 string               `json:"bio"`
	Risk                int                  `json:"risk" validate:"gte=0,lte=100"`
	AccountNumber       string               `json:"accountNumber" validate:"required"`
	Salary              int                  `json:"salary" validate:"gte=0"`
	DOB                 string               `json:"dob" validate:"len=10,datetime=2006-01-02"`
	Location            Location             `json:"location"`
	LocationInsights    *LocationInsights    `json:"locationInsights,omitempty"`
	TransactionInsights *TransactionInsights `json:"transactionInsights,omitempty"`
}

// RiskBand returns the band of the person's risk score.
func (p Person) RiskBand() RiskBand {
	return BandFor(p.Risk)
}
