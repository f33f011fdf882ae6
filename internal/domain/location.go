package domain

import "time"

// LocationType classifies a location history entry.
type LocationType string

const (
	LocationResidence LocationType = "residence"
	LocationWork      LocationType = "work"
	LocationTravel    LocationType = "travel"
	LocationVisit     LocationType = "visit"
	LocationOther     LocationType = "other"
)

// LocationTypes is the fixed set of location types.
var LocationTypes = []LocationType{LocationResidence, LocationWork, LocationTravel, LocationVisit, LocationOther}

// Confidence levels for location observations.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ConfidenceLevels is the fixed set of confidence levels.
var ConfidenceLevels = []string{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}

// LocationSources is the fixed set of provenance sources.
var LocationSources = []string{"gps", "check-in", "transaction", "survey", "inferred"}

// ResidenceTypes is the fixed set of residence kinds.
var ResidenceTypes = []string{"primary", "secondary", "temporary"}

// PlaceDetail describes a resolved place.
type PlaceDetail struct {
	City       string      `json:"city" validate:"required"`
	State      string      `json:"state"`
	Country    string      `json:"country"`
	Address    string      `json:"address,omitempty"`
	PostalCode string      `json:"postalCode,omitempty"`
	Coords     Coordinates `json:"coords"`
}

// CurrentLocation is where a person lives now.
type CurrentLocation struct {
	PlaceDetail
	Since time.Time `json:"since"`
}

// LocationHistoryEntry is one observed location.
type LocationHistoryEntry struct {
	ID           string       `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	Location     PlaceDetail  `json:"location"`
	LocationType LocationType `json:"locationType"`
	DurationDays int          `json:"duration"`
	Confidence   string       `json:"confidence"`
	Source       string       `json:"source"`
	Notes        string       `json:"notes,omitempty"`
}

// FrequentDestination is a synthetic, non-authoritative travel aggregate.
type FrequentDestination struct {
	City       string    `json:"city"`
	Country    string    `json:"country"`
	VisitCount int       `json:"visitCount"`
	LastVisit  time.Time `json:"lastVisit"`
}

// TravelPatterns holds synthetic, non-authoritative mobility figures. None
// of them are inferred from the location history.
type TravelPatterns struct {
	FrequentDestinations []FrequentDestination `json:"frequentDestinations"`
	MobilityScore        int                   `json:"mobilityScore"`
	AverageStayDuration  int                   `json:"averageStayDuration"`
	TimeZoneChanges      int                   `json:"timeZoneChanges"`
}

// ResidenceHistory is one residence interval. A nil EndDate means ongoing.
type ResidenceHistory struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Location      PlaceDetail `json:"location"`
	StartDate     time.Time   `json:"startDate"`
	EndDate       *time.Time  `json:"endDate,omitempty"`
	ResidenceType string      `json:"residenceType"`
}

// Current reports whether the residence is still ongoing.
func (r ResidenceHistory) Current() bool { return r.EndDate == nil }

// WorkLocation is one employment interval. A nil EndDate means ongoing.
type WorkLocation struct {
	Location  PlaceDetail `json:"location"`
	Company   string      `json:"company"`
	StartDate time.Time   `json:"startDate"`
	EndDate   *time.Time  `json:"endDate,omitempty"`
	IsRemote  bool        `json:"isRemote"`
}

// Current reports whether the job is still ongoing.
func (w WorkLocation) Current() bool { return w.EndDate == nil }

// LocationInsights groups everything the map drill-down renders.
type LocationInsights struct {
	CurrentLocation  CurrentLocation        `json:"currentLocation"`
	LocationHistory  []LocationHistoryEntry `json:"locationHistory"`
	TravelPatterns   TravelPatterns         `json:"travelPatterns"`
	ResidenceHistory []ResidenceHistory     `json:"residenceHistory"`
	WorkLocations    []WorkLocation         `json:"workLocations"`
}
