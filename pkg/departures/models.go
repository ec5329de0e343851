package departures

// RawRow holds the strings of one departure exactly as they appeared in the upstream payload.
type RawRow struct {
	TimeText        string
	DestinationText string
	PlatformText    string
	StopsText       string

	// Only filled by the structured (JSON) payload
	Route     string
	Direction string
	Fleet     *Fleet
}

// Fleet describes the real-time equipment assigned to a trip
type Fleet struct {
	Series string `json:"series,omitempty"`
	Cars   int    `json:"cars,omitempty"`
	Number string `json:"number,omitempty"`
}

// Departure is a normalized train leaving the station, as served by the API
type Departure struct {
	Platform    string `json:"platform"`
	Destination string `json:"destination"`
	TimeDisplay string `json:"time_display"`
	Minutes     int    `json:"minutes"`
	Pattern     string `json:"pattern"`
	Stops       string `json:"stops"`
	Route       string `json:"route,omitempty"`
	Direction   string `json:"direction,omitempty"`
	Fleet       *Fleet `json:"fleet,omitempty"`
}

// Board holds the two direction buckets for a station.
// Toward runs into the city, Away runs out of it.
type Board struct {
	Toward []Departure
	Away   []Departure
}

// Len returns the number of departures across both buckets
func (b Board) Len() int {
	return len(b.Toward) + len(b.Away)
}

const (
	DefaultPlatform = "?"
	DefaultPattern  = "W"
	DefaultStops    = "All Stations"

	// MaxPerBucket caps the number of departures kept per direction
	MaxPerBucket = 10
)
