package models

// RouteSummary is the driving route result returned by a routing provider.
type RouteSummary struct {
	LengthMeters    float64
	DurationSeconds float64
}

// Place is a reverse-geocoded locality. Unknown parts hold PlaceUnavailable.
type Place struct {
	Neighborhood string `json:"neighborhood"`
	Municipality string `json:"municipality"`
}

const (
	PlaceUnavailable = "NO DISPONIBLE"
	PlaceError       = "ERROR"
)

// TimingEntry is one line of a timing report.
type TimingEntry struct {
	ChatID             int64
	GroupName          string
	UserID             int64
	UserName           string
	DistanceKm         float64
	DurationMin        int
	MinutesSinceUpdate int
	Err                error
}

// Failed reports whether the route for this entry could not be computed.
func (e TimingEntry) Failed() bool { return e.Err != nil }

// GeoEntry is one line of a geo report.
type GeoEntry struct {
	ChatID             int64
	GroupName          string
	UserID             int64
	UserName           string
	Place              Place
	MinutesSinceUpdate int
	Err                error
}
