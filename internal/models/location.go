package models

import (
	"strconv"
	"time"
)

// Coordinates is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String renders the pair as "lat,lon" using the shortest exact decimal form.
func (c Coordinates) String() string {
	return FormatDegrees(c.Latitude) + "," + FormatDegrees(c.Longitude)
}

// LonLat renders the pair in the "lon,lat" order used by GeoJSON based APIs.
func (c Coordinates) LonLat() string {
	return FormatDegrees(c.Longitude) + "," + FormatDegrees(c.Latitude)
}

func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TrackedPosition is the latest known position of a user inside one chat.
type TrackedPosition struct {
	Coordinates
	RecordedAt time.Time // when the position was received; never cleared
}

// Chat is a registered chat (group or private) the bot tracks users in.
type Chat struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LocationReport is a single position update delivered by the messaging transport.
type LocationReport struct {
	ChatID      int64
	ChatTitle   string
	Private     bool // one-to-one chat with the bot
	UserID      int64
	Coordinates Coordinates
}

// SendOptions controls how an outbound chat message is rendered.
type SendOptions struct {
	Markdown           bool
	DisableLinkPreview bool
}
