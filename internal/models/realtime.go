package models

import "time"

// PositionEvent is pushed to live feed subscribers whenever a position is recorded.
type PositionEvent struct {
	ChatID     int64     `json:"chat_id"`
	ChatName   string    `json:"chat_name"`
	UserID     int64     `json:"user_id"`
	UserName   string    `json:"user_name"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
	Type       string    `json:"type"` // "position"
}

const EventTypePosition = "position"
