package feed

import "trackbot/backend/internal/models"

// Client is one subscriber of the position feed.
type Client interface {
	// ID returns the connection's unique identifier.
	ID() string
	// SendChannel returns the channel the hub pushes events to.
	SendChannel() chan<- models.PositionEvent
	// Run starts the client's read and write pumps.
	Run()
	// Close closes the send channel, which stops the write pump.
	Close()
}
