package config

import "time"

const (
	// Staleness monitor
	DefaultStaleThreshold  = 5 * time.Minute
	DefaultMonitorInterval = 60 * time.Second

	// Reports
	StaleAnnotationMinutes = 5 // entries at or above this age get an "ultima act" line
	ReportTimeout          = 2 * time.Minute

	// Conversation
	DefaultPromptTimeout = 5 * time.Minute

	// Diagnostics
	DiagnosticsUserListLimit = 500

	// Live feed
	FeedBufferSize = 256
)

// Geo providers accepted by GEO_PROVIDER.
const (
	ProviderHere   = "here"
	ProviderMapbox = "mapbox"
	ProviderHybrid = "hybrid"
)

const DefaultLanguage = "es"
