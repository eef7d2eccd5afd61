// Package gateway resolves routes and reverse-geocoded places through an
// external provider selected at startup.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"trackbot/backend/internal/config"
	"trackbot/backend/internal/models"
)

var (
	ErrRouteUnavailable   = errors.New("route unavailable")
	ErrGeocodeUnavailable = errors.New("geocode unavailable")
)

// Router computes a driving route summary between two points.
type Router interface {
	CalculateRoute(ctx context.Context, origin, destination models.Coordinates) (models.RouteSummary, error)
}

// Geocoder resolves a point to its neighborhood and municipality.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, at models.Coordinates) (models.Place, error)
}

// Gateway bundles both capabilities. Adapters may come from different providers.
type Gateway interface {
	Router
	Geocoder
}

type composite struct {
	Router
	Geocoder
}

// Combine builds a Gateway from an independent router and geocoder.
func Combine(r Router, g Geocoder) Gateway {
	return composite{Router: r, Geocoder: g}
}

const defaultTimeout = 15 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// New selects the provider configured by GEO_PROVIDER.
func New(cfg *config.Config) (Gateway, error) {
	switch cfg.GeoProvider {
	case config.ProviderHere:
		return NewHereClient(cfg.HereAPIKey), nil
	case config.ProviderMapbox:
		return NewMapboxClient(cfg.MapboxToken), nil
	case config.ProviderHybrid:
		// Mapbox for routes and ETAs, HERE for neighborhoods.
		return Combine(NewMapboxClient(cfg.MapboxToken), NewHereClient(cfg.HereAPIKey)), nil
	default:
		return nil, fmt.Errorf("unknown geo provider %q", cfg.GeoProvider)
	}
}
