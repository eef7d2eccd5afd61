package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"trackbot/backend/internal/models"

	log "github.com/sirupsen/logrus"
)

const (
	mapboxDirectionsURL = "https://api.mapbox.com/directions/v5/mapbox/driving"
	mapboxGeocodingURL  = "https://api.mapbox.com/geocoding/v5/mapbox.places"
)

// MapboxClient implements Gateway on top of the Mapbox directions v5 and geocoding v5 APIs.
type MapboxClient struct {
	accessToken   string
	directionsURL string
	geocodingURL  string
	httpClient    *http.Client
}

func NewMapboxClient(accessToken string) *MapboxClient {
	return &MapboxClient{
		accessToken:   accessToken,
		directionsURL: mapboxDirectionsURL,
		geocodingURL:  mapboxGeocodingURL,
		httpClient:    newHTTPClient(),
	}
}

type mapboxDirectionsResponse struct {
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

type mapboxFeature struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	PlaceType []string `json:"place_type"`
	Context   []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"context"`
}

type mapboxGeocodingResponse struct {
	Features []mapboxFeature `json:"features"`
}

func (c *MapboxClient) CalculateRoute(ctx context.Context, origin, destination models.Coordinates) (models.RouteSummary, error) {
	params := url.Values{}
	params.Set("geometries", "geojson")
	params.Set("overview", "simplified")
	params.Set("access_token", c.accessToken)

	endpoint := fmt.Sprintf("%s/%s;%s?%s", c.directionsURL, origin.LonLat(), destination.LonLat(), params.Encode())

	log.WithFields(log.Fields{"origin": origin.String(), "destination": destination.String()}).Debug("Calculating route with Mapbox")

	var body mapboxDirectionsResponse
	if err := getJSON(ctx, c.httpClient, endpoint, &body); err != nil {
		log.WithError(err).WithField("origin", origin.String()).Error("Mapbox directions request failed")
		return models.RouteSummary{}, fmt.Errorf("%w: mapbox: %w", ErrRouteUnavailable, err)
	}
	if len(body.Routes) == 0 {
		return models.RouteSummary{}, fmt.Errorf("%w: mapbox: %w", ErrRouteUnavailable, errors.New("no route found"))
	}

	route := body.Routes[0]
	return models.RouteSummary{
		LengthMeters:    math.Round(route.Distance),
		DurationSeconds: math.Round(route.Duration),
	}, nil
}

func (c *MapboxClient) ReverseGeocode(ctx context.Context, at models.Coordinates) (models.Place, error) {
	params := url.Values{}
	params.Set("types", "address,neighborhood,locality,place,district")
	params.Set("country", "mx")
	params.Set("language", "es")
	params.Set("access_token", c.accessToken)

	endpoint := fmt.Sprintf("%s/%s.json?%s", c.geocodingURL, at.LonLat(), params.Encode())

	var body mapboxGeocodingResponse
	if err := getJSON(ctx, c.httpClient, endpoint, &body); err != nil {
		log.WithError(err).WithField("coordinates", at.String()).Error("Mapbox reverse geocoding failed")
		return models.Place{}, fmt.Errorf("%w: mapbox: %w", ErrGeocodeUnavailable, err)
	}
	if len(body.Features) == 0 {
		return models.Place{Neighborhood: models.PlaceUnavailable, Municipality: models.PlaceUnavailable}, nil
	}

	return placeFromFeatures(body.Features), nil
}

// placeFromFeatures looks for the neighborhood and locality among the
// features, then in the first feature's context, and finally falls back to
// an address feature for the neighborhood.
func placeFromFeatures(features []mapboxFeature) models.Place {
	neighborhood, locality := "", ""

	for _, f := range features {
		if neighborhood == "" && slices.Contains(f.PlaceType, "neighborhood") {
			neighborhood = f.Text
		}
		if locality == "" && slices.Contains(f.PlaceType, "locality") {
			locality = f.Text
		}
	}

	for _, item := range features[0].Context {
		if neighborhood == "" && strings.HasPrefix(item.ID, "neighborhood.") {
			neighborhood = item.Text
		}
		if locality == "" && strings.HasPrefix(item.ID, "locality.") {
			locality = item.Text
		}
	}

	if neighborhood == "" {
		for _, f := range features {
			if slices.Contains(f.PlaceType, "address") {
				neighborhood = f.Text
				break
			}
		}
	}

	return models.Place{
		Neighborhood: strings.ToUpper(firstNonEmpty(neighborhood, "N/A")),
		Municipality: strings.ToUpper(firstNonEmpty(locality, "N/A")),
	}
}
