package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"trackbot/backend/internal/models"

	log "github.com/sirupsen/logrus"
)

const (
	hereRouterURL     = "https://router.hereapi.com/v8/routes"
	hereRevGeocodeURL = "https://revgeocode.search.hereapi.com/v1/revgeocode"
)

// HereClient implements Gateway on top of the HERE routing v8 and revgeocode v1 APIs.
type HereClient struct {
	apiKey        string
	routerURL     string
	revGeocodeURL string
	httpClient    *http.Client
}

func NewHereClient(apiKey string) *HereClient {
	return &HereClient{
		apiKey:        apiKey,
		routerURL:     hereRouterURL,
		revGeocodeURL: hereRevGeocodeURL,
		httpClient:    newHTTPClient(),
	}
}

type hereRouteResponse struct {
	Routes []struct {
		Sections []struct {
			Summary struct {
				Length   float64 `json:"length"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"sections"`
	} `json:"routes"`
}

type hereRevGeocodeResponse struct {
	Items []struct {
		Address struct {
			District    string `json:"district"`
			Subdistrict string `json:"subdistrict"`
			City        string `json:"city"`
			County      string `json:"county"`
		} `json:"address"`
	} `json:"items"`
}

func (c *HereClient) CalculateRoute(ctx context.Context, origin, destination models.Coordinates) (models.RouteSummary, error) {
	params := url.Values{}
	params.Set("transportMode", "car")
	params.Set("origin", origin.String())
	params.Set("destination", destination.String())
	params.Set("return", "summary")
	params.Set("apiKey", c.apiKey)

	log.WithFields(log.Fields{"origin": origin.String(), "destination": destination.String()}).Debug("Calculating route with HERE")

	var body hereRouteResponse
	if err := getJSON(ctx, c.httpClient, c.routerURL+"?"+params.Encode(), &body); err != nil {
		log.WithError(err).WithField("origin", origin.String()).Error("HERE routing request failed")
		return models.RouteSummary{}, fmt.Errorf("%w: here: %w", ErrRouteUnavailable, err)
	}
	if len(body.Routes) == 0 || len(body.Routes[0].Sections) == 0 {
		return models.RouteSummary{}, fmt.Errorf("%w: here: %w", ErrRouteUnavailable, errors.New("no route found"))
	}

	summary := body.Routes[0].Sections[0].Summary
	return models.RouteSummary{LengthMeters: summary.Length, DurationSeconds: summary.Duration}, nil
}

func (c *HereClient) ReverseGeocode(ctx context.Context, at models.Coordinates) (models.Place, error) {
	params := url.Values{}
	params.Set("at", at.String())
	params.Set("lang", "es")
	params.Set("apiKey", c.apiKey)

	var body hereRevGeocodeResponse
	if err := getJSON(ctx, c.httpClient, c.revGeocodeURL+"?"+params.Encode(), &body); err != nil {
		log.WithError(err).WithField("coordinates", at.String()).Error("HERE reverse geocoding failed")
		return models.Place{}, fmt.Errorf("%w: here: %w", ErrGeocodeUnavailable, err)
	}
	if len(body.Items) == 0 {
		return models.Place{Neighborhood: models.PlaceUnavailable, Municipality: models.PlaceUnavailable}, nil
	}

	addr := body.Items[0].Address
	return models.Place{
		Neighborhood: strings.ToUpper(firstNonEmpty(addr.District, addr.Subdistrict, "N/A")),
		Municipality: strings.ToUpper(firstNonEmpty(addr.City, addr.County, "N/A")),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
