package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"trackbot/backend/internal/config"
	"trackbot/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	origin      = models.Coordinates{Latitude: 19.40, Longitude: -99.10}
	destination = models.Coordinates{Latitude: 19.43, Longitude: -99.15}
)

func serveJSON(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hereAgainst(srv *httptest.Server) *HereClient {
	c := NewHereClient("here-key")
	c.routerURL = srv.URL + "/v8/routes"
	c.revGeocodeURL = srv.URL + "/v1/revgeocode"
	c.httpClient = srv.Client()
	return c
}

func mapboxAgainst(srv *httptest.Server) *MapboxClient {
	c := NewMapboxClient("pk.token")
	c.directionsURL = srv.URL + "/directions"
	c.geocodingURL = srv.URL + "/geocoding"
	c.httpClient = srv.Client()
	return c
}

func TestHereCalculateRoute(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"routes":[{"sections":[{"summary":{"length":10000,"duration":900}}]}]}`, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v8/routes", r.URL.Path)
		assert.Equal(t, "car", q.Get("transportMode"))
		assert.Equal(t, "19.4,-99.1", q.Get("origin"))
		assert.Equal(t, "19.43,-99.15", q.Get("destination"))
		assert.Equal(t, "summary", q.Get("return"))
		assert.Equal(t, "here-key", q.Get("apiKey"))
	})

	got, err := hereAgainst(srv).CalculateRoute(context.Background(), origin, destination)

	require.NoError(t, err)
	assert.Equal(t, models.RouteSummary{LengthMeters: 10000, DurationSeconds: 900}, got)
}

func TestHereCalculateRoute_NoRoutes(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"routes":[]}`, nil)

	_, err := hereAgainst(srv).CalculateRoute(context.Background(), origin, destination)

	assert.ErrorIs(t, err, ErrRouteUnavailable)
}

func TestHereCalculateRoute_HTTPError(t *testing.T) {
	srv := serveJSON(t, http.StatusUnauthorized, `{"error":"Unauthorized"}`, nil)

	_, err := hereAgainst(srv).CalculateRoute(context.Background(), origin, destination)

	assert.ErrorIs(t, err, ErrRouteUnavailable)
	assert.Contains(t, err.Error(), "401")
}

func TestHereReverseGeocode_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.Place
	}{
		{
			name: "district and city",
			body: `{"items":[{"address":{"district":"Roma Norte","city":"Cuauhtémoc"}}]}`,
			want: models.Place{Neighborhood: "ROMA NORTE", Municipality: "CUAUHTÉMOC"},
		},
		{
			name: "subdistrict and county",
			body: `{"items":[{"address":{"subdistrict":"Centro","county":"Toluca"}}]}`,
			want: models.Place{Neighborhood: "CENTRO", Municipality: "TOLUCA"},
		},
		{
			name: "missing fields",
			body: `{"items":[{"address":{}}]}`,
			want: models.Place{Neighborhood: "N/A", Municipality: "N/A"},
		},
		{
			name: "no items",
			body: `{"items":[]}`,
			want: models.Place{Neighborhood: models.PlaceUnavailable, Municipality: models.PlaceUnavailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveJSON(t, http.StatusOK, tt.body, func(r *http.Request) {
				assert.Equal(t, "19.4,-99.1", r.URL.Query().Get("at"))
				assert.Equal(t, "es", r.URL.Query().Get("lang"))
			})

			got, err := hereAgainst(srv).ReverseGeocode(context.Background(), origin)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHereReverseGeocode_Error(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `not json`, nil)

	_, err := hereAgainst(srv).ReverseGeocode(context.Background(), origin)

	assert.ErrorIs(t, err, ErrGeocodeUnavailable)
}

func TestMapboxCalculateRoute(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"routes":[{"distance":5000.4,"duration":599.6}]}`, func(r *http.Request) {
		assert.Equal(t, "/directions/-99.1,19.4;-99.15,19.43", r.URL.Path)
		assert.Equal(t, "pk.token", r.URL.Query().Get("access_token"))
		assert.Equal(t, "simplified", r.URL.Query().Get("overview"))
	})

	got, err := mapboxAgainst(srv).CalculateRoute(context.Background(), origin, destination)

	require.NoError(t, err)
	assert.Equal(t, models.RouteSummary{LengthMeters: 5000, DurationSeconds: 600}, got)
}

func TestMapboxCalculateRoute_NoRoutes(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"code":"NoRoute","routes":[]}`, nil)

	_, err := mapboxAgainst(srv).CalculateRoute(context.Background(), origin, destination)

	assert.ErrorIs(t, err, ErrRouteUnavailable)
}

func TestMapboxReverseGeocode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.Place
	}{
		{
			name: "feature types",
			body: `{"features":[
				{"text":"Calle 5","place_type":["address"]},
				{"text":"Del Valle","place_type":["neighborhood"]},
				{"text":"Benito Juárez","place_type":["locality"]}]}`,
			want: models.Place{Neighborhood: "DEL VALLE", Municipality: "BENITO JUÁREZ"},
		},
		{
			name: "context of first feature",
			body: `{"features":[{"text":"Calle 5","place_type":["address"],"context":[
				{"id":"neighborhood.123","text":"Narvarte"},
				{"id":"locality.456","text":"Benito Juárez"}]}]}`,
			want: models.Place{Neighborhood: "NARVARTE", Municipality: "BENITO JUÁREZ"},
		},
		{
			name: "address fallback",
			body: `{"features":[{"text":"Place","place_type":["place"]},{"text":"Insurgentes Sur","place_type":["address"]}]}`,
			want: models.Place{Neighborhood: "INSURGENTES SUR", Municipality: "N/A"},
		},
		{
			name: "no features",
			body: `{"features":[]}`,
			want: models.Place{Neighborhood: models.PlaceUnavailable, Municipality: models.PlaceUnavailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveJSON(t, http.StatusOK, tt.body, func(r *http.Request) {
				assert.Equal(t, "/geocoding/-99.1,19.4.json", r.URL.Path)
				assert.Equal(t, "mx", r.URL.Query().Get("country"))
			})

			got, err := mapboxAgainst(srv).ReverseGeocode(context.Background(), origin)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapboxReverseGeocode_Error(t *testing.T) {
	srv := serveJSON(t, http.StatusInternalServerError, `{}`, nil)

	_, err := mapboxAgainst(srv).ReverseGeocode(context.Background(), origin)

	assert.ErrorIs(t, err, ErrGeocodeUnavailable)
}

func TestNew_SelectsProvider(t *testing.T) {
	gw, err := New(&config.Config{GeoProvider: config.ProviderHere, HereAPIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &HereClient{}, gw)

	gw, err = New(&config.Config{GeoProvider: config.ProviderMapbox, MapboxToken: "t"})
	require.NoError(t, err)
	assert.IsType(t, &MapboxClient{}, gw)

	gw, err = New(&config.Config{GeoProvider: config.ProviderHybrid, HereAPIKey: "k", MapboxToken: "t"})
	require.NoError(t, err)
	hybrid, ok := gw.(composite)
	require.True(t, ok)
	assert.IsType(t, &MapboxClient{}, hybrid.Router)
	assert.IsType(t, &HereClient{}, hybrid.Geocoder)

	_, err = New(&config.Config{GeoProvider: "osm"})
	assert.Error(t, err)
}
