package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"trackbot/backend/internal/models"
)

// ErrMalformedCoordinates is returned when a "lat,lon" reply does not match the expected shape.
var ErrMalformedCoordinates = errors.New("coordenadas con formato no reconocido")

var coordinatePattern = regexp.MustCompile(`^-?\d+\.?\d*,-?\d+\.?\d*$`)

// CoordinateError describes a coordinate that parsed but is not a valid WGS84 value.
type CoordinateError struct {
	Field   string
	Value   float64
	Message string
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("%s: %s (valor: %.6f)", e.Field, e.Message, e.Value)
}

// ValidateLatitude checks lat is finite and within [-90, 90].
func ValidateLatitude(lat float64, fieldName string) error {
	if err := checkFinite(lat, fieldName); err != nil {
		return err
	}
	if lat < -90 || lat > 90 {
		return &CoordinateError{Field: fieldName, Value: lat, Message: "debe estar entre -90 y 90"}
	}
	return nil
}

// ValidateLongitude checks lon is finite and within [-180, 180].
func ValidateLongitude(lon float64, fieldName string) error {
	if err := checkFinite(lon, fieldName); err != nil {
		return err
	}
	if lon < -180 || lon > 180 {
		return &CoordinateError{Field: fieldName, Value: lon, Message: "debe estar entre -180 y 180"}
	}
	return nil
}

func checkFinite(v float64, fieldName string) error {
	if math.IsNaN(v) {
		return &CoordinateError{Field: fieldName, Value: v, Message: "valor NaN no permitido"}
	}
	if math.IsInf(v, 0) {
		return &CoordinateError{Field: fieldName, Value: v, Message: "valor infinito no permitido"}
	}
	return nil
}

// ValidateCoordinates validates both halves of a pair.
func ValidateCoordinates(c models.Coordinates) error {
	if err := ValidateLatitude(c.Latitude, "latitude"); err != nil {
		return err
	}
	return ValidateLongitude(c.Longitude, "longitude")
}

// ParseCoordinates parses a free-text "latitud,longitud" reply. Whitespace
// anywhere in the text is ignored. The result is range checked.
func ParseCoordinates(text string) (models.Coordinates, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	if !coordinatePattern.MatchString(compact) {
		return models.Coordinates{}, ErrMalformedCoordinates
	}

	parts := strings.SplitN(compact, ",", 2)
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %v", ErrMalformedCoordinates, err)
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %v", ErrMalformedCoordinates, err)
	}

	c := models.Coordinates{Latitude: lat, Longitude: lon}
	if err := ValidateCoordinates(c); err != nil {
		return models.Coordinates{}, err
	}
	return c, nil
}
