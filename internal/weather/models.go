package weather

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Weather errors.
var (
	ErrNotFound            = errors.New("location not found")
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrEmptyQuery          = errors.New("empty location query")
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Query selects a location either by city name or by coordinates.
type Query struct {
	City        string
	Coordinates *Coordinates
}

// CityQuery builds a query by city name.
func CityQuery(city string) Query {
	return Query{City: strings.TrimSpace(city)}
}

// CoordinatesQuery builds a query by coordinates.
func CoordinatesQuery(lat, lon float64) Query {
	return Query{Coordinates: &Coordinates{Lat: lat, Lon: lon}}
}

// Validate checks that the query names exactly one usable location.
func (q Query) Validate() error {
	if q.Coordinates != nil {
		c := q.Coordinates
		if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			return ErrInvalidCoordinates
		}
		return nil
	}
	if strings.TrimSpace(q.City) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// String returns a human-readable form used in logs.
func (q Query) String() string {
	if q.Coordinates != nil {
		return fmt.Sprintf("%.4f,%.4f", q.Coordinates.Lat, q.Coordinates.Lon)
	}
	return q.City
}

// Condition is one entry of the provider's condition list.
type Condition struct {
	Main        string
	Description string
}

// CurrentConditions represents the current weather at a location.
type CurrentConditions struct {
	City        string
	CountryCode string
	Coordinates Coordinates

	TemperatureC float64
	FeelsLikeC   float64
	HumidityPct  float64

	WindSpeedMps     float64
	VisibilityMeters float64

	// Conditions as reported by the provider, primary first.
	Conditions []Condition

	// TimezoneOffset is the location's offset from UTC.
	TimezoneOffset time.Duration

	ObservedAt time.Time
	FetchedAt  time.Time
}

// Main returns the primary condition, or "" when none was reported.
func (c *CurrentConditions) Main() string {
	if len(c.Conditions) == 0 {
		return ""
	}
	return c.Conditions[0].Main
}

// Description returns the primary condition description.
func (c *CurrentConditions) Description() string {
	if len(c.Conditions) == 0 {
		return ""
	}
	return c.Conditions[0].Description
}

// WindSpeedKmh converts the wind speed to km/h.
func (c *CurrentConditions) WindSpeedKmh() float64 {
	return c.WindSpeedMps * 3.6
}

// ForecastPoint is a single forecast interval.
type ForecastPoint struct {
	Time         time.Time
	TemperatureC float64
	Main         string
	Description  string
}

// ForecastSeries is a chronological, earliest-first sequence of forecast
// points at a fixed interval (3 hours for OpenWeatherMap).
type ForecastSeries []ForecastPoint

// Head returns at most the first n points.
func (s ForecastSeries) Head(n int) ForecastSeries {
	if n < 0 {
		n = 0
	}
	if len(s) < n {
		return s
	}
	return s[:n]
}

// Forecast is the provider's forecast response for one location.
type Forecast struct {
	City           string
	CountryCode    string
	Coordinates    Coordinates
	TimezoneOffset time.Duration

	Series ForecastSeries

	FetchedAt time.Time
}
