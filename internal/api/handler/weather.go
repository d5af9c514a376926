// Package handler provides HTTP handlers for the StormWatch API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/stormwatch/stormwatch/internal/api/models"
	"github.com/stormwatch/stormwatch/internal/api/response"
	"github.com/stormwatch/stormwatch/internal/dashboard"
)

// Dashboard is the dashboard session as seen by the HTTP layer.
type Dashboard interface {
	SearchCity(ctx context.Context, city string) (*dashboard.View, error)
	SearchCoordinates(ctx context.Context, lat, lon float64) (*dashboard.View, error)
	Refresh(ctx context.Context) (*dashboard.View, error)
	Current() *dashboard.View
	ToggleFavorite(ctx context.Context, city string) ([]string, error)
	Favorites() []string
	IsFavorite(city string) bool
}

// WeatherHandler handles weather endpoints.
type WeatherHandler struct {
	dashboard Dashboard
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(d Dashboard) *WeatherHandler {
	return &WeatherHandler{dashboard: d}
}

// GetWeather handles GET /v1/weather?city= or ?lat=&lon=. Without
// parameters it returns the current view.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		view *dashboard.View
		err  error
	)
	switch {
	case q.Has("lat") || q.Has("lon"):
		lat, lon, fieldErrors := parseCoordinates(q.Get("lat"), q.Get("lon"))
		if len(fieldErrors) > 0 {
			response.BadRequest(w, r, "invalid coordinates", fieldErrors)
			return
		}
		view, err = h.dashboard.SearchCoordinates(r.Context(), lat, lon)
	case q.Has("city"):
		view, err = h.dashboard.SearchCity(r.Context(), q.Get("city"))
	default:
		view = h.dashboard.Current()
		if view == nil {
			response.NotFound(w, r, "No location has been searched yet")
			return
		}
	}

	if err != nil {
		writeSearchError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toWeather(view))
}

// RefreshWeather handles POST /v1/weather/refresh, repeating the last search.
func (h *WeatherHandler) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboard.Refresh(r.Context())
	if err != nil {
		writeSearchError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toWeather(view))
}

func writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, dashboard.ErrEmptyCity) {
		response.BadRequest(w, r, dashboard.UserMessage(err), []models.FieldError{
			{Field: "city", Message: "required", Code: "REQUIRED"},
		})
		return
	}
	response.CityNotFound(w, r, dashboard.UserMessage(err))
}

func parseCoordinates(latRaw, lonRaw string) (float64, float64, []models.FieldError) {
	var fieldErrors []models.FieldError

	lat, err := strconv.ParseFloat(latRaw, 64)
	switch {
	case err != nil:
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lat", Message: "must be a number", Code: "INVALID"})
	case lat < -90 || lat > 90:
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	}

	lon, err := strconv.ParseFloat(lonRaw, 64)
	switch {
	case err != nil:
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lon", Message: "must be a number", Code: "INVALID"})
	case lon < -180 || lon > 180:
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	}

	return lat, lon, fieldErrors
}

func toWeather(v *dashboard.View) models.Weather {
	out := models.Weather{
		Query:       v.Query,
		Location:    v.Location,
		City:        v.City,
		CountryCode: v.CountryCode,
		Point:       models.Point{Lat: v.Coordinates.Lat, Lon: v.Coordinates.Lon},
		TimeZone:    v.TimeZone,
		Date:        v.Date,
		Temperature: v.TemperatureC,
		Description: v.Description,
		Condition:   v.Condition,
		Category:    string(v.Category),
		Icon:        string(v.Icon),
		FeelsLike:   v.FeelsLike,
		Humidity:    v.Humidity,
		Wind:        v.Wind,
		Visibility:  v.Visibility,
		Daily:       make([]models.DailyForecast, 0, len(v.Daily)),
		IsFavorite:  v.IsFavorite,
		UpdatedAt:   models.Timestamp(v.UpdatedAt),
	}
	for _, d := range v.Daily {
		out.Daily = append(out.Daily, models.DailyForecast{
			Weekday:     d.Weekday,
			Date:        models.Timestamp(d.Date),
			Temperature: d.TemperatureC,
			Condition:   d.Condition,
			Icon:        string(d.Icon),
		})
	}
	return out
}
