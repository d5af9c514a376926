package openweathermap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stormwatch/stormwatch/internal/provider/resilience"
	"github.com/stormwatch/stormwatch/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// DefaultRequestsPerMinute matches the free-tier call allowance.
	DefaultRequestsPerMinute = 60
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenWeatherMap API).
	BaseURL string

	// RequestsPerMinute caps outbound calls (optional, default 60).
	// Negative disables the limiter.
	RequestsPerMinute int

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger

	// Now stamps FetchedAt (optional, defaults to time.Now).
	Now func() time.Time
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
	httpClient *resilience.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	rpm := cfg.RequestsPerMinute
	if rpm == 0 {
		rpm = DefaultRequestsPerMinute
	}
	var limiter *rate.Limiter
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		limiter:    limiter,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetCurrent fetches current conditions by city name or coordinates.
func (c *Client) GetCurrent(ctx context.Context, q weather.Query) (*weather.CurrentConditions, error) {
	var resp currentWeatherResponse
	if err := c.get(ctx, "/weather", q, &resp); err != nil {
		return nil, err
	}
	return c.toCurrent(&resp), nil
}

// GetForecast fetches the 5-day, 3-hourly forecast by city name or coordinates.
func (c *Client) GetForecast(ctx context.Context, q weather.Query) (*weather.Forecast, error) {
	var resp forecastResponse
	if err := c.get(ctx, "/forecast", q, &resp); err != nil {
		return nil, err
	}
	return c.toForecast(&resp), nil
}

// get performs one metric-unit request. Any non-2xx status is reported as
// weather.ErrNotFound; the API answers unknown cities with 404 and the
// caller shows the same message for every rejection.
func (c *Client) get(ctx context.Context, path string, q weather.Query, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	params := url.Values{}
	if q.Coordinates != nil {
		params.Set("lat", strconv.FormatFloat(q.Coordinates.Lat, 'f', 6, 64))
		params.Set("lon", strconv.FormatFloat(q.Coordinates.Lon, 'f', 6, 64))
	} else {
		params.Set("q", q.City)
	}
	params.Set("units", "metric")
	params.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().
			Str("path", path).
			Str("query", q.String()).
			Int("status", resp.StatusCode).
			Msg("openweathermap rejected request")
		return fmt.Errorf("%w: status %d", weather.ErrNotFound, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) toCurrent(resp *currentWeatherResponse) *weather.CurrentConditions {
	cur := &weather.CurrentConditions{
		City:        resp.Name,
		CountryCode: resp.Sys.Country,
		Coordinates: weather.Coordinates{
			Lat: resp.Coord.Lat,
			Lon: resp.Coord.Lon,
		},
		TemperatureC:     resp.Main.Temp,
		FeelsLikeC:       resp.Main.FeelsLike,
		HumidityPct:      resp.Main.Humidity,
		WindSpeedMps:     resp.Wind.Speed,
		VisibilityMeters: float64(resp.Visibility),
		Conditions:       make([]weather.Condition, 0, len(resp.Weather)),
		TimezoneOffset:   time.Duration(resp.Timezone) * time.Second,
		ObservedAt:       time.Unix(resp.Dt, 0).UTC(),
		FetchedAt:        c.now(),
	}

	for _, w := range resp.Weather {
		cur.Conditions = append(cur.Conditions, weather.Condition{
			Main:        w.Main,
			Description: w.Description,
		})
	}

	return cur
}

func (c *Client) toForecast(resp *forecastResponse) *weather.Forecast {
	forecast := &weather.Forecast{
		City:        resp.City.Name,
		CountryCode: resp.City.Country,
		Coordinates: weather.Coordinates{
			Lat: resp.City.Coord.Lat,
			Lon: resp.City.Coord.Lon,
		},
		TimezoneOffset: time.Duration(resp.City.Timezone) * time.Second,
		Series:         make(weather.ForecastSeries, 0, len(resp.List)),
		FetchedAt:      c.now(),
	}

	for _, item := range resp.List {
		point := weather.ForecastPoint{
			Time:         time.Unix(item.Dt, 0).UTC(),
			TemperatureC: item.Main.Temp,
		}
		if len(item.Weather) > 0 {
			point.Main = item.Weather[0].Main
			point.Description = item.Weather[0].Description
		}
		forecast.Series = append(forecast.Series, point)
	}

	return forecast
}

// OpenWeatherMap API response structures.

type conditionEntry struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type currentWeatherResponse struct {
	Coord   coord            `json:"coord"`
	Weather []conditionEntry `json:"weather"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Timezone int64  `json:"timezone"`
	Dt       int64  `json:"dt"`
	Name     string `json:"name"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []conditionEntry `json:"weather"`
	} `json:"list"`
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Coord    coord  `json:"coord"`
		Timezone int64  `json:"timezone"`
	} `json:"city"`
}
