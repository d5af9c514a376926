package dashboard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormwatch/stormwatch/internal/alert"
	"github.com/stormwatch/stormwatch/internal/alert/alerttest"
	"github.com/stormwatch/stormwatch/internal/dashboard"
	"github.com/stormwatch/stormwatch/internal/favorites"
	"github.com/stormwatch/stormwatch/internal/weather"
)

// fakeWeather serves canned responses keyed by query string.
type fakeWeather struct {
	mu        sync.Mutex
	current   map[string]*weather.CurrentConditions
	forecasts map[string]*weather.Forecast
	queries   []string
}

func newFakeWeather() *fakeWeather {
	return &fakeWeather{
		current:   make(map[string]*weather.CurrentConditions),
		forecasts: make(map[string]*weather.Forecast),
	}
}

func (f *fakeWeather) add(query string, cur *weather.CurrentConditions, fc *weather.Forecast) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current[query] = cur
	f.forecasts[query] = fc
}

func (f *fakeWeather) GetCurrent(_ context.Context, q weather.Query) (*weather.CurrentConditions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q.String())
	cur, ok := f.current[q.String()]
	if !ok {
		return nil, weather.ErrNotFound
	}
	return cur, nil
}

func (f *fakeWeather) GetForecast(_ context.Context, q weather.Query) (*weather.Forecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc, ok := f.forecasts[q.String()]
	if !ok {
		return nil, weather.ErrNotFound
	}
	return fc, nil
}

func (f *fakeWeather) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Sunday noon UTC.
var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func current(city, country, main, desc string) *weather.CurrentConditions {
	return &weather.CurrentConditions{
		City:             city,
		CountryCode:      country,
		TemperatureC:     12.5,
		FeelsLikeC:       10.4,
		HumidityPct:      81,
		WindSpeedMps:     4.1,
		VisibilityMeters: 9000,
		Conditions:       []weather.Condition{{Main: main, Description: desc}},
	}
}

// series builds a 3-hourly series starting one interval after now.
func series(n int, mains ...string) weather.ForecastSeries {
	out := make(weather.ForecastSeries, n)
	for i := range out {
		main := "Clear"
		if i < len(mains) {
			main = mains[i]
		}
		out[i] = weather.ForecastPoint{
			Time:         now.Add(time.Duration(i+1) * 3 * time.Hour),
			TemperatureC: float64(i),
			Main:         main,
		}
	}
	return out
}

type harness struct {
	weather   *fakeWeather
	clock     *alerttest.Clock
	sink      *alerttest.Sink
	perms     *alerttest.Permissions
	favorites *favorites.Store
	scheduler *alert.Scheduler
	monitor   *alert.CurrentMonitor
	session   *dashboard.Session
}

func newHarness(t *testing.T, kv favorites.KV) *harness {
	t.Helper()
	if kv == nil {
		kv = favorites.NewMemoryKV()
	}

	h := &harness{
		weather:   newFakeWeather(),
		clock:     alerttest.NewClock(now),
		sink:      &alerttest.Sink{},
		perms:     alerttest.NewPermissions(alert.PermissionDefault, alert.PermissionGranted),
		favorites: favorites.NewStore(favorites.StoreConfig{KV: kv, Logger: zerolog.Nop()}),
	}
	h.scheduler = alert.NewScheduler(alert.SchedulerConfig{
		Sink:        h.sink,
		Clock:       h.clock,
		Permissions: h.perms,
		Logger:      zerolog.Nop(),
	})
	h.monitor = alert.NewCurrentMonitor(alert.CurrentMonitorConfig{
		Sink:   h.sink,
		Clock:  h.clock,
		Logger: zerolog.Nop(),
	})
	h.session = dashboard.NewSession(dashboard.Config{
		Weather:   h.weather,
		Favorites: h.favorites,
		Scheduler: h.scheduler,
		Monitor:   h.monitor,
		Clock:     h.clock,
		Logger:    zerolog.Nop(),
	})
	return h
}

func TestSession_SearchCity(t *testing.T) {
	h := newHarness(t, nil)
	cur := current("London", "GB", "Clouds", "overcast clouds")
	cur.TimezoneOffset = time.Hour
	h.weather.add("London", cur, &weather.Forecast{City: "London", Series: series(40)})

	view, err := h.session.SearchCity(context.Background(), "  London ")
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, "London, GB", view.Location)
	assert.Equal(t, 13, view.TemperatureC)
	assert.Equal(t, "overcast clouds", view.Description)
	assert.Equal(t, "10°C", view.FeelsLike)
	assert.Equal(t, "81%", view.Humidity)
	assert.Equal(t, "15 km/h", view.Wind)
	assert.Equal(t, "9.0 km", view.Visibility)
	assert.Equal(t, "Sunday, October 18, 2026", view.Date)
	assert.Equal(t, "UTC+01:00", view.TimeZone)
	assert.False(t, view.IsFavorite)
	require.Len(t, view.Daily, 4)
	assert.Equal(t, "8°C", view.Daily[0].Temperature)

	assert.Equal(t, []string{"London"}, h.weather.Queries())
	assert.Equal(t, []alert.Kind{alert.KindHideBanner}, h.sink.Kinds())
	assert.Equal(t, alert.StateIdle, h.scheduler.State())
}

func TestSession_EmptyCity(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.session.SearchCity(context.Background(), "   ")
	require.ErrorIs(t, err, dashboard.ErrEmptyCity)
	assert.Equal(t, dashboard.MessageEmptyCity, dashboard.UserMessage(err))

	assert.Empty(t, h.weather.Queries(), "no request for a blank query")
	assert.Empty(t, h.sink.Intents())
}

func TestSession_NotFoundKeepsPreviousView(t *testing.T) {
	h := newHarness(t, nil)
	h.weather.add("London", current("London", "GB", "Rain", "light rain"),
		&weather.Forecast{Series: series(2, "Thunderstorm")})

	_, err := h.session.SearchCity(context.Background(), "London")
	require.NoError(t, err)
	require.Equal(t, alert.StateArmed, h.scheduler.State())
	intents := len(h.sink.Intents())

	_, err = h.session.SearchCity(context.Background(), "Atlantis")
	require.ErrorIs(t, err, dashboard.ErrCityNotFound)
	assert.ErrorIs(t, err, weather.ErrNotFound)
	assert.Equal(t, dashboard.MessageNotFound, dashboard.UserMessage(err))

	view := h.session.Current()
	require.NotNil(t, view)
	assert.Equal(t, "London, GB", view.Location)

	assert.Len(t, h.sink.Intents(), intents, "failed search evaluates nothing")
	assert.Equal(t, alert.StateArmed, h.scheduler.State(), "failed search leaves the alarm armed")
}

func TestSession_ForecastFailureIsNotFound(t *testing.T) {
	h := newHarness(t, nil)
	h.weather.add("Nowhere", current("Nowhere", "XX", "Clear", "clear sky"), nil)
	h.weather.mu.Lock()
	delete(h.weather.forecasts, "Nowhere")
	h.weather.mu.Unlock()

	_, err := h.session.SearchCity(context.Background(), "Nowhere")
	require.ErrorIs(t, err, dashboard.ErrCityNotFound)
	assert.Nil(t, h.session.Current())
	assert.Empty(t, h.sink.Intents())
}

func TestSession_AlertsFromSearch(t *testing.T) {
	h := newHarness(t, nil)
	h.weather.add("Miami", current("Miami", "US", "Rain", "heavy rain"),
		&weather.Forecast{Series: series(8, "Thunderstorm")})

	_, err := h.session.SearchCity(context.Background(), "Miami")
	require.NoError(t, err)

	assert.Equal(t, 1, h.perms.Requests(), "permission requested before evaluation")
	assert.Equal(t, []alert.Kind{alert.KindShowBanner, alert.KindNotify}, h.sink.Kinds())

	pending := h.scheduler.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, now.Add(2*time.Hour), pending.FireAt)

	h.sink.Reset()
	h.clock.Advance(2 * time.Hour)

	assert.Equal(t, []alert.Kind{alert.KindShowBanner, alert.KindPlaySound, alert.KindNotify}, h.sink.Kinds())
	for _, in := range h.sink.Intents() {
		assert.Equal(t, alert.SourceUpcoming, in.Source)
		assert.Equal(t, "Thunderstorm expected in about an hour. Stay prepared!", in.Message)
	}
}

func TestSession_RepeatSearchDoesNotRenotify(t *testing.T) {
	h := newHarness(t, nil)
	h.weather.add("Oslo", current("Oslo", "NO", "Snow", "light snow"),
		&weather.Forecast{Series: series(8)})

	_, err := h.session.SearchCity(context.Background(), "Oslo")
	require.NoError(t, err)
	_, err = h.session.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, h.sink.Count(alert.KindShowBanner))
	assert.Equal(t, 1, h.sink.Count(alert.KindNotify))
	assert.Equal(t, "Snow", h.monitor.LastNotified())
}

func TestSession_NewSearchSupersedesAlarm(t *testing.T) {
	h := newHarness(t, nil)
	h.weather.add("Miami", current("Miami", "US", "Clear", "clear sky"),
		&weather.Forecast{Series: series(8, "Thunderstorm")})
	h.weather.add("Cairo", current("Cairo", "EG", "Clear", "clear sky"),
		&weather.Forecast{Series: series(8)})

	_, err := h.session.SearchCity(context.Background(), "Miami")
	require.NoError(t, err)
	require.Equal(t, alert.StateArmed, h.scheduler.State())

	_, err = h.session.SearchCity(context.Background(), "Cairo")
	require.NoError(t, err)
	assert.Equal(t, alert.StateIdle, h.scheduler.State())

	h.sink.Reset()
	h.clock.Advance(6 * time.Hour)
	assert.Empty(t, h.sink.Intents(), "superseded alarm never fires")
}

func TestSession_Start(t *testing.T) {
	kv := favorites.NewMemoryKVWithValues(map[string]string{
		favorites.DefaultKey: `["Paris","London"]`,
	})
	h := newHarness(t, kv)
	h.weather.add("London", current("London", "GB", "Clear", "clear sky"),
		&weather.Forecast{Series: series(8)})

	view, err := h.session.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "London", view.City)
	assert.True(t, view.IsFavorite)
	assert.Equal(t, []string{"Paris", "London"}, h.session.Favorites())
}

func TestSession_ToggleFavorite(t *testing.T) {
	h := newHarness(t, nil)
	h.weather.add("London", current("London", "GB", "Clear", "clear sky"),
		&weather.Forecast{Series: series(8)})

	_, err := h.session.SearchCity(context.Background(), "London")
	require.NoError(t, err)

	list, err := h.session.ToggleFavorite(context.Background(), "London")
	require.NoError(t, err)
	assert.Equal(t, []string{"London"}, list)
	assert.True(t, h.session.Current().IsFavorite)
	assert.True(t, h.session.IsFavorite("London"))
	assert.False(t, h.session.IsFavorite("london"))

	list, err = h.session.ToggleFavorite(context.Background(), "London")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, h.session.Current().IsFavorite)
}

func TestSession_RefreshWithoutSearchUsesDefaultCity(t *testing.T) {
	h := newHarness(t, nil)
	h.weather.add("London", current("London", "GB", "Clear", "clear sky"),
		&weather.Forecast{Series: series(8)})

	view, err := h.session.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "London", view.City)
}

func TestSession_SearchCoordinates(t *testing.T) {
	h := newHarness(t, nil)
	h.weather.add("48.8566,2.3522", current("Paris", "FR", "Clear", "clear sky"),
		&weather.Forecast{Series: series(8)})

	view, err := h.session.SearchCoordinates(context.Background(), 48.8566, 2.3522)
	require.NoError(t, err)
	assert.Equal(t, "Paris, FR", view.Location)

	// Refresh repeats the coordinate query.
	_, err = h.session.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"48.8566,2.3522", "48.8566,2.3522"}, h.weather.Queries())
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, dashboard.UserMessage(nil))
	assert.Equal(t, dashboard.MessageEmptyCity, dashboard.UserMessage(dashboard.ErrEmptyCity))
	assert.Equal(t, dashboard.MessageNotFound, dashboard.UserMessage(errors.New("boom")))
}
