package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/stormwatch/stormwatch/internal/condition"
	"github.com/stormwatch/stormwatch/internal/weather"
)

// Date layouts matching en-US long and short weekday formatting.
const (
	longDateLayout = "Monday, January 2, 2006"
	weekdayLayout  = "Mon"
)

// View is the rendered dashboard for one location.
type View struct {
	Query       string
	City        string
	CountryCode string
	Location    string // "London, GB"
	Coordinates weather.Coordinates
	TimeZone    string
	Date        string

	TemperatureC int
	Description  string
	Condition    string
	Category     condition.Category
	Icon         condition.Icon

	FeelsLike  string
	Humidity   string
	Wind       string
	Visibility string

	Daily []Day

	IsFavorite bool
	UpdatedAt  time.Time
}

// Day is one entry of the daily strip.
type Day struct {
	Weekday      string
	Date         time.Time
	TemperatureC int
	Temperature  string
	Condition    string
	Icon         condition.Icon
}

func buildView(q weather.Query, cur *weather.CurrentConditions, fc *weather.Forecast, loc *time.Location, now time.Time) *View {
	c := condition.Classify(cur.Main(), cur.Description())

	v := &View{
		Query:        q.String(),
		City:         cur.City,
		CountryCode:  cur.CountryCode,
		Location:     cur.City + ", " + cur.CountryCode,
		Coordinates:  cur.Coordinates,
		TimeZone:     loc.String(),
		Date:         now.In(loc).Format(longDateLayout),
		TemperatureC: round(cur.TemperatureC),
		Description:  cur.Description(),
		Condition:    cur.Main(),
		Category:     c.Category,
		Icon:         c.Icon,
		FeelsLike:    celsius(cur.FeelsLikeC),
		Humidity:     strconv.FormatFloat(cur.HumidityPct, 'f', -1, 64) + "%",
		Wind:         strconv.Itoa(round(cur.WindSpeedKmh())) + " km/h",
		Visibility:   fmt.Sprintf("%.1f km", cur.VisibilityMeters/1000),
		Daily:        []Day{},
		UpdatedAt:    now,
	}

	if fc != nil {
		for _, p := range fc.Series.Daily() {
			v.Daily = append(v.Daily, Day{
				Weekday:      p.Time.In(loc).Format(weekdayLayout),
				Date:         p.Time,
				TemperatureC: round(p.TemperatureC),
				Temperature:  celsius(p.TemperatureC),
				Condition:    p.Main,
				Icon:         condition.IconFor(p.Main, p.Description),
			})
		}
	}

	return v
}

// round rounds half up, so -2.5 becomes -2 and 2.5 becomes 3.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func celsius(x float64) string {
	return strconv.Itoa(round(x)) + "°C"
}
