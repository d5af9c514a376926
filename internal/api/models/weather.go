package models

// Weather is the dashboard view for one location.
type Weather struct {
	Query       string `json:"query"`
	Location    string `json:"location" jsonschema:"example=London, GB"`
	City        string `json:"city"`
	CountryCode string `json:"countryCode"`
	Point       Point  `json:"point"`
	TimeZone    string `json:"timeZone"`
	Date        string `json:"date" jsonschema:"example=Sunday, October 18, 2026"`

	Temperature int    `json:"temperature" jsonschema:"description=Rounded degrees Celsius"`
	Description string `json:"description"`
	Condition   string `json:"condition"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`

	FeelsLike  string `json:"feelsLike" jsonschema:"example=10°C"`
	Humidity   string `json:"humidity" jsonschema:"example=81%"`
	Wind       string `json:"wind" jsonschema:"example=15 km/h"`
	Visibility string `json:"visibility" jsonschema:"example=9.0 km"`

	Daily []DailyForecast `json:"daily"`

	IsFavorite bool      `json:"isFavorite"`
	UpdatedAt  Timestamp `json:"updatedAt"`
}

// DailyForecast is one entry of the daily strip.
type DailyForecast struct {
	Weekday     string    `json:"weekday" jsonschema:"example=Mon"`
	Date        Timestamp `json:"date"`
	Temperature int       `json:"temperature"`
	Condition   string    `json:"condition"`
	Icon        string    `json:"icon"`
}
