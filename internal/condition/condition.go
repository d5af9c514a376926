// Package condition classifies OpenWeatherMap condition strings into display
// categories, icons and a severity flag.
package condition

import "strings"

// Category is the display category of a weather condition.
type Category string

const (
	CategoryClear        Category = "CLEAR"
	CategoryClouds       Category = "CLOUDS"
	CategoryRain         Category = "RAIN"
	CategoryDrizzle      Category = "DRIZZLE"
	CategoryThunderstorm Category = "THUNDERSTORM"
	CategorySnow         Category = "SNOW"
	CategoryAtmosphere   Category = "ATMOSPHERE" // Mist, Smoke, Haze, Dust, Fog, Sand, Ash
	CategoryWind         Category = "WIND"       // Squall, Tornado
	CategoryUnknown      Category = "UNKNOWN"
)

// Icon is a Font Awesome class string rendered by the dashboard page.
type Icon string

const (
	IconSun          Icon = "fas fa-sun"
	IconCloud        Icon = "fas fa-cloud"
	IconCloudSun     Icon = "fas fa-cloud-sun"
	IconCloudRain    Icon = "fas fa-cloud-rain"
	IconCloudShowers Icon = "fas fa-cloud-showers-heavy"
	IconBolt         Icon = "fas fa-bolt"
	IconSnowflake    Icon = "fas fa-snowflake"
	IconSmog         Icon = "fas fa-smog"
	IconWind         Icon = "fas fa-wind"

	// IconFallback is used for any condition not in the table.
	IconFallback = IconCloud
)

// Classification is the result of classifying a condition.
type Classification struct {
	Category Category
	Icon     Icon
	Severe   bool
}

type entry struct {
	category Category
	icon     Icon
	// variant replaces icon when the description contains marker.
	marker  string
	variant Icon
}

// table is keyed by the provider's "main" condition string.
var table = map[string]entry{
	"Clear":        {category: CategoryClear, icon: IconSun},
	"Clouds":       {category: CategoryClouds, icon: IconCloud, marker: "scattered", variant: IconCloudSun},
	"Rain":         {category: CategoryRain, icon: IconCloudShowers, marker: "light", variant: IconCloudRain},
	"Drizzle":      {category: CategoryDrizzle, icon: IconCloudRain},
	"Thunderstorm": {category: CategoryThunderstorm, icon: IconBolt},
	"Snow":         {category: CategorySnow, icon: IconSnowflake},
	"Mist":         {category: CategoryAtmosphere, icon: IconSmog},
	"Smoke":        {category: CategoryAtmosphere, icon: IconSmog},
	"Haze":         {category: CategoryAtmosphere, icon: IconSmog},
	"Dust":         {category: CategoryAtmosphere, icon: IconSmog},
	"Fog":          {category: CategoryAtmosphere, icon: IconSmog},
	"Sand":         {category: CategoryAtmosphere, icon: IconSmog},
	"Ash":          {category: CategoryAtmosphere, icon: IconSmog},
	"Squall":       {category: CategoryWind, icon: IconWind},
	"Tornado":      {category: CategoryWind, icon: IconWind},
}

// severeMarkers are matched as lower-case substrings of the main condition.
// "storm" already covers "thunderstorm"; both are listed to keep the set explicit.
var severeMarkers = []string{"rain", "storm", "snow", "thunderstorm"}

// soundCategories are the lower-cased main conditions that get an audible cue.
var soundCategories = map[string]bool{
	"storm":        true,
	"thunderstorm": true,
	"snow":         true,
}

// Classify maps a main condition and its description to a category, icon and
// severity flag. Unknown conditions fall back to IconFallback.
func Classify(main, description string) Classification {
	c := Classification{
		Category: CategoryUnknown,
		Icon:     IconFallback,
		Severe:   IsSevere(main),
	}

	e, ok := table[main]
	if !ok {
		return c
	}

	c.Category = e.category
	c.Icon = e.icon
	if e.marker != "" && strings.Contains(description, e.marker) {
		c.Icon = e.variant
	}
	return c
}

// IconFor returns only the icon for a condition.
func IconFor(main, description string) Icon {
	return Classify(main, description).Icon
}

// IsSevere reports whether main contains rain, storm, snow or thunderstorm,
// case-insensitively.
func IsSevere(main string) bool {
	lower := strings.ToLower(main)
	for _, m := range severeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// WantsSound reports whether an alert for main should play an audible cue.
func WantsSound(main string) bool {
	return soundCategories[strings.ToLower(main)]
}

// Icons returns the full icon table keyed by main condition, for metadata
// endpoints.
func Icons() map[string]Icon {
	out := make(map[string]Icon, len(table))
	for k, e := range table {
		out[k] = e.icon
	}
	return out
}

// SevereMarkers returns the substrings that make a condition severe.
func SevereMarkers() []string {
	return append([]string(nil), severeMarkers...)
}
