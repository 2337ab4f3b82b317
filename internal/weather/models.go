package weather

import (
	"strings"
	"time"
)

// Category is the coarse weather label users subscribe to. Categories are
// derived from raw OpenWeatherMap condition codes; subscriptions and observed
// conditions are compared at this granularity only.
type Category string

const (
	CategoryUnknown      Category = "unknown"
	CategoryClearSky     Category = "Clear Sky"
	CategoryCloudy       Category = "Cloudy"
	CategoryRainy        Category = "Rainy"
	CategoryThunderstorm Category = "Thunderstorm"
	CategoryStorm        Category = "Storm"
	CategoryFog          Category = "Fog"
	CategoryWindy        Category = "Windy"
	CategoryHail         Category = "Hail"
	CategoryCold         Category = "Cold"
	CategoryHot          Category = "Hot"
)

// Categories lists every subscribable category.
var Categories = []Category{
	CategoryClearSky,
	CategoryCloudy,
	CategoryRainy,
	CategoryThunderstorm,
	CategoryStorm,
	CategoryFog,
	CategoryWindy,
	CategoryHail,
	CategoryCold,
	CategoryHot,
}

// ParseCategory normalizes a user-supplied label to a known Category.
// Matching is case-insensitive; unrecognized labels map to CategoryUnknown.
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return CategoryUnknown
}

// Equal compares two categories case-insensitively.
func (c Category) Equal(other Category) bool {
	return strings.EqualFold(string(c), string(other))
}

// CategoryFromCode maps an OpenWeatherMap condition code to a Category.
func CategoryFromCode(code int) Category {
	switch {
	case code >= 200 && code <= 232:
		return CategoryThunderstorm
	case code >= 300 && code <= 531:
		return CategoryRainy
	case code == 771 || code == 781 || code == 901:
		return CategoryStorm
	case code >= 701 && code <= 762:
		return CategoryFog
	case code == 800:
		return CategoryClearSky
	case code >= 801 && code <= 804:
		return CategoryCloudy
	case code == 900:
		return CategoryWindy
	case code == 902:
		return CategoryHail
	case code == 903:
		return CategoryCold
	case code == 904:
		return CategoryHot
	default:
		return CategoryUnknown
	}
}

// Observation is a normalized current-conditions reading for a coordinate.
type Observation struct {
	Category   Category  `json:"category"`
	ObservedAt time.Time `json:"observed_at"`
}
