package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/s4584690/Pixel-Weather/internal/geo"
	"github.com/s4584690/Pixel-Weather/internal/weather"
)

// WeatherAlertSubscription subscribes a user to a coarse weather category.
// (UserID, Category) is unique per user.
type WeatherAlertSubscription struct {
	ID       uuid.UUID        `json:"id"`
	UserID   string           `json:"user_id"`
	Category weather.Category `json:"weather"`
}

// AreaAlertSubscription subscribes a user to a suburb. (UserID, SuburbID) is
// unique per user, and SuburbID must exist in the reference set at creation.
type AreaAlertSubscription struct {
	ID       uuid.UUID `json:"id"`
	UserID   string    `json:"user_id"`
	SuburbID string    `json:"suburb_id"`
}

// TimingWindow is an active-hours window for a user's alerts. Start < End
// structurally, except the distinguished whole-day window 00:00:00-23:59:59,
// which means "always active" and is mutually exclusive with any other active
// window for the same user. Every user owns exactly one whole-day window,
// created at signup; it can be deactivated but never deleted.
type TimingWindow struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"user_id"`
	Start  TimeOfDay `json:"start_time"`
	End    TimeOfDay `json:"end_time"`
	Active bool      `json:"is_active"`
}

// IsWholeDay reports whether the window is the distinguished whole-day window.
func (w TimingWindow) IsWholeDay() bool {
	return w.Start == Midnight && w.End == EndOfDay
}

// LocationReport is a single periodic device location, consumed once.
type LocationReport struct {
	UserID    string
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}

// NoMatchReason explains why an evaluation did not fire.
type NoMatchReason string

const (
	ReasonUnresolvedLocation   NoMatchReason = "unresolved_location"
	ReasonAreaNotSubscribed    NoMatchReason = "area_not_subscribed"
	ReasonWeatherNotSubscribed NoMatchReason = "weather_not_subscribed"
	ReasonOutsideTimingWindow  NoMatchReason = "outside_timing_window"
	ReasonWeatherUnavailable   NoMatchReason = "weather_unavailable"
)

// Match is a firing decision handed to the notification dispatcher.
type Match struct {
	UserID    string           `json:"user_id"`
	Suburb    geo.Suburb       `json:"suburb"`
	Category  weather.Category `json:"weather"`
	Timestamp time.Time        `json:"timestamp"`
}

// MatchResult is the outcome of one evaluation: either a Match or a reason
// why no alert fires. "No alert" is a normal outcome, not a fault.
type MatchResult struct {
	Matched bool          `json:"matched"`
	Reason  NoMatchReason `json:"reason,omitempty"`
	Match   *Match        `json:"match,omitempty"`
}

// NoMatch builds a negative result with the given reason.
func NoMatch(reason NoMatchReason) MatchResult {
	return MatchResult{Reason: reason}
}
