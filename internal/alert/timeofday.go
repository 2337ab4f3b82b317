package alert

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a clock time expressed as seconds since midnight, independent
// of date. The wire format is "HH:MM:SS", as produced by the mobile client.
type TimeOfDay int

const (
	// Midnight is the start of the whole-day window.
	Midnight TimeOfDay = 0
	// EndOfDay is the end of the whole-day window, 23:59:59.
	EndOfDay TimeOfDay = 23*3600 + 59*60 + 59
)

// ParseTimeOfDay parses a "HH:MM:SS" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%2d:%2d:%2d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid time of day %q: out of range", s)
	}
	return TimeOfDay(h*3600 + m*60 + sec), nil
}

// TimeOfDayFrom extracts the local time-of-day component of an instant.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)%3600/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
