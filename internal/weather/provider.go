package weather

import "context"

// Provider abstracts a current-conditions source (e.g. OpenWeatherMap).
// Implementations must be safe for concurrent use; the engine issues one
// lookup per location report.
type Provider interface {
	Name() string
	CurrentCondition(ctx context.Context, lat, lon float64) (Observation, error)
}
