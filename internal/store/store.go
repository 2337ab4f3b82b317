package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/s4584690/Pixel-Weather/internal/alert"
	"github.com/s4584690/Pixel-Weather/internal/weather"
)

var (
	// ErrUserExists is returned when a signup repeats an existing user id.
	ErrUserExists = errors.New("user already registered")
	// ErrDuplicateSubscription is returned when a uniqueness invariant would break.
	ErrDuplicateSubscription = errors.New("subscription already exists")
	// ErrInvalidReference is returned when a suburb id is not in the reference set.
	ErrInvalidReference = errors.New("unknown suburb")
	// ErrInvalidRange is returned when a timing window has start >= end.
	ErrInvalidRange = errors.New("start time must be before end time")
	// ErrNotFound is returned when the target id does not belong to the user.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned on attempts to delete the whole-day window.
	ErrForbidden = errors.New("the whole-day window cannot be deleted")
)

// SuburbChecker validates suburb ids against the current reference snapshot.
// Implemented by geo.Index.
type SuburbChecker interface {
	Exists(id string) bool
}

// Store holds per-user alert preferences: weather subscriptions, area
// subscriptions, and timing windows. Mutations for the same user are
// serialized so the whole-day/partial exclusivity invariant cannot be
// interleaved away; operations for distinct users proceed in parallel.
type Store interface {
	// CreateUser registers a user and creates their whole-day timing window,
	// active. This is the only path that creates a whole-day window.
	CreateUser(ctx context.Context, userID string) error

	ListWeatherSubscriptions(ctx context.Context, userID string) ([]alert.WeatherAlertSubscription, error)
	AddWeatherSubscription(ctx context.Context, userID string, category weather.Category) (alert.WeatherAlertSubscription, error)
	RemoveWeatherSubscription(ctx context.Context, userID string, id uuid.UUID) error

	ListAreaSubscriptions(ctx context.Context, userID string) ([]alert.AreaAlertSubscription, error)
	AddAreaSubscription(ctx context.Context, userID, suburbID string) (alert.AreaAlertSubscription, error)
	RemoveAreaSubscription(ctx context.Context, userID string, id uuid.UUID) error

	ListTimingWindows(ctx context.Context, userID string) ([]alert.TimingWindow, error)
	AddTimingWindow(ctx context.Context, userID string, start, end alert.TimeOfDay) (alert.TimingWindow, error)
	// SetTimingWindowActive toggles a window. Activating the whole-day window
	// deactivates every other window in the same atomic update, and
	// activating a partial window deactivates the whole-day window.
	// Deactivation never force-activates anything else.
	SetTimingWindowActive(ctx context.Context, userID string, id uuid.UUID, active bool) error
	RemoveTimingWindow(ctx context.Context, userID string, id uuid.UUID) error

	Close() error
}
