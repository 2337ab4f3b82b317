package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/s4584690/Pixel-Weather/internal/alert"
	"github.com/s4584690/Pixel-Weather/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store.
// Lookups of the per-user record take the outer lock briefly; mutations then
// serialize on the user's own mutex, keeping users independent of each other.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*userRecord
	suburbs SuburbChecker
}

type userRecord struct {
	mu      sync.Mutex
	weather []alert.WeatherAlertSubscription
	areas   []alert.AreaAlertSubscription
	windows []alert.TimingWindow
}

// NewMemoryStore creates an empty MemoryStore validating suburb references
// against the given checker.
func NewMemoryStore(suburbs SuburbChecker) *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*userRecord),
		suburbs: suburbs,
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; ok {
		return ErrUserExists
	}
	s.users[userID] = &userRecord{
		windows: []alert.TimingWindow{{
			ID:     uuid.New(),
			UserID: userID,
			Start:  alert.Midnight,
			End:    alert.EndOfDay,
			Active: true,
		}},
	}
	return nil
}

// user returns the record for userID, or nil when unregistered.
func (s *MemoryStore) user(userID string) *userRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID]
}

func (s *MemoryStore) ListWeatherSubscriptions(_ context.Context, userID string) ([]alert.WeatherAlertSubscription, error) {
	u := s.user(userID)
	if u == nil {
		return nil, nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]alert.WeatherAlertSubscription, len(u.weather))
	copy(out, u.weather)
	return out, nil
}

func (s *MemoryStore) AddWeatherSubscription(_ context.Context, userID string, category weather.Category) (alert.WeatherAlertSubscription, error) {
	u := s.user(userID)
	if u == nil {
		return alert.WeatherAlertSubscription{}, ErrNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, sub := range u.weather {
		if sub.Category.Equal(category) {
			return alert.WeatherAlertSubscription{}, ErrDuplicateSubscription
		}
	}
	sub := alert.WeatherAlertSubscription{ID: uuid.New(), UserID: userID, Category: category}
	u.weather = append(u.weather, sub)
	return sub, nil
}

func (s *MemoryStore) RemoveWeatherSubscription(_ context.Context, userID string, id uuid.UUID) error {
	u := s.user(userID)
	if u == nil {
		return ErrNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	for i, sub := range u.weather {
		if sub.ID == id {
			u.weather = append(u.weather[:i], u.weather[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListAreaSubscriptions(_ context.Context, userID string) ([]alert.AreaAlertSubscription, error) {
	u := s.user(userID)
	if u == nil {
		return nil, nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]alert.AreaAlertSubscription, len(u.areas))
	copy(out, u.areas)
	return out, nil
}

func (s *MemoryStore) AddAreaSubscription(_ context.Context, userID, suburbID string) (alert.AreaAlertSubscription, error) {
	u := s.user(userID)
	if u == nil {
		return alert.AreaAlertSubscription{}, ErrNotFound
	}
	if !s.suburbs.Exists(suburbID) {
		return alert.AreaAlertSubscription{}, ErrInvalidReference
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, sub := range u.areas {
		if sub.SuburbID == suburbID {
			return alert.AreaAlertSubscription{}, ErrDuplicateSubscription
		}
	}
	sub := alert.AreaAlertSubscription{ID: uuid.New(), UserID: userID, SuburbID: suburbID}
	u.areas = append(u.areas, sub)
	return sub, nil
}

func (s *MemoryStore) RemoveAreaSubscription(_ context.Context, userID string, id uuid.UUID) error {
	u := s.user(userID)
	if u == nil {
		return ErrNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	for i, sub := range u.areas {
		if sub.ID == id {
			u.areas = append(u.areas[:i], u.areas[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListTimingWindows(_ context.Context, userID string) ([]alert.TimingWindow, error) {
	u := s.user(userID)
	if u == nil {
		return nil, nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]alert.TimingWindow, len(u.windows))
	copy(out, u.windows)
	return out, nil
}

func (s *MemoryStore) AddTimingWindow(_ context.Context, userID string, start, end alert.TimeOfDay) (alert.TimingWindow, error) {
	u := s.user(userID)
	if u == nil {
		return alert.TimingWindow{}, ErrNotFound
	}
	// The whole-day window is created only at signup; this entry point always
	// enforces start < end strictly.
	if start >= end {
		return alert.TimingWindow{}, ErrInvalidRange
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, w := range u.windows {
		if w.Start == start && w.End == end {
			return alert.TimingWindow{}, ErrDuplicateSubscription
		}
	}
	w := alert.TimingWindow{ID: uuid.New(), UserID: userID, Start: start, End: end}
	u.windows = append(u.windows, w)
	return w, nil
}

func (s *MemoryStore) SetTimingWindowActive(_ context.Context, userID string, id uuid.UUID, active bool) error {
	u := s.user(userID)
	if u == nil {
		return ErrNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	target := -1
	for i, w := range u.windows {
		if w.ID == id {
			target = i
			break
		}
	}
	if target < 0 {
		return ErrNotFound
	}

	if active {
		if u.windows[target].IsWholeDay() {
			// Whole-day on: every other window off, in the same update.
			for i := range u.windows {
				u.windows[i].Active = i == target
			}
			return nil
		}
		// Partial on: whole-day off.
		for i := range u.windows {
			if u.windows[i].IsWholeDay() {
				u.windows[i].Active = false
			}
		}
	}
	u.windows[target].Active = active
	return nil
}

func (s *MemoryStore) RemoveTimingWindow(_ context.Context, userID string, id uuid.UUID) error {
	u := s.user(userID)
	if u == nil {
		return ErrNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	for i, w := range u.windows {
		if w.ID == id {
			if w.IsWholeDay() {
				return ErrForbidden
			}
			u.windows = append(u.windows[:i], u.windows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Close() error { return nil }
