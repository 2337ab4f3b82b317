package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/s4584690/Pixel-Weather/internal/geo"
	"github.com/s4584690/Pixel-Weather/internal/observability"
	"github.com/s4584690/Pixel-Weather/internal/weather"
)

var toowong = geo.Suburb{
	ID:        "suburb-toowong",
	Name:      "Toowong",
	Postcode:  "4066",
	Latitude:  -27.4858,
	Longitude: 152.9856,
}

type stubSubs struct {
	weather []WeatherAlertSubscription
	areas   []AreaAlertSubscription
	windows []TimingWindow
	err     error
}

func (s *stubSubs) ListWeatherSubscriptions(context.Context, string) ([]WeatherAlertSubscription, error) {
	return s.weather, s.err
}

func (s *stubSubs) ListAreaSubscriptions(context.Context, string) ([]AreaAlertSubscription, error) {
	return s.areas, s.err
}

func (s *stubSubs) ListTimingWindows(context.Context, string) ([]TimingWindow, error) {
	return s.windows, s.err
}

type stubResolver struct {
	suburb geo.Suburb
	ok     bool
}

func (r *stubResolver) Resolve(float64, float64) (geo.Suburb, bool) {
	return r.suburb, r.ok
}

type stubConditions struct {
	obs weather.Observation
	err error
}

func (c *stubConditions) Name() string { return "stub" }

func (c *stubConditions) CurrentCondition(context.Context, float64, float64) (weather.Observation, error) {
	return c.obs, c.err
}

type recordingDispatcher struct {
	matches []Match
	err     error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, m Match) error {
	d.matches = append(d.matches, m)
	return d.err
}

func subscribedEverything(t *testing.T) *stubSubs {
	t.Helper()
	return &stubSubs{
		weather: []WeatherAlertSubscription{{UserID: "u1", Category: weather.CategoryStorm}},
		areas:   []AreaAlertSubscription{{UserID: "u1", SuburbID: toowong.ID}},
		windows: []TimingWindow{wholeDayWindow(true)},
	}
}

func newTestEngine(subs SubscriptionReader, resolver SuburbResolver, conditions weather.Provider, dispatcher Dispatcher) *Engine {
	return NewEngine(subs, resolver, conditions, dispatcher, zap.NewNop(), observability.NewMetricsForTesting())
}

func freezeAt(t *testing.T, instant time.Time) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(instant))
	t.Cleanup(func() { SetClock(nil) })
}

func report() LocationReport {
	return LocationReport{
		UserID:    "u1",
		Latitude:  toowong.Latitude,
		Longitude: toowong.Longitude,
		Timestamp: time.Now().UTC(),
	}
}

func TestEvaluateMatch(t *testing.T) {
	freezeAt(t, time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC))

	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(
		subscribedEverything(t),
		&stubResolver{suburb: toowong, ok: true},
		&stubConditions{obs: weather.Observation{Category: weather.CategoryStorm}},
		dispatcher,
	)

	result, err := engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	require.True(t, result.Matched)
	require.NotNil(t, result.Match)
	assert.Equal(t, "u1", result.Match.UserID)
	assert.Equal(t, toowong, result.Match.Suburb)
	assert.Equal(t, weather.CategoryStorm, result.Match.Category)

	require.Len(t, dispatcher.matches, 1)
	assert.Equal(t, *result.Match, dispatcher.matches[0])
}

func TestEvaluateWeatherNotSubscribed(t *testing.T) {
	freezeAt(t, time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC))

	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(
		subscribedEverything(t),
		&stubResolver{suburb: toowong, ok: true},
		&stubConditions{obs: weather.Observation{Category: weather.CategoryClearSky}},
		dispatcher,
	)

	result, err := engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, ReasonWeatherNotSubscribed, result.Reason)
	assert.Empty(t, dispatcher.matches)
}

func TestEvaluateOutsideTimingWindow(t *testing.T) {
	subs := subscribedEverything(t)
	subs.windows = []TimingWindow{
		wholeDayWindow(false),
		partialWindow(t, "09:00:00", "17:00:00", true),
	}

	engine := newTestEngine(
		subs,
		&stubResolver{suburb: toowong, ok: true},
		&stubConditions{obs: weather.Observation{Category: weather.CategoryStorm}},
		&recordingDispatcher{},
	)

	freezeAt(t, time.Date(2026, time.March, 2, 20, 0, 0, 0, time.UTC))
	result, err := engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, ReasonOutsideTimingWindow, result.Reason)

	SetClock(clockwork.NewFakeClockAt(time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)))
	result, err = engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	assert.True(t, result.Matched)
}

func TestEvaluateUnresolvedLocation(t *testing.T) {
	engine := newTestEngine(
		subscribedEverything(t),
		&stubResolver{ok: false},
		&stubConditions{obs: weather.Observation{Category: weather.CategoryStorm}},
		&recordingDispatcher{},
	)

	result, err := engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, ReasonUnresolvedLocation, result.Reason)
}

func TestEvaluateAreaNotSubscribed(t *testing.T) {
	freezeAt(t, time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC))

	subs := subscribedEverything(t)
	subs.areas = []AreaAlertSubscription{{UserID: "u1", SuburbID: "suburb-st-lucia"}}

	engine := newTestEngine(
		subs,
		&stubResolver{suburb: toowong, ok: true},
		&stubConditions{obs: weather.Observation{Category: weather.CategoryStorm}},
		&recordingDispatcher{},
	)

	result, err := engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, ReasonAreaNotSubscribed, result.Reason)
}

func TestEvaluateWeatherUnavailable(t *testing.T) {
	engine := newTestEngine(
		subscribedEverything(t),
		&stubResolver{suburb: toowong, ok: true},
		&stubConditions{err: errors.New("provider down")},
		&recordingDispatcher{},
	)

	result, err := engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, ReasonWeatherUnavailable, result.Reason)
}

// An unknown category from the provider is indistinguishable from no data.
func TestEvaluateUnknownCategoryIsUnavailable(t *testing.T) {
	engine := newTestEngine(
		subscribedEverything(t),
		&stubResolver{suburb: toowong, ok: true},
		&stubConditions{obs: weather.Observation{Category: weather.CategoryUnknown}},
		&recordingDispatcher{},
	)

	result, err := engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	assert.Equal(t, ReasonWeatherUnavailable, result.Reason)
}

func TestEvaluateStoreFailureIsAnError(t *testing.T) {
	engine := newTestEngine(
		&stubSubs{err: errors.New("db gone")},
		&stubResolver{suburb: toowong, ok: true},
		&stubConditions{obs: weather.Observation{Category: weather.CategoryStorm}},
		&recordingDispatcher{},
	)

	_, err := engine.Evaluate(context.Background(), report())
	require.Error(t, err)
}

// Same inputs always yield the same result; the engine keeps no state
// between calls.
func TestEvaluateIsDeterministic(t *testing.T) {
	freezeAt(t, time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC))

	engine := newTestEngine(
		subscribedEverything(t),
		&stubResolver{suburb: toowong, ok: true},
		&stubConditions{obs: weather.Observation{Category: weather.CategoryStorm}},
		&recordingDispatcher{},
	)

	first, err := engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		next, err := engine.Evaluate(context.Background(), report())
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}

func TestEvaluateDispatchFailureDoesNotFailEvaluation(t *testing.T) {
	freezeAt(t, time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC))

	engine := newTestEngine(
		subscribedEverything(t),
		&stubResolver{suburb: toowong, ok: true},
		&stubConditions{obs: weather.Observation{Category: weather.CategoryStorm}},
		&recordingDispatcher{err: errors.New("broker unreachable")},
	)

	result, err := engine.Evaluate(context.Background(), report())
	require.NoError(t, err)
	assert.True(t, result.Matched)
}
