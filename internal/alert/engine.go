package alert

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/s4584690/Pixel-Weather/internal/geo"
	"github.com/s4584690/Pixel-Weather/internal/observability"
	"github.com/s4584690/Pixel-Weather/internal/weather"
)

// SubscriptionReader is the engine's read-only view of the subscription store.
type SubscriptionReader interface {
	ListWeatherSubscriptions(ctx context.Context, userID string) ([]WeatherAlertSubscription, error)
	ListAreaSubscriptions(ctx context.Context, userID string) ([]AreaAlertSubscription, error)
	ListTimingWindows(ctx context.Context, userID string) ([]TimingWindow, error)
}

// SuburbResolver resolves a coordinate to its enclosing suburb.
type SuburbResolver interface {
	Resolve(lat, lon float64) (geo.Suburb, bool)
}

// Dispatcher accepts a firing decision. Delivery guarantees, retries and
// transport-level dedup belong to the dispatcher, not the engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, m Match) error
}

// Engine combines the geofence index, the subscription store, the weather
// provider and the time-window evaluator into a single firing decision per
// location report. It is stateless between calls: deduplication of repeat
// firings comes from the report cadence (one evaluation per report, every
// five minutes), not from internal suppression. Safe for concurrent use
// across users.
type Engine struct {
	subs       SubscriptionReader
	resolver   SuburbResolver
	conditions weather.Provider
	dispatcher Dispatcher
	evaluator  *TimeWindowEvaluator
	logger     *zap.Logger
	metrics    *observability.Metrics
}

func NewEngine(
	subs SubscriptionReader,
	resolver SuburbResolver,
	conditions weather.Provider,
	dispatcher Dispatcher,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		subs:       subs,
		resolver:   resolver,
		conditions: conditions,
		dispatcher: dispatcher,
		evaluator:  NewTimeWindowEvaluator(logger),
		logger:     logger,
		metrics:    metrics,
	}
}

// Evaluate runs one matching cycle for a location report. Unresolved
// locations and weather lookup failures produce NoMatch outcomes, not errors;
// an error is returned only when the subscription store itself fails.
// Matches are handed to the dispatcher fire-and-forget: dispatch failures are
// logged and counted but do not fail the evaluation.
func (e *Engine) Evaluate(ctx context.Context, report LocationReport) (MatchResult, error) {
	timer := e.metrics.EvaluationTimer()
	defer timer.ObserveDuration()

	suburb, ok := e.resolver.Resolve(report.Latitude, report.Longitude)
	if !ok {
		e.metrics.GeofenceResolutions.WithLabelValues("miss").Inc()
		return e.record(NoMatch(ReasonUnresolvedLocation)), nil
	}
	e.metrics.GeofenceResolutions.WithLabelValues("hit").Inc()

	obs, err := e.conditions.CurrentCondition(ctx, suburb.Latitude, suburb.Longitude)
	if err != nil || obs.Category == weather.CategoryUnknown {
		if err != nil {
			e.logger.Warn("weather lookup failed",
				zap.String("user_id", report.UserID),
				zap.String("suburb_id", suburb.ID),
				zap.Error(err))
		}
		return e.record(NoMatch(ReasonWeatherUnavailable)), nil
	}

	weatherSubs, err := e.subs.ListWeatherSubscriptions(ctx, report.UserID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("list weather subscriptions: %w", err)
	}
	areaSubs, err := e.subs.ListAreaSubscriptions(ctx, report.UserID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("list area subscriptions: %w", err)
	}
	windows, err := e.subs.ListTimingWindows(ctx, report.UserID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("list timing windows: %w", err)
	}

	now := clock.Now()
	result := e.evaluateObserved(weatherSubs, areaSubs, windows, suburb, obs.Category, now, report.UserID)

	if result.Matched {
		if err := e.dispatcher.Dispatch(ctx, *result.Match); err != nil {
			e.metrics.DispatchErrors.Inc()
			e.logger.Error("dispatch failed",
				zap.String("user_id", report.UserID),
				zap.String("suburb_id", suburb.ID),
				zap.Error(err))
		} else {
			e.metrics.Dispatches.Inc()
		}
	}
	return e.record(result), nil
}

// evaluateObserved is the pure decision ladder: same inputs always yield the
// same result.
func (e *Engine) evaluateObserved(
	weatherSubs []WeatherAlertSubscription,
	areaSubs []AreaAlertSubscription,
	windows []TimingWindow,
	suburb geo.Suburb,
	observed weather.Category,
	now time.Time,
	userID string,
) MatchResult {
	areaSubscribed := false
	for _, a := range areaSubs {
		if a.SuburbID == suburb.ID {
			areaSubscribed = true
			break
		}
	}
	if !areaSubscribed {
		return NoMatch(ReasonAreaNotSubscribed)
	}

	weatherSubscribed := false
	for _, s := range weatherSubs {
		if s.Category.Equal(observed) {
			weatherSubscribed = true
			break
		}
	}
	if !weatherSubscribed {
		return NoMatch(ReasonWeatherNotSubscribed)
	}

	if !e.evaluator.IsActiveAt(windows, TimeOfDayFrom(now)) {
		return NoMatch(ReasonOutsideTimingWindow)
	}

	return MatchResult{
		Matched: true,
		Match: &Match{
			UserID:    userID,
			Suburb:    suburb,
			Category:  observed,
			Timestamp: now,
		},
	}
}

func (e *Engine) record(r MatchResult) MatchResult {
	if r.Matched {
		e.metrics.Evaluations.WithLabelValues("match", "").Inc()
	} else {
		e.metrics.Evaluations.WithLabelValues("no_match", string(r.Reason)).Inc()
	}
	return r
}
