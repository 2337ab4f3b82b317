// Package dispatch hands firing decisions to the notification delivery
// service. Delivery itself (FCM/APNs fan-out, retries, transport dedup) is
// the consumer's responsibility; dispatchers here only publish the decision.
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/s4584690/Pixel-Weather/internal/alert"
)

// LogDispatcher writes matches to the log. Used in development and as the
// fallback when no broker is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, m alert.Match) error {
	d.logger.Info("alert match",
		zap.String("user_id", m.UserID),
		zap.String("suburb_id", m.Suburb.ID),
		zap.String("suburb_name", m.Suburb.Name),
		zap.String("weather", string(m.Category)),
		zap.Time("timestamp", m.Timestamp))
	return nil
}

func (d *LogDispatcher) Close() error { return nil }
