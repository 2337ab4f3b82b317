package alert

import "go.uber.org/zap"

// TimeWindowEvaluator decides whether an instant falls inside a user's active
// alert windows. It is a pure read over the windows it is given: the
// whole-day/partial mutual exclusivity is enforced at write time by the
// subscription store, not re-validated here.
type TimeWindowEvaluator struct {
	logger *zap.Logger
}

func NewTimeWindowEvaluator(logger *zap.Logger) *TimeWindowEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeWindowEvaluator{logger: logger}
}

// IsActiveAt reports whether alerts are active at the given time of day.
//
// An active whole-day window always wins, irrespective of other windows.
// Otherwise any active partial window with Start <= at < End activates the
// instant; the interval is half-open so adjacent windows never overlap at
// their shared boundary. A state where both the whole-day window and a
// partial window are active violates the store's write invariant; the
// evaluator tolerates it, treats whole-day as dominant, and logs the
// inconsistency for reconciliation.
func (e *TimeWindowEvaluator) IsActiveAt(windows []TimingWindow, at TimeOfDay) bool {
	wholeDayActive := false
	partialActive := false
	covered := false

	for _, w := range windows {
		if !w.Active {
			continue
		}
		if w.IsWholeDay() {
			wholeDayActive = true
			continue
		}
		partialActive = true
		if at >= w.Start && at < w.End {
			covered = true
		}
	}

	if wholeDayActive {
		if partialActive {
			e.logger.Warn("timing window invariant violated: whole-day and partial windows both active",
				zap.String("user_id", userIDOf(windows)))
		}
		return true
	}
	return covered
}

func userIDOf(windows []TimingWindow) string {
	if len(windows) == 0 {
		return ""
	}
	return windows[0].UserID
}
