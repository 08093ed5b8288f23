package application

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	alerts "campus-pulse/internal/alerts/domain"
	"campus-pulse/internal/observability/metrics"
)

const defaultTickInterval = time.Second

// Ticker re-evaluates the clock alert on a fixed cadence and keeps the last
// value for display. Each tick overwrites the previous alert.
type Ticker struct {
	engine   *alerts.Engine
	clock    alerts.Clock
	interval time.Duration
	logger   *zap.Logger
	current  atomic.Pointer[alerts.AlertState]
	lastRule atomic.Pointer[string]
}

// NewTicker constructs a Ticker and evaluates the first alert immediately.
func NewTicker(engine *alerts.Engine, clock alerts.Clock, interval time.Duration, logger *zap.Logger) (*Ticker, error) {
	if engine == nil {
		return nil, errors.New("alert ticker: nil engine")
	}
	if clock == nil {
		clock = alerts.SystemClock{}
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Ticker{engine: engine, clock: clock, interval: interval, logger: logger}
	t.Tick()
	return t, nil
}

// Start runs the tick loop until ctx is done.
func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick evaluates the alert for the clock's current time and stores it.
func (t *Ticker) Tick() alerts.AlertState {
	rule, state := t.engine.Evaluate(t.clock.Now())
	t.current.Store(&state)
	if previous := t.lastRule.Swap(&rule); previous == nil || *previous != rule {
		metrics.IncAlertRule(rule)
		t.logger.Info("clock alert changed",
			zap.String("rule", rule),
			zap.String("severity", string(state.Severity)),
			zap.String("icon", string(state.Category)),
		)
	}
	return state
}

// Current returns the last evaluated alert.
func (t *Ticker) Current() alerts.AlertState {
	if state := t.current.Load(); state != nil {
		return *state
	}
	return alerts.NormalOperations
}

// At evaluates the alert for an explicit instant without touching the stored value.
func (t *Ticker) At(ts time.Time) alerts.AlertState {
	return t.engine.AlertFor(ts)
}
