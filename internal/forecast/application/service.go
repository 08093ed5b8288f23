package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	alerts "campus-pulse/internal/alerts/domain"
	forecast "campus-pulse/internal/forecast/domain"
	"campus-pulse/internal/observability/metrics"
	telemetryapp "campus-pulse/internal/telemetry/application"
)

const defaultRequestTimeout = 30 * time.Second

// ErrRefreshInFlight is returned by TryRefresh while another manual refresh runs.
var ErrRefreshInFlight = errors.New("forecast: refresh already in flight")

// Generator sends a prompt to the reasoning service and returns its raw reply.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// SummaryProvider supplies the current telemetry digest.
type SummaryProvider interface {
	Summarize(ctx context.Context) (telemetryapp.Summary, error)
}

// Service produces next-hour forecasts. Refresh never fails: any problem
// yields forecast.Degraded().
type Service struct {
	summaries SummaryProvider
	generator Generator
	store     forecast.LastValueStore
	clock     alerts.Clock
	location  *time.Location
	timeout   time.Duration
	logger    *zap.Logger
	inFlight  atomic.Bool
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the system clock.
func WithClock(clock alerts.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the campus location used for the prompt's hour and day.
func WithLocation(location *time.Location) Option {
	return func(s *Service) {
		if location != nil {
			s.location = location
		}
	}
}

// WithRequestTimeout bounds one refresh, including the reasoning call.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a forecast service.
func NewService(summaries SummaryProvider, generator Generator, store forecast.LastValueStore, opts ...Option) (*Service, error) {
	if summaries == nil {
		return nil, errors.New("forecast service: nil summary provider")
	}
	if generator == nil {
		return nil, errors.New("forecast service: nil generator")
	}
	if store == nil {
		return nil, errors.New("forecast service: nil store")
	}
	s := &Service{
		summaries: summaries,
		generator: generator,
		store:     store,
		clock:     alerts.SystemClock{},
		location:  time.UTC,
		timeout:   defaultRequestTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Refresh produces a new forecast and caches it.
func (s *Service) Refresh(ctx context.Context) forecast.Forecast {
	return s.refresh(ctx).Forecast
}

// TryRefresh refreshes unless another TryRefresh is already running in this process.
func (s *Service) TryRefresh(ctx context.Context) (forecast.Snapshot, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return forecast.Snapshot{}, ErrRefreshInFlight
	}
	defer s.inFlight.Store(false)
	return s.refresh(ctx), nil
}

// Latest returns the cached snapshot, or nil when none has been produced.
func (s *Service) Latest(ctx context.Context) (*forecast.Snapshot, error) {
	return s.store.Load(ctx)
}

func (s *Service) refresh(ctx context.Context) forecast.Snapshot {
	started := time.Now()
	now := s.clock.Now().In(s.location)

	result, err := s.generate(ctx, now)
	snapshot := forecast.Snapshot{Forecast: result, GeneratedAt: now}
	outcome := metrics.ResultSuccess
	if err != nil {
		snapshot.Forecast = forecast.Degraded()
		snapshot.Degraded = true
		outcome = metrics.ResultDegraded
		s.logger.Warn("forecast degraded", zap.Error(err))
	} else {
		s.logger.Info("forecast refreshed",
			zap.String("severity", string(result.Severity)),
			zap.String("icon", string(result.Icon)),
			zap.Float64("confidence", result.Confidence),
		)
	}
	metrics.ObserveForecast(outcome, snapshot.Forecast.Confidence, time.Since(started))

	if err := s.store.Store(ctx, snapshot); err != nil {
		s.logger.Warn("forecast cache store failed", zap.Error(err))
	}
	return snapshot
}

func (s *Service) generate(ctx context.Context, now time.Time) (forecast.Forecast, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	summary, err := s.summaries.Summarize(ctx)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("summarize telemetry: %w", err)
	}
	prompt, err := RenderPrompt(now, summary)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("render prompt: %w", err)
	}
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("generate: %w", err)
	}
	return forecast.ParseResponse(text)
}
