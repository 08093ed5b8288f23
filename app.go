package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	alertapp "campus-pulse/internal/alerts/application"
	alerts "campus-pulse/internal/alerts/domain"
	"campus-pulse/internal/audit"
	commuteapp "campus-pulse/internal/commute/application"
	"campus-pulse/internal/commute/infrastructure/routing"
	"campus-pulse/internal/commute/notify"
	"campus-pulse/internal/config"
	forecastapp "campus-pulse/internal/forecast/application"
	forecast "campus-pulse/internal/forecast/domain"
	"campus-pulse/internal/forecast/infrastructure/cache"
	"campus-pulse/internal/forecast/infrastructure/openai"
	masterdatarepo "campus-pulse/internal/masterdata/infrastructure/postgres"
	"campus-pulse/internal/observability/logging"
	"campus-pulse/internal/observability/metrics"
	telemetryapp "campus-pulse/internal/telemetry/application"
	telemetrypostgres "campus-pulse/internal/telemetry/infrastructure/postgres"
)

const serviceName = "campus-pulse"

// app holds the wired components shared by the CLI commands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	location *time.Location
	clock    alerts.Clock

	db    *sql.DB
	redis *redis.Client

	commutes *telemetrypostgres.CommuteRepository
	anchors  *masterdatarepo.AnchorRepository
	places   *masterdatarepo.PlaceRepository
	audit    *audit.Repository

	ticker   *alertapp.Ticker
	forecast *forecastapp.Service
	syncJob  *commuteapp.Job
}

func newApp(cfg config.Config) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clock, err := alerts.NewOverrideClock(alerts.SystemClock{}, location, cfg.Alerts.OverrideDate, cfg.Alerts.OverrideTime)
	if err != nil {
		return nil, err
	}
	if clock.Active() {
		logger.Warn("campus clock override active",
			zap.String("date", cfg.Alerts.OverrideDate),
			zap.String("time", cfg.Alerts.OverrideTime),
		)
	}
	a := &app{cfg: cfg, logger: logger, location: location, clock: clock}

	a.ticker, err = alertapp.NewTicker(alerts.NewEngine(location), clock, cfg.Alerts.TickInterval, logger.Named("alerts"))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// openStore connects the database and builds everything that reads or writes it.
func (a *app) openStore(ctx context.Context) error {
	if a.cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL or PG_DSN is required")
	}
	db, err := sql.Open("pgx", a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("db ping: %w", err)
	}
	a.db = db
	metrics.Init(db, a.logger.Named("metrics"))

	a.places = masterdatarepo.NewPlaceRepository(db)
	a.anchors = masterdatarepo.NewAnchorRepository(db)
	a.commutes = telemetrypostgres.NewCommuteRepository(db)
	a.audit = audit.NewRepository(db)
	occupancy := telemetrypostgres.NewOccupancyRepository(db, telemetrypostgres.WithLiftLimit(a.cfg.Telemetry.LiftLimit))

	aggregator, err := telemetryapp.NewAggregator(occupancy, a.commutes, telemetryapp.WithCommuteLimit(a.cfg.Telemetry.CommuteLimit))
	if err != nil {
		return err
	}
	if err := a.buildForecast(aggregator); err != nil {
		return err
	}
	return a.buildSync()
}

func (a *app) buildForecast(summaries forecastapp.SummaryProvider) error {
	var generator forecastapp.Generator = unavailableGenerator{}
	if a.cfg.Forecast.APIKey != "" {
		client, err := openai.NewClient(openai.Config{
			BaseURL:     a.cfg.Forecast.BaseURL,
			APIKey:      a.cfg.Forecast.APIKey,
			Model:       a.cfg.Forecast.Model,
			Temperature: a.cfg.Forecast.Temperature,
			MaxTokens:   a.cfg.Forecast.MaxTokens,
			Timeout:     a.cfg.Forecast.Timeout,
		}, a.logger.Named("openai"))
		if err != nil {
			return err
		}
		generator = client
	} else {
		a.logger.Warn("OPENAI_API_KEY not set, forecasts will be degraded")
	}

	var store forecast.LastValueStore = cache.NewMemoryStore()
	if a.cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		opts := []cache.RedisOption{cache.WithTTL(a.cfg.Redis.TTL)}
		if a.cfg.Redis.Key != "" {
			opts = append(opts, cache.WithKey(a.cfg.Redis.Key))
		}
		redisStore, err := cache.NewRedisStore(a.redis, opts...)
		if err != nil {
			return err
		}
		store = redisStore
	}

	service, err := forecastapp.NewService(summaries, generator, store,
		forecastapp.WithClock(a.clock),
		forecastapp.WithLocation(a.location),
		forecastapp.WithRequestTimeout(a.cfg.Forecast.Timeout),
		forecastapp.WithLogger(a.logger.Named("forecast")),
	)
	if err != nil {
		return err
	}
	a.forecast = service
	return nil
}

func (a *app) buildSync() error {
	router, err := routing.NewClient(a.cfg.Routing.BaseURL, a.cfg.Routing.APIKey, a.cfg.Routing.Timeout, a.logger.Named("routing"))
	if err != nil {
		a.logger.Warn("commute sync disabled", zap.Error(err))
		return nil
	}
	opts := []commuteapp.Option{
		commuteapp.WithRequestDelay(a.cfg.Sync.RequestDelay),
		commuteapp.WithLogger(a.logger.Named("commute")),
	}
	if a.cfg.Sync.WebhookURL != "" {
		notifier, err := notify.NewWebhookNotifier(a.cfg.Sync.WebhookURL, a.cfg.Sync.WebhookTemplate)
		if err != nil {
			return err
		}
		opts = append(opts, commuteapp.WithNotifier(notifier))
	}
	job, err := commuteapp.NewJob(router, a.commutes, a.places, a.anchors, opts...)
	if err != nil {
		return err
	}
	a.syncJob = job
	return nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}

// ---- Adapters ----

var errGeneratorUnavailable = errors.New("forecast generator not configured")

// unavailableGenerator stands in when no API key is configured so every
// refresh degrades instead of failing startup.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, forecastapp.Prompt) (string, error) {
	return "", errGeneratorUnavailable
}
