package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	alerthttp "campus-pulse/internal/alerts/interfaces/http"
	"campus-pulse/internal/auth"
	commuteapp "campus-pulse/internal/commute/application"
	commutehttp "campus-pulse/internal/commute/interfaces/http"
	forecastapp "campus-pulse/internal/forecast/application"
	forecasthttp "campus-pulse/internal/forecast/interfaces/http"
)

const shutdownTimeout = 10 * time.Second

// serve starts the background loops and blocks in the HTTP server until ctx is done.
func (a *app) serve(ctx context.Context) error {
	go a.ticker.Start(ctx)

	poller, err := forecastapp.NewPoller(a.forecast, a.cfg.Forecast.RefreshInterval, a.logger.Named("forecast"))
	if err != nil {
		return err
	}
	go poller.Start(ctx)

	if a.syncJob != nil {
		scheduler := commuteapp.NewScheduler(a.syncJob, a.cfg.Sync.Anchors, a.cfg.Sync.Interval, a.logger.Named("commute"))
		go scheduler.Start(ctx)
	}

	handler, err := a.routes()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", zap.String("addr", a.cfg.HTTPAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("http shutting down")
	return server.Shutdown(shutdownCtx)
}

func (a *app) routes() (http.Handler, error) {
	secret := []byte(a.cfg.JWTSecret)
	if len(secret) == 0 {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}

	alertHandler, err := alerthttp.NewHandler(a.ticker)
	if err != nil {
		return nil, err
	}
	var (
		forecastOpts []forecasthttp.HandlerOption
		syncOpts     []commutehttp.SyncHandlerOption
	)
	if a.audit != nil {
		forecastOpts = append(forecastOpts, forecasthttp.WithAuditLogger(a.audit))
		syncOpts = append(syncOpts, commutehttp.WithAuditLogger(a.audit))
	}

	forecastHandler, err := forecasthttp.NewHandler(a.forecast, forecastOpts...)
	if err != nil {
		return nil, err
	}
	reportHandler, err := commutehttp.NewReportHandler(a.commutes)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/alerts/current", alertHandler)
	mux.Handle("/api/v1/forecast", forecastHandler)
	mux.Handle("/api/v1/forecast/refresh", forecastHandler)
	mux.Handle("/api/v1/commute/records", reportHandler)
	mux.Handle("/api/v1/commute/report.xlsx", reportHandler)
	mux.Handle("/api/v1/commute/report.pdf", reportHandler)
	if a.syncJob != nil {
		syncHandler, err := commutehttp.NewSyncHandler(a.syncJob, secret, a.logger.Named("commute"), syncOpts...)
		if err != nil {
			return nil, err
		}
		mux.Handle(commutehttp.SyncPath, syncHandler)
		mux.Handle(commutehttp.SyncAliasPath, syncHandler)
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// The sync endpoint authenticates its own callers so it can answer with its own error bodies.
	policy := auth.NewDefaultPolicy(
		[]string{"/healthz", "/metrics", commutehttp.SyncAliasPath},
		[]string{"/functions/v1/"},
	)
	authMiddleware := auth.NewMiddleware(secret, policy)
	return loggingMiddleware(authMiddleware.Wrap(mux), a.logger.Named("http")), nil
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
