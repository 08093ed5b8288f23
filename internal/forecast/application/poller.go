package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const defaultPollInterval = 5 * time.Minute

// Poller refreshes the forecast on a fixed interval.
type Poller struct {
	service  *Service
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller constructs a Poller.
func NewPoller(service *Service, interval time.Duration, logger *zap.Logger) (*Poller, error) {
	if service == nil {
		return nil, errors.New("forecast poller: nil service")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{service: service, interval: interval, logger: logger}, nil
}

// Start refreshes once, then on every interval until ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("forecast poller started", zap.Duration("interval", p.interval))
	p.service.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.service.Refresh(ctx)
		}
	}
}
