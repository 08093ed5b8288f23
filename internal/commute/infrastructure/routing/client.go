package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	commute "campus-pulse/internal/commute/domain"
	"campus-pulse/internal/observability/metrics"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com"
	matrixPath     = "/maps/api/distancematrix/json"
)

// Client queries a Distance Matrix compatible routing provider.
type Client struct {
	http   *resty.Client
	apiKey string
	logger *zap.Logger
}

// NewClient constructs a Client. Retries stay off; the sync job owns pacing.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("routing: empty api key")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient, apiKey: apiKey, logger: logger}, nil
}

// Matrix implements commute.Router.
func (c *Client) Matrix(ctx context.Context, req commute.MatrixRequest) (*commute.MatrixResponse, error) {
	var response commute.MatrixResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"origins":        req.Origin.String(),
			"destinations":   req.Destination.String(),
			"departure_time": "now",
			"mode":           "driving",
			"traffic_model":  "best_guess",
			"key":            c.apiKey,
		}).
		SetResult(&response).
		SetError(&response).
		Get(matrixPath)
	if err != nil {
		metrics.IncRoutingRequest("")
		return nil, fmt.Errorf("routing: request: %w", err)
	}
	if resp.IsError() {
		if response.Status != "" {
			// The provider explained the failure; hand it to the caller like a 200 error status.
			metrics.IncRoutingRequest(response.Status)
			c.logger.Debug("routing matrix rejected",
				zap.Int("http_status", resp.StatusCode()),
				zap.String("status", response.Status),
			)
			return &response, nil
		}
		metrics.IncRoutingRequest(fmt.Sprintf("http_%d", resp.StatusCode()))
		return nil, fmt.Errorf("routing: http status %d", resp.StatusCode())
	}
	metrics.IncRoutingRequest(response.Status)
	c.logger.Debug("routing matrix",
		zap.String("destination", req.Destination.String()),
		zap.String("status", response.Status),
	)
	return &response, nil
}
