package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	alerts "campus-pulse/internal/alerts/domain"
)

const (
	// MaxMessageRunes caps the forecast message length.
	MaxMessageRunes = 80
	// DegradedMessage is shown when no usable forecast could be produced.
	DegradedMessage = "AI prediction temporarily unavailable"
)

var (
	// ErrMalformedResponse indicates the reasoning service reply is not a valid forecast.
	ErrMalformedResponse = errors.New("forecast: malformed response")
	// ErrEmptyResponse indicates the reasoning service returned no content.
	ErrEmptyResponse = errors.New("forecast: empty response")
)

// Forecast is a next-hour prediction. It shares severity and icon
// vocabularies with the clock alert.
type Forecast struct {
	Message    string          `json:"message"`
	Severity   alerts.Severity `json:"severity"`
	Icon       alerts.Category `json:"icon"`
	Confidence float64         `json:"confidence"`
}

// Degraded returns the fixed fallback forecast.
func Degraded() Forecast {
	return Forecast{
		Message:    DegradedMessage,
		Severity:   alerts.SeverityLow,
		Icon:       alerts.CategoryGeneral,
		Confidence: 0,
	}
}

// Validate checks the forecast fields against their allowed ranges.
func (f Forecast) Validate() error {
	if strings.TrimSpace(f.Message) == "" {
		return fmt.Errorf("%w: message is empty", ErrMalformedResponse)
	}
	if !f.Severity.Valid() {
		return fmt.Errorf("%w: severity %q", ErrMalformedResponse, f.Severity)
	}
	if !f.Icon.Valid() {
		return fmt.Errorf("%w: icon %q", ErrMalformedResponse, f.Icon)
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of range", ErrMalformedResponse, f.Confidence)
	}
	return nil
}

type rawForecast struct {
	Message    *string  `json:"message"`
	Severity   *string  `json:"severity"`
	Icon       *string  `json:"icon"`
	Confidence *float64 `json:"confidence"`
}

// ParseResponse decodes a reasoning service reply into a Forecast. All four
// fields are required; the message is trimmed and cut to MaxMessageRunes.
func ParseResponse(text string) (Forecast, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Forecast{}, ErrEmptyResponse
	}
	var raw rawForecast
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Forecast{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	switch {
	case raw.Message == nil:
		return Forecast{}, fmt.Errorf("%w: missing message", ErrMalformedResponse)
	case raw.Severity == nil:
		return Forecast{}, fmt.Errorf("%w: missing severity", ErrMalformedResponse)
	case raw.Icon == nil:
		return Forecast{}, fmt.Errorf("%w: missing icon", ErrMalformedResponse)
	case raw.Confidence == nil:
		return Forecast{}, fmt.Errorf("%w: missing confidence", ErrMalformedResponse)
	}

	forecast := Forecast{
		Message:    truncateRunes(strings.TrimSpace(*raw.Message), MaxMessageRunes),
		Severity:   alerts.Severity(strings.TrimSpace(*raw.Severity)),
		Icon:       alerts.Category(strings.TrimSpace(*raw.Icon)),
		Confidence: *raw.Confidence,
	}
	if err := forecast.Validate(); err != nil {
		return Forecast{}, err
	}
	return forecast, nil
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

// Snapshot is the cached last forecast. Degraded distinguishes the fallback
// from a genuine zero-confidence answer.
type Snapshot struct {
	Forecast    Forecast  `json:"forecast"`
	Degraded    bool      `json:"degraded"`
	GeneratedAt time.Time `json:"generated_at"`
}

// LastValueStore keeps the most recent forecast snapshot.
type LastValueStore interface {
	// Load returns nil when nothing has been stored yet.
	Load(ctx context.Context) (*Snapshot, error)
	Store(ctx context.Context, snapshot Snapshot) error
}
