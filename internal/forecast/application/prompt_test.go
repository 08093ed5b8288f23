package application

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	telemetryapp "campus-pulse/internal/telemetry/application"
)

func TestRenderPrompt_Golden(t *testing.T) {
	kl := time.FixedZone("MYT", 8*60*60)
	summary := telemetryapp.Summary{
		ParkingPct:      72.5,
		LibraryPct:      40,
		CanteenPct:      65.3,
		LiftPct:         50,
		LiftWaitMinutes: 3.4,
		TrafficTiers:    "Mid Valley: heavy, KLCC: severe",
	}

	prompt, err := RenderPrompt(time.Date(2026, 3, 2, 8, 30, 0, 0, kl), summary)
	require.NoError(t, err)
	assert.Equal(t, SystemPrompt, prompt.System)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "prompt_weekday_morning", []byte(prompt.User))
}

func TestRenderPrompt_MidnightWrapAndWeekend(t *testing.T) {
	prompt, err := RenderPrompt(time.Date(2026, 3, 7, 23, 10, 0, 0, time.UTC), telemetryapp.Summary{TrafficTiers: "unknown"})
	require.NoError(t, err)
	assert.Contains(t, prompt.User, "- Current time: 23:00 (weekend)")
	assert.Contains(t, prompt.User, "- Next hour to predict: 0:00")
	assert.Contains(t, prompt.User, "- Day: Saturday")
	assert.Contains(t, prompt.User, "- Traffic levels to destinations: unknown")
	assert.False(t, strings.Contains(prompt.User, "<no value>"))
}

func TestRenderPrompt_ZeroTime(t *testing.T) {
	_, err := RenderPrompt(time.Time{}, telemetryapp.Summary{})
	assert.Error(t, err)
}
