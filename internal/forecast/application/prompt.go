package application

import (
	"bytes"
	"errors"
	"text/template"
	"time"

	forecast "campus-pulse/internal/forecast/domain"
	telemetryapp "campus-pulse/internal/telemetry/application"
)

// SystemPrompt frames the reasoning service as a JSON-only analyst.
const SystemPrompt = "You are a data analyst specializing in campus activity prediction. Always respond with valid JSON only."

const userPromptTemplate = `You are a campus activity predictor for a Malaysian university. Analyze current campus data and predict what will happen in the NEXT HOUR.

Current Context:
- Current time: {{.Hour}}:00 ({{.DayType}})
- Next hour to predict: {{.NextHour}}:00
- Day: {{.DayName}}

Current Campus Status:
- Parking occupancy: {{printf "%.1f" .ParkingPct}}%
- Library occupancy: {{printf "%.1f" .LibraryPct}}%
- Canteen occupancy: {{printf "%.1f" .CanteenPct}}%
- Lift occupancy: {{printf "%.1f" .LiftPct}}%
- Average lift wait time: {{printf "%.0f" .LiftWaitMinutes}} minutes
- Traffic levels to destinations: {{.TrafficTiers}}

Predict what will happen at {{.NextHour}}:00 (one hour from now). Consider:
1. Malaysian university patterns (classes typically 9am-5pm on weekdays)
2. Peak hours: 8-9am (arrival), 12-2pm (lunch), 5-6pm (departure)
3. Weekend vs weekday differences
4. Current trends showing acceleration or deceleration

Respond in EXACTLY this JSON format (no markdown):
{
  "message": "Brief specific prediction about what will happen at {{.NextHour}}:00",
  "severity": "high|medium|low",
  "icon": "traffic|lift|parking|general",
  "confidence": 0.0-1.0
}

Rules:
- Be specific about the NEXT hour ({{.NextHour}}:00), not current conditions
- If conditions will improve, use "low" severity
- If conditions will worsen significantly, use "high" severity
- Message should be under {{.MaxMessageChars}} characters
- Focus on the most impactful prediction`

var userPrompt = template.Must(template.New("forecast-prompt").Parse(userPromptTemplate))

// Prompt is the system and user message pair sent to the reasoning service.
type Prompt struct {
	System string
	User   string
}

type promptData struct {
	telemetryapp.Summary
	Hour            int
	NextHour        int
	DayType         string
	DayName         string
	MaxMessageChars int
}

// RenderPrompt builds the forecast request for campus-local time now.
func RenderPrompt(now time.Time, summary telemetryapp.Summary) (Prompt, error) {
	if now.IsZero() {
		return Prompt{}, errors.New("forecast prompt: zero time")
	}
	dayType := "weekend"
	if day := now.Weekday(); day >= time.Monday && day <= time.Friday {
		dayType = "weekday"
	}
	data := promptData{
		Summary:         summary,
		Hour:            now.Hour(),
		NextHour:        (now.Hour() + 1) % 24,
		DayType:         dayType,
		DayName:         now.Weekday().String(),
		MaxMessageChars: forecast.MaxMessageRunes,
	}
	var buf bytes.Buffer
	if err := userPrompt.Execute(&buf, data); err != nil {
		return Prompt{}, err
	}
	return Prompt{System: SystemPrompt, User: buf.String()}, nil
}
