package alerts

import "time"

// Severity ranks how urgent an alert or forecast is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Valid returns true when the severity is supported.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Category tags what an alert is about; the dashboard picks its icon from it.
type Category string

const (
	CategoryTraffic Category = "traffic"
	CategoryLift    Category = "lift"
	CategoryParking Category = "parking"
	CategoryGeneral Category = "general"
)

// Valid returns true when the category is supported.
func (c Category) Valid() bool {
	switch c {
	case CategoryTraffic, CategoryLift, CategoryParking, CategoryGeneral:
		return true
	default:
		return false
	}
}

// AlertState is the banner shown for the current campus time. It is derived,
// never persisted.
type AlertState struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Category Category `json:"icon"`
}

// Rule pairs a time predicate with the alert it produces.
type Rule struct {
	Name  string
	Match func(t time.Time) bool
	State AlertState
}

// DefaultRules is evaluated top to bottom and the first match wins. The
// windows overlap on purpose: the lift window starts at 08:45 but rule
// "morning_traffic" already claims every minute of hour 8, so lift
// congestion only surfaces between 09:00 and 09:14.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "morning_traffic",
			Match: func(t time.Time) bool { return isWeekday(t) && hourIn(t, 7, 9) },
			State: AlertState{
				Message:  "Heavy traffic expected to nearby destinations in 30 mins",
				Severity: SeverityHigh,
				Category: CategoryTraffic,
			},
		},
		{
			Name:  "lunch_peak",
			Match: func(t time.Time) bool { return isWeekday(t) && hourIn(t, 12, 14) },
			State: AlertState{
				Message:  "Peak lunch hour - Long canteen queues expected",
				Severity: SeverityMedium,
				Category: CategoryGeneral,
			},
		},
		{
			Name:  "evening_rush",
			Match: func(t time.Time) bool { return isWeekday(t) && hourIn(t, 17, 19) },
			State: AlertState{
				Message:  "Evening rush - Severe traffic to city destinations",
				Severity: SeverityHigh,
				Category: CategoryTraffic,
			},
		},
		{
			Name:  "lift_congestion",
			Match: func(t time.Time) bool { return isWeekday(t) && minuteOfDayIn(t, 8*60+45, 9*60+15) },
			State: AlertState{
				Message:  "Lift congestion at main buildings - Expect 5+ min wait",
				Severity: SeverityHigh,
				Category: CategoryLift,
			},
		},
		{
			Name:  "limited_parking",
			Match: func(t time.Time) bool { return isWeekday(t) && hourIn(t, 9, 17) },
			State: AlertState{
				Message:  "Limited parking in Zone A - Try Zone B or C",
				Severity: SeverityMedium,
				Category: CategoryParking,
			},
		},
		{
			Name:  "weekend",
			Match: func(t time.Time) bool { return !isWeekday(t) },
			State: AlertState{
				Message:  "Weekend - Most facilities operating at reduced hours",
				Severity: SeverityLow,
				Category: CategoryGeneral,
			},
		},
	}
}

// NormalOperations is returned when no rule matches.
var NormalOperations = AlertState{
	Message:  "All systems operating normally",
	Severity: SeverityLow,
	Category: CategoryGeneral,
}

func isWeekday(t time.Time) bool {
	day := t.Weekday()
	return day >= time.Monday && day <= time.Friday
}

func hourIn(t time.Time, from, to int) bool {
	hour := t.Hour()
	return hour >= from && hour < to
}

func minuteOfDayIn(t time.Time, from, to int) bool {
	minute := t.Hour()*60 + t.Minute()
	return minute >= from && minute < to
}
