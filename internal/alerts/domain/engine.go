package alerts

import "time"

// Engine evaluates the ordered rule list against campus-local time.
type Engine struct {
	location *time.Location
	rules    []Rule
	fallback AlertState
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithRules replaces the default rule list. Order is preserved as given.
func WithRules(rules []Rule) EngineOption {
	return func(e *Engine) {
		if len(rules) > 0 {
			e.rules = append([]Rule(nil), rules...)
		}
	}
}

// NewEngine constructs an Engine for the campus location (UTC when nil).
func NewEngine(location *time.Location, opts ...EngineOption) *Engine {
	if location == nil {
		location = time.UTC
	}
	e := &Engine{location: location, rules: DefaultRules(), fallback: NormalOperations}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the campus location used for evaluation.
func (e *Engine) Location() *time.Location {
	return e.location
}

// AlertFor returns the alert for t. It depends on nothing but t.
func (e *Engine) AlertFor(t time.Time) AlertState {
	_, state := e.Evaluate(t)
	return state
}

// Evaluate returns the name of the matching rule ("" for the fallback) and its alert.
func (e *Engine) Evaluate(t time.Time) (string, AlertState) {
	local := t.In(e.location)
	for _, rule := range e.rules {
		if rule.Match != nil && rule.Match(local) {
			return rule.Name, rule.State
		}
	}
	return "", e.fallback
}
