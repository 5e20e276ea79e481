package scenario

import (
	"sync"
	"time"
)

// Engine tracks progression through a scenario's phases. Scenario time runs
// at speed times the wall clock and restarts on Reset, which is how a device
// recalibration rewinds the simulated wearer to their baseline.
type Engine struct {
	scenario *Scenario
	now      func() time.Time
	speed    float64

	mu      sync.RWMutex
	started time.Time
	resets  int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithSpeed runs scenario time faster (>1) or slower (<1) than real time.
func WithSpeed(speed float64) EngineOption {
	return func(e *Engine) {
		if speed > 0 {
			e.speed = speed
		}
	}
}

// NewEngine starts s at its first phase.
func NewEngine(s *Scenario, opts ...EngineOption) *Engine {
	e := &Engine{scenario: s, now: time.Now, speed: 1}
	for _, opt := range opts {
		opt(e)
	}
	e.started = e.now()
	return e
}

// GetElapsed returns scenario time since the start or the last reset.
func (e *Engine) GetElapsed() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return time.Duration(float64(e.now().Sub(e.started)) * e.speed)
}

// GetCurrentPhase returns the active phase, or nil for a phaseless scenario.
func (e *Engine) GetCurrentPhase() *Phase {
	return e.scenario.getCurrentPhase(e.GetElapsed())
}

// GetSignalConfig returns the effective config for a signal right now.
func (e *Engine) GetSignalConfig(signalName string) *SignalConfig {
	return e.scenario.GetEffectiveConfig(signalName, e.GetElapsed())
}

// IsComplete reports whether a finite scenario has run past its duration.
func (e *Engine) IsComplete() bool {
	duration, unlimited := ParseDuration(e.scenario.Duration)
	if unlimited {
		return false
	}
	return e.GetElapsed() >= duration
}

func (e *Engine) GetScenario() *Scenario {
	return e.scenario
}

// Reset rewinds to the first phase.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = e.now()
	e.resets++
}

// Resets returns how many times the engine has been rewound.
func (e *Engine) Resets() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.resets
}
