package simulator

import "github.com/synheart/synheart-stress/internal/scenario"

// CorrelationContext holds generated signal values for correlation
type CorrelationContext struct {
	values map[string]float64
}

// NewCorrelationContext creates a new correlation context
func NewCorrelationContext() *CorrelationContext {
	return &CorrelationContext{
		values: make(map[string]float64),
	}
}

// Set stores a signal value
func (c *CorrelationContext) Set(name string, value float64) {
	c.values[name] = value
}

// Get retrieves a signal value
func (c *CorrelationContext) Get(name string) (float64, bool) {
	val, ok := c.values[name]
	return val, ok
}

// ApplyCorrelations applies correlation rules between signals
func (c *CorrelationContext) ApplyCorrelations() {
	hr, ok := c.Get(scenario.SignalBPM)
	if !ok || hr <= 100 {
		return
	}

	// Elevated heart rate suppresses HRV
	if hrv, ok := c.Get(scenario.SignalHRV); ok {
		factor := 1.0 - (hr-100)*0.01
		if factor < 0.5 {
			factor = 0.5
		}
		c.Set(scenario.SignalHRV, hrv*factor)
	}

	// and quickens breathing.
	if resp, ok := c.Get(scenario.SignalRespiration); ok {
		c.Set(scenario.SignalRespiration, clamp(resp+(hr-100)*0.05, 6, 40))
	}
}
