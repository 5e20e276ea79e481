// Package simulator emulates the sensor device: it generates vitals from a
// scenario and posts them to the service, following the controls the service
// returns.
package simulator

import (
	"math"
	"math/rand"
	"sync"

	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/scenario"
)

// Generator produces raw samples from a scenario
type Generator struct {
	engine  *scenario.Engine
	rng     *rand.Rand
	signals map[string]SignalGenerator
	mu      sync.Mutex
}

// NewGenerator creates a generator. The same seed and scenario timing give
// the same samples.
func NewGenerator(engine *scenario.Engine, seed int64) *Generator {
	return &Generator{
		engine:  engine,
		rng:     rand.New(rand.NewSource(seed)),
		signals: GetAllSignals(),
	}
}

// Next generates the sample for the current scenario time.
func (g *Generator) Next() models.RawSample {
	g.mu.Lock()
	defer g.mu.Unlock()

	elapsed := g.engine.GetElapsed().Seconds()
	ctx := NewCorrelationContext()

	// Fixed order keeps the rng sequence reproducible.
	for _, name := range []string{
		scenario.SignalBPM,
		scenario.SignalHRV,
		scenario.SignalSpO2,
		scenario.SignalRespiration,
	} {
		config := g.engine.GetSignalConfig(name)
		if config == nil {
			config = &scenario.SignalConfig{}
		}
		ctx.Set(name, g.signals[name](g.rng, config, elapsed))
	}

	ctx.ApplyCorrelations()

	bpm, _ := ctx.Get(scenario.SignalBPM)
	hrv, _ := ctx.Get(scenario.SignalHRV)
	spo2, _ := ctx.Get(scenario.SignalSpO2)
	resp, _ := ctx.Get(scenario.SignalRespiration)

	sample := models.RawSample{
		BPM:         int(math.Round(bpm)),
		Respiration: int(math.Round(resp)),
		SpO2:        int(math.Round(spo2)),
		HRV:         math.Round(hrv*10) / 10,
	}

	if c := g.engine.GetSignalConfig(scenario.SignalContact); c != nil && c.Value == "off" {
		sample.BPM = 0
		sample.HRV = 0
	}
	return sample
}

// Reset restarts the scenario from its first phase.
func (g *Generator) Reset() {
	g.engine.Reset()
}

// Done reports whether a finite scenario has run its course.
func (g *Generator) Done() bool {
	return g.engine.IsComplete()
}
