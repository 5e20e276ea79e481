// Package pipeline is the single entry point for ingesting raw samples:
// validate, derive features, score, and commit the result to device state.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/classifier"
	"github.com/synheart/synheart-stress/internal/features"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/state"
	"github.com/synheart/synheart-stress/internal/validator"
)

// DefaultClassifyTimeout bounds a single scoring call.
const DefaultClassifyTimeout = 2 * time.Second

// Scorer classifies a raw feature vector.
type Scorer interface {
	Classify(ctx context.Context, features []float64) (classifier.Result, error)
}

// Config holds pipeline settings.
type Config struct {
	ClassifyTimeout time.Duration
}

// Stats counts ingestions by outcome.
type Stats struct {
	Total     int
	Idle      int
	Invalid   int
	Scored    int
	Fallbacks int
	Errors    int
}

// Pipeline wires the validator, feature deriver and scorer to device state.
type Pipeline struct {
	state   *state.DeviceState
	scorer  Scorer
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a pipeline. A nil logger discards output.
func New(st *state.DeviceState, scorer Scorer, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = DefaultClassifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		state:   st,
		scorer:  scorer,
		timeout: cfg.ClassifyTimeout,
		logger:  logger,
	}
}

// Ingest processes one sample and returns the reading now cached in device
// state. The recalibration flag is cleared exactly once per call whatever the
// outcome. A scoring failure leaves the cached reading unchanged and returns
// it alongside the error.
func (p *Pipeline) Ingest(ctx context.Context, sample models.RawSample) (models.Reading, error) {
	disp := validator.Classify(sample)

	switch disp {
	case validator.Idle:
		r := p.state.Commit(func(c state.Controls, now time.Time) models.Reading {
			r := validator.IdleReading()
			stamp(&r, c, now)
			return r
		})
		p.count(func(s *Stats) { s.Idle++ })
		p.logger.Debug("sample idle", zap.String("reading_id", r.ReadingID))
		return r, nil

	case validator.Invalid:
		r := p.state.Commit(func(c state.Controls, now time.Time) models.Reading {
			r := validator.InvalidReading(sample)
			stamp(&r, c, now)
			r.ServerNow = models.UnixSeconds(now)
			return r
		})
		p.count(func(s *Stats) { s.Invalid++ })
		p.logger.Debug("sample rejected",
			zap.String("reading_id", r.ReadingID),
			zap.Int("bpm", sample.BPM))
		return r, nil
	}

	vector := features.Vector(sample)

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	res, err := p.scorer.Classify(cctx, vector)
	cancel()
	if err != nil {
		r := p.state.Skip()
		p.count(func(s *Stats) { s.Errors++ })
		return r, fmt.Errorf("classify sample: %w", err)
	}

	if res.Fallback {
		p.logger.Warn("class id not recognised by label decoder",
			zap.Int("class_id", res.ClassID),
			zap.Float64s("predictions", res.Predictions))
	}

	r := p.state.Commit(func(c state.Controls, now time.Time) models.Reading {
		r := models.Reading{
			Stress:      res.Label,
			Warning:     res.Warning,
			BPM:         sample.BPM,
			HRV:         features.ClampHRV(sample.HRV),
			SpO2:        sample.SpO2,
			Respiration: sample.Respiration,
		}
		stamp(&r, c, now)
		return r
	})

	p.count(func(s *Stats) {
		s.Scored++
		if res.Fallback {
			s.Fallbacks++
		}
	})
	p.logger.Debug("sample scored",
		zap.String("reading_id", r.ReadingID),
		zap.String("stress", r.Stress),
		zap.Float64s("features", vector))
	return r, nil
}

// Stats returns the ingestion counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Pipeline) count(f func(*Stats)) {
	p.mu.Lock()
	p.stats.Total++
	f(&p.stats)
	p.mu.Unlock()
}

// stamp copies the control mirrors and timestamp into r.
func stamp(r *models.Reading, c state.Controls, now time.Time) {
	r.ReadingID = uuid.NewString()
	r.DisplayMode = c.DisplayMode
	r.IsSensorActive = c.IsSensorActive
	r.SendInterval = c.SendInterval
	r.Recalibrate = c.Recalibrate
	r.LastUpdated = models.UnixSeconds(now)
}
