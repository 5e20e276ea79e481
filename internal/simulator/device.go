package simulator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/models"
)

// MinInterval is the shortest posting interval a device will honour.
const MinInterval = 100 * time.Millisecond

// DeviceConfig configures a simulated device.
type DeviceConfig struct {
	// Interval is used until the service returns its own send_interval.
	Interval time.Duration
	// MaxPosts stops the device after that many successful posts; zero runs
	// until the context ends.
	MaxPosts int
	// StopWhenComplete stops the device when a finite scenario finishes.
	StopWhenComplete bool
}

// DeviceStats counts what the device has done.
type DeviceStats struct {
	Posts          int
	Polls          int
	Errors         int
	Recalibrations int
}

// Device behaves like the sensor hardware. While active it posts a sample
// every interval. While deactivated it only polls /latest so it notices
// reactivation. A reading with recalibrate set rewinds the scenario.
type Device struct {
	client *Client
	gen    *Generator
	cfg    DeviceConfig
	logger *zap.Logger

	// OnReading is called with every reading the service returns.
	OnReading func(models.Reading)

	mu       sync.Mutex
	stats    DeviceStats
	interval time.Duration
	active   bool
}

// NewDevice creates a device posting samples from gen through client.
func NewDevice(client *Client, gen *Generator, cfg DeviceConfig, logger *zap.Logger) *Device {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Duration(models.DefaultSendInterval) * time.Millisecond
	}
	return &Device{
		client:   client,
		gen:      gen,
		cfg:      cfg,
		logger:   logger,
		interval: clampInterval(cfg.Interval),
		active:   true,
	}
}

// Run drives the device until ctx ends or a stop condition is reached.
func (d *Device) Run(ctx context.Context) error {
	d.logger.Info("device started",
		zap.String("device_id", d.client.DeviceID()),
		zap.Duration("interval", d.Interval()))

	for {
		if d.Active() {
			d.post(ctx)
		} else {
			d.poll(ctx)
		}

		if d.done() {
			d.logger.Info("device finished", zap.Int("posts", d.Stats().Posts))
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.Interval()):
		}
	}
}

func (d *Device) post(ctx context.Context) {
	sample := d.gen.Next()
	reading, err := d.client.Predict(ctx, sample)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		d.mu.Lock()
		d.stats.Errors++
		d.mu.Unlock()
		d.logger.Warn("post sample failed", zap.Error(err))
		return
	}

	d.mu.Lock()
	d.stats.Posts++
	d.mu.Unlock()

	d.logger.Debug("posted sample",
		zap.Int("bpm", sample.BPM),
		zap.Float64("hrv", sample.HRV),
		zap.String("stress", reading.Stress))

	d.apply(reading)
	if reading.Recalibrate {
		d.gen.Reset()
		d.mu.Lock()
		d.stats.Recalibrations++
		d.mu.Unlock()
		d.logger.Info("recalibrating", zap.String("reading_id", reading.ReadingID))
	}
	if d.OnReading != nil {
		d.OnReading(reading)
	}
}

func (d *Device) poll(ctx context.Context) {
	snap, err := d.client.Latest(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		d.mu.Lock()
		d.stats.Errors++
		d.mu.Unlock()
		d.logger.Warn("poll latest failed", zap.Error(err))
		return
	}

	d.mu.Lock()
	d.stats.Polls++
	d.mu.Unlock()
	d.apply(snap.Reading)
}

// apply adopts the controls carried by a reading.
func (d *Device) apply(r models.Reading) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r.SendInterval > 0 {
		next := clampInterval(time.Duration(r.SendInterval) * time.Millisecond)
		if next != d.interval {
			d.logger.Info("send interval changed", zap.Duration("interval", next))
		}
		d.interval = next
	}
	if r.IsSensorActive != d.active {
		d.logger.Info("sensor state changed", zap.Bool("active", r.IsSensorActive))
	}
	d.active = r.IsSensorActive
}

func (d *Device) done() bool {
	d.mu.Lock()
	posts := d.stats.Posts
	d.mu.Unlock()

	if d.cfg.MaxPosts > 0 && posts >= d.cfg.MaxPosts {
		return true
	}
	return d.cfg.StopWhenComplete && d.gen.Done()
}

// Interval returns the current posting interval.
func (d *Device) Interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interval
}

// Active reports whether the device is posting samples.
func (d *Device) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Stats returns a copy of the device counters.
func (d *Device) Stats() DeviceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func clampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	return d
}
