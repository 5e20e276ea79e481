// Package state holds the process-wide device state shared by the ingestion
// pipeline, control commands and polling clients.
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/validator"
)

// Controls are the control-side fields mirrored into every reading.
type Controls struct {
	DisplayMode    string
	IsSensorActive bool
	SendInterval   int
	Recalibrate    bool
}

// Options configure the initial control values.
type Options struct {
	DisplayMode    string
	IsSensorActive bool
	SendInterval   int
	// Feed, when set, receives a snapshot after every change. Sends never
	// block; a full feed drops the snapshot.
	Feed chan<- models.Snapshot
	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		DisplayMode:    models.DefaultDisplayMode,
		IsSensorActive: true,
		SendInterval:   models.DefaultSendInterval,
	}
}

// DeviceState is guarded by a single lock; every operation observes or
// replaces the whole record at once.
type DeviceState struct {
	mu       sync.RWMutex
	controls Controls
	latest   models.Reading
	feed     chan<- models.Snapshot
	now      func() time.Time
	dropped  atomic.Int64
}

// New creates the state with an idle reading that was never updated.
func New(opts Options) *DeviceState {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &DeviceState{
		controls: Controls{
			DisplayMode:    opts.DisplayMode,
			IsSensorActive: opts.IsSensorActive,
			SendInterval:   opts.SendInterval,
		},
		feed: opts.Feed,
		now:  opts.Now,
	}
	s.latest = validator.IdleReading()
	s.latest.DisplayMode = s.controls.DisplayMode
	s.latest.IsSensorActive = s.controls.IsSensorActive
	s.latest.SendInterval = s.controls.SendInterval
	return s
}

// Now returns the state's clock reading.
func (s *DeviceState) Now() time.Time {
	return s.now()
}

// Controls returns the current control values.
func (s *DeviceState) Controls() Controls {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controls
}

// Latest returns the cached reading without a heartbeat.
func (s *DeviceState) Latest() models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Snapshot returns the latest reading stamped with the current server time.
func (s *DeviceState) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.NewSnapshot(s.latest, s.now())
}

// UpdateReading replaces the latest reading wholesale. LastUpdated is never
// allowed to move backwards.
func (s *DeviceState) UpdateReading(r models.Reading) models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(r)
}

// Commit builds and stores the next reading in one critical section: build
// sees the current controls including the recalibration flag, the flag is
// cleared, and the result replaces the latest reading.
func (s *DeviceState) Commit(build func(c Controls, now time.Time) models.Reading) models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := build(s.controls, s.now())
	s.controls.Recalibrate = false
	return s.storeLocked(r)
}

// Skip clears the recalibration flag without storing a new reading. The
// cached reading is returned with Recalibrate reporting the cleared flag, so
// the caller still learns about a pending recalibration.
func (s *DeviceState) Skip() models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.latest
	r.Recalibrate = s.controls.Recalibrate
	s.controls.Recalibrate = false
	return r
}

// SetInterval sets the device posting interval in milliseconds.
func (s *DeviceState) SetInterval(ms int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.SendInterval = ms
	s.latest.SendInterval = ms
	s.publishLocked()
	return ms
}

// SetActive switches the sensor on or off. Deactivating also zeroes bpm and
// hrv in the cached reading; spo2 and respiration are left as they were.
func (s *DeviceState) SetActive(active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.IsSensorActive = active
	s.latest.IsSensorActive = active
	if !active {
		s.latest.BPM = 0
		s.latest.HRV = 0
	}
	s.publishLocked()
	return active
}

// SetDisplayMode sets the mode shown on the display device.
func (s *DeviceState) SetDisplayMode(mode string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.DisplayMode = mode
	s.latest.DisplayMode = mode
	s.publishLocked()
	return mode
}

// TriggerRecalibration raises the one-shot flag; the next ingestion of any
// disposition reports and clears it.
func (s *DeviceState) TriggerRecalibration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Recalibrate = true
}

// Dropped returns how many snapshots the feed could not accept.
func (s *DeviceState) Dropped() int64 {
	return s.dropped.Load()
}

func (s *DeviceState) storeLocked(r models.Reading) models.Reading {
	if r.LastUpdated < s.latest.LastUpdated {
		r.LastUpdated = s.latest.LastUpdated
	}
	s.latest = r
	s.publishLocked()
	return r
}

func (s *DeviceState) publishLocked() {
	if s.feed == nil {
		return
	}
	select {
	case s.feed <- models.NewSnapshot(s.latest, s.now()):
	default:
		s.dropped.Add(1)
	}
}
