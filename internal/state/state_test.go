package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synheart/synheart-stress/internal/models"
)

func fixedClock(sec float64) func() time.Time {
	return func() time.Time {
		return time.Unix(0, int64(sec*float64(time.Second)))
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(DefaultOptions())

	c := s.Controls()
	assert.Equal(t, "STRESS", c.DisplayMode)
	assert.True(t, c.IsSensorActive)
	assert.Equal(t, 10000, c.SendInterval)
	assert.False(t, c.Recalibrate)

	r := s.Latest()
	assert.Equal(t, models.StressIdle, r.Stress)
	assert.Equal(t, "Place finger on sensor", r.Warning)
	assert.Zero(t, r.LastUpdated)
	assert.Equal(t, "STRESS", r.DisplayMode)
	assert.Equal(t, 10000, r.SendInterval)
}

func TestSnapshot_AddsServerNowWithoutMutating(t *testing.T) {
	opts := DefaultOptions()
	opts.Now = fixedClock(1234.5)
	s := New(opts)

	snap := s.Snapshot()
	assert.Equal(t, 1234.5, snap.ServerNow)
	assert.Zero(t, snap.LastUpdated)
	assert.Equal(t, s.Latest(), snap.Reading)
}

func TestSetDisplayMode_Idempotent(t *testing.T) {
	s := New(DefaultOptions())
	s.SetDisplayMode("STRESS")
	s.SetDisplayMode("STRESS")

	assert.Equal(t, "STRESS", s.Controls().DisplayMode)
	assert.Equal(t, "STRESS", s.Latest().DisplayMode)

	s.SetDisplayMode("HEART")
	assert.Equal(t, "HEART", s.Snapshot().DisplayMode)
}

func TestSetInterval_MirrorsIntoReading(t *testing.T) {
	s := New(DefaultOptions())
	assert.Equal(t, 2000, s.SetInterval(2000))
	assert.Equal(t, 2000, s.Controls().SendInterval)
	assert.Equal(t, 2000, s.Latest().SendInterval)
}

func TestSetActive_DeactivationZeroesHeartFields(t *testing.T) {
	s := New(DefaultOptions())
	s.UpdateReading(models.Reading{Stress: "Normal", BPM: 75, HRV: 50, SpO2: 98, Respiration: 16, IsSensorActive: true})

	s.SetActive(false)
	snap := s.Snapshot()
	assert.False(t, snap.IsSensorActive)
	assert.Zero(t, snap.BPM)
	assert.Zero(t, snap.HRV)
	assert.Equal(t, 98, snap.SpO2)
	assert.Equal(t, 16, snap.Respiration)

	s.SetActive(true)
	assert.True(t, s.Latest().IsSensorActive)
	assert.True(t, s.Controls().IsSensorActive)
}

func TestCommit_ReadsAndClearsRecalibration(t *testing.T) {
	s := New(DefaultOptions())
	s.TriggerRecalibration()

	build := func(c Controls, now time.Time) models.Reading {
		return models.Reading{Stress: "Normal", Recalibrate: c.Recalibrate}
	}

	first := s.Commit(build)
	assert.True(t, first.Recalibrate)
	assert.False(t, s.Controls().Recalibrate)

	second := s.Commit(build)
	assert.False(t, second.Recalibrate)
}

func TestSkip(t *testing.T) {
	s := New(DefaultOptions())
	stored := s.UpdateReading(models.Reading{Stress: "Low", BPM: 70, LastUpdated: 5})

	assert.False(t, s.Skip().Recalibrate)
	s.TriggerRecalibration()

	r := s.Skip()
	assert.True(t, r.Recalibrate)
	assert.Equal(t, "Low", r.Stress)
	assert.False(t, s.Skip().Recalibrate)

	assert.Equal(t, stored, s.Latest(), "skip never replaces the cached reading")
}

func TestUpdateReading_LastUpdatedNeverDecreases(t *testing.T) {
	s := New(DefaultOptions())
	s.UpdateReading(models.Reading{LastUpdated: 100})
	got := s.UpdateReading(models.Reading{LastUpdated: 90})
	assert.Equal(t, 100.0, got.LastUpdated)
	assert.Equal(t, 100.0, s.Latest().LastUpdated)

	got = s.UpdateReading(models.Reading{LastUpdated: 110})
	assert.Equal(t, 110.0, got.LastUpdated)
}

func TestFeed_PublishesChangesAndDropsWhenFull(t *testing.T) {
	feed := make(chan models.Snapshot, 2)
	opts := DefaultOptions()
	opts.Feed = feed
	s := New(opts)

	s.SetDisplayMode("HRV")
	s.SetInterval(5000)
	s.SetActive(false)

	require.Len(t, feed, 2)
	assert.Equal(t, "HRV", (<-feed).DisplayMode)
	assert.Equal(t, 5000, (<-feed).SendInterval)
	assert.Equal(t, int64(1), s.Dropped())
}

func TestConcurrentMutationsAreAtomic(t *testing.T) {
	s := New(DefaultOptions())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			s.Commit(func(c Controls, now time.Time) models.Reading {
				return models.Reading{Stress: "Normal", BPM: 70 + i, HRV: float64(70 + i), SendInterval: c.SendInterval}
			})
		}(i)
		go func() {
			defer wg.Done()
			s.SetInterval(3000)
		}()
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			// bpm and hrv are always written together
			if snap.BPM != int(snap.HRV) {
				t.Errorf("torn reading: bpm=%d hrv=%v", snap.BPM, snap.HRV)
			}
		}()
	}
	wg.Wait()
}
