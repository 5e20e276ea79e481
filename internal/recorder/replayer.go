package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/synheart/synheart-stress/internal/models"
)

// Replayer reads a recording and re-emits its readings with their original
// spacing. Control-only changes share the reading id of the reading they
// modified and are skipped, so each ingested reading is emitted once.
type Replayer struct {
	filename     string
	speed        float64
	loop         bool
	readingCount int
	first        *models.Snapshot
	loaded       bool
}

// NewReplayer creates a new replayer
func NewReplayer(filename string, speed float64, loop bool) *Replayer {
	if speed <= 0 {
		speed = 1.0
	}
	return &Replayer{
		filename: filename,
		speed:    speed,
		loop:     loop,
	}
}

// ReadAll returns every snapshot in a recording.
func ReadAll(filename string) ([]models.Snapshot, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording file: %w", err)
	}
	defer file.Close()

	var snaps []models.Snapshot
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var snap models.Snapshot
		if err := json.Unmarshal(scanner.Bytes(), &snap); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot at line %d: %w", lineNum, err)
		}
		snaps = append(snaps, snap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return snaps, nil
}

// Readings filters snaps down to distinct ingested readings.
func Readings(snaps []models.Snapshot) []models.Snapshot {
	var out []models.Snapshot
	last := ""
	for _, s := range snaps {
		if s.ReadingID == "" || s.ReadingID == last {
			continue
		}
		last = s.ReadingID
		out = append(out, s)
	}
	return out
}

// loadMetadata reads the file once to cache count and first reading
func (r *Replayer) loadMetadata() error {
	if r.loaded {
		return nil
	}

	snaps, err := ReadAll(r.filename)
	if err != nil {
		return err
	}
	readings := Readings(snaps)
	r.readingCount = len(readings)
	if len(readings) > 0 {
		r.first = &readings[0]
	}

	r.loaded = true
	return nil
}

// Replay sends readings to output with timing
func (r *Replayer) Replay(ctx context.Context, output chan<- models.Snapshot) error {
	for {
		if err := r.replayOnce(ctx, output); err != nil {
			return err
		}

		if !r.loop {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

func (r *Replayer) replayOnce(ctx context.Context, output chan<- models.Snapshot) error {
	snaps, err := ReadAll(r.filename)
	if err != nil {
		return err
	}

	var lastUpdated float64
	for i, snap := range Readings(snaps) {
		if i > 0 {
			delay := secondsToDuration(snap.LastUpdated - lastUpdated)
			if r.speed != 1.0 {
				delay = time.Duration(float64(delay) / r.speed)
			}

			if delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}
		}
		lastUpdated = snap.LastUpdated

		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- snap:
		}
	}

	return nil
}

// CountReadings returns the number of distinct readings in the recording
func (r *Replayer) CountReadings() (int, error) {
	if err := r.loadMetadata(); err != nil {
		return 0, err
	}
	return r.readingCount, nil
}

// GetFirstReading returns the first reading in the recording
func (r *Replayer) GetFirstReading() (*models.Snapshot, error) {
	if err := r.loadMetadata(); err != nil {
		return nil, err
	}
	if r.first == nil {
		return nil, fmt.Errorf("recording contains no readings")
	}
	return r.first, nil
}

// Sample converts a recorded reading back into the vitals that produced it.
func Sample(snap models.Snapshot) models.RawSample {
	return models.RawSample{
		BPM:         snap.BPM,
		Respiration: snap.Respiration,
		SpO2:        snap.SpO2,
		HRV:         snap.HRV,
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
