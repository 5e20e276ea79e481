package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/recorder"
	"github.com/synheart/synheart-stress/internal/simulator"
)

var (
	replayIn    string
	replaySpeed float64
	replayLoop  bool
	replayURL   string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-post a recorded session to a service",
	Long: `Replays the vitals of a session recorded with 'serve --record', posting
each recorded reading to /predict with its original timing.

Examples:
  synheart-stress replay --in session.ndjson
  synheart-stress replay --in session.ndjson --speed 4 --loop --url http://127.0.0.1:5001`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayIn, "in", "", "Input file to replay (required)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayLoop, "loop", false, "Loop playback continuously")
	replayCmd.Flags().StringVar(&replayURL, "url", "http://127.0.0.1:5000", "Service base URL")
	replayCmd.MarkFlagRequired("in")
}

func runReplay(cmd *cobra.Command, args []string) error {
	rep := recorder.NewReplayer(replayIn, replaySpeed, replayLoop)

	count, err := rep.CountReadings()
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}
	first, err := rep.GetFirstReading()
	if err != nil {
		return fmt.Errorf("failed to read first reading: %w", err)
	}

	logger, err := newCLILogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := withSignals(func() {
		logger.Info("received interrupt signal, stopping replay")
	})
	defer cancel()

	client := simulator.NewClient(replayURL, "replay-"+uuid.NewString(), 5*time.Second)

	if !globalOpts.Quiet {
		fmt.Fprintf(os.Stderr, "Replay Session Started\n\n")
		fmt.Fprintf(os.Stderr, "File:         %s\n", replayIn)
		fmt.Fprintf(os.Stderr, "Readings:     %d\n", count)
		fmt.Fprintf(os.Stderr, "Recorded at:  %s\n", formatUnix(first.LastUpdated))
		fmt.Fprintf(os.Stderr, "Speed:        %.1fx\n", replaySpeed)
		fmt.Fprintf(os.Stderr, "Loop:         %v\n", replayLoop)
		fmt.Fprintf(os.Stderr, "Service:      %s\n\n", replayURL)
	}

	snaps := make(chan models.Snapshot, 100)
	posted, failed := 0, 0
	done := make(chan struct{})

	go func() {
		defer close(done)
		for snap := range snaps {
			reading, err := client.Predict(ctx, recorder.Sample(snap))
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				failed++
				logger.Warn("replay post failed", zap.String("reading_id", snap.ReadingID), zap.Error(err))
				continue
			}
			posted++
			if !globalOpts.Quiet {
				fmt.Fprintf(os.Stdout, "%s  recorded %-8s -> %s\n",
					formatUnix(snap.LastUpdated), snap.Stress, formatReading(reading))
			}
		}
	}()

	err = rep.Replay(ctx, snaps)
	close(snaps)
	<-done

	if err != nil && err != context.Canceled {
		return fmt.Errorf("replay error: %w", err)
	}

	logger.Info("replay complete", zap.Int("posted", posted), zap.Int("failed", failed))
	return nil
}
