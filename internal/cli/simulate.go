package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/scenario"
	"github.com/synheart/synheart-stress/internal/simulator"
)

var (
	simulateURL      string
	simulateScenario string
	simulateDuration string
	simulateInterval string
	simulateSpeed    float64
	simulateSeed     int64
	simulateCount    int
	simulateDeviceID string
	simulateTimeout  time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated sensor device against a service",
	Long: `Generates vitals from a scenario and posts them to /predict the way the
sensor hardware does. The device follows the send_interval returned by the
service, polls /latest while deactivated, and restarts its scenario when a
recalibration is requested.

Examples:
  synheart-stress simulate
  synheart-stress simulate --scenario stress_spike --interval 1s --speed 30
  synheart-stress simulate --url http://192.168.1.20:5000 --count 20`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateURL, "url", "http://127.0.0.1:5000", "Service base URL")
	simulateCmd.Flags().StringVar(&simulateScenario, "scenario", "baseline", "Scenario to run")
	simulateCmd.Flags().StringVar(&simulateDuration, "duration", "", "Override scenario duration (e.g., 5m, unlimited)")
	simulateCmd.Flags().StringVar(&simulateInterval, "interval", "", "Initial posting interval, e.g. 2s or 0.5hz (default: scenario's, then 10s)")
	simulateCmd.Flags().Float64Var(&simulateSpeed, "speed", 1.0, "Scenario time multiplier")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", time.Now().UnixNano(), "Random seed for deterministic output")
	simulateCmd.Flags().IntVar(&simulateCount, "count", 0, "Stop after this many posts (0 = run until the scenario ends)")
	simulateCmd.Flags().StringVar(&simulateDeviceID, "device-id", "", "Device id sent with every request (default: random)")
	simulateCmd.Flags().DurationVar(&simulateTimeout, "timeout", 5*time.Second, "Per-request timeout")
	simulateCmd.Flags().StringVar(&scenariosDir, "scenarios", "", "Directory with extra scenario YAML files")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	registry, err := loadScenarios()
	if err != nil {
		return err
	}

	scen, err := registry.Get(simulateScenario)
	if err != nil {
		return fmt.Errorf("failed to load scenario '%s': %w", simulateScenario, err)
	}
	if simulateDuration != "" {
		scen.Duration = simulateDuration
	}

	interval := scen.Interval(time.Duration(models.DefaultSendInterval) * time.Millisecond)
	if simulateInterval != "" {
		interval, err = parseInterval(simulateInterval)
		if err != nil {
			return fmt.Errorf("invalid interval: %w", err)
		}
	}

	logger, err := newCLILogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	deviceID := simulateDeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	engine := scenario.NewEngine(scen, scenario.WithSpeed(simulateSpeed))
	gen := simulator.NewGenerator(engine, simulateSeed)
	client := simulator.NewClient(simulateURL, deviceID, simulateTimeout)
	device := simulator.NewDevice(client, gen, simulator.DeviceConfig{
		Interval:         interval,
		MaxPosts:         simulateCount,
		StopWhenComplete: true,
	}, logger.Named("device"))

	if !globalOpts.Quiet {
		device.OnReading = func(r models.Reading) {
			fmt.Fprintf(os.Stdout, "%s  %s\n", time.Now().Format("15:04:05"), formatReading(r))
		}

		fmt.Fprintf(os.Stderr, "Synheart Device Simulator\n\n")
		fmt.Fprintf(os.Stderr, "Service:      %s\n", simulateURL)
		fmt.Fprintf(os.Stderr, "Scenario:     %s\n", scen.Name)
		fmt.Fprintf(os.Stderr, "Duration:     %s\n", scen.Duration)
		fmt.Fprintf(os.Stderr, "Speed:        %.1fx\n", simulateSpeed)
		fmt.Fprintf(os.Stderr, "Interval:     %s\n", device.Interval())
		fmt.Fprintf(os.Stderr, "Device:       %s\n", deviceID)
		fmt.Fprintf(os.Stderr, "Seed:         %d\n\n", simulateSeed)
	}

	ctx, cancel := withSignals(func() {
		logger.Info("received interrupt signal, stopping device")
	})
	defer cancel()

	if err := device.Run(ctx); err != nil {
		return fmt.Errorf("device error: %w", err)
	}

	stats := device.Stats()
	logger.Info("simulation finished",
		zap.Int("posts", stats.Posts),
		zap.Int("polls", stats.Polls),
		zap.Int("errors", stats.Errors),
		zap.Int("recalibrations", stats.Recalibrations))
	return nil
}
