package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/features"
	"github.com/synheart/synheart-stress/internal/models"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and print connection info",
	Long:  `Validates the configuration, loads the model artifacts, checks port availability, and prints connection examples.`,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🏥 Synheart Stress Environment Check")

	fmt.Fprintf(out, "Go Version:        %s\n", runtime.Version())
	fmt.Fprintf(out, "OS/Arch:           %s/%s\n\n", runtime.GOOS, runtime.GOARCH)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "❌ Configuration invalid: %v\n\n", err)
		cfg = config.Default()
	} else {
		fmt.Fprintf(out, "✅ Configuration valid\n\n")
	}

	healthy := checkModels(out, cfg.Models)

	registry, err := loadScenarios()
	if err == nil {
		fmt.Fprintf(out, "✅ Found %d scenarios: %v\n\n", len(registry.List()), registry.List())
	} else {
		fmt.Fprintf(out, "❌ Scenarios: %v\n\n", err)
		healthy = false
	}

	if isPortAvailable(cfg.Server.Port) {
		fmt.Fprintf(out, "✅ Port %d is available\n\n", cfg.Server.Port)
	} else {
		fmt.Fprintf(out, "⚠️  Port %d is in use\n", cfg.Server.Port)
		fmt.Fprintf(out, "   Use --port or STRESS_PORT to pick a different port\n\n")
	}

	printConnectionExamples(out, cfg.Server.Port)

	if !healthy {
		return fmt.Errorf("environment check failed")
	}
	fmt.Fprintln(out, "✅ Environment check complete")
	return nil
}

// checkModels loads the ensemble and scores one reference sample.
func checkModels(out io.Writer, cfg config.ModelsConfig) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	source := "embedded"
	if cfg.Dir != "" {
		source = cfg.Dir
	}

	ensemble, err := loadEnsemble(ctx, cfg)
	if err != nil {
		fmt.Fprintf(out, "❌ Models (%s): %v\n\n", source, err)
		return false
	}
	defer ensemble.Close(ctx)

	sample := models.RawSample{BPM: 75, Respiration: 16, SpO2: 98, HRV: 50}
	result, err := ensemble.Classify(ctx, features.Vector(sample))
	if err != nil {
		fmt.Fprintf(out, "❌ Models (%s) loaded but scoring failed: %v\n\n", source, err)
		return false
	}

	fmt.Fprintf(out, "✅ Models loaded (%s): %v\n", source, ensemble.Models())
	fmt.Fprintf(out, "   Reference sample scored as %s\n\n", result.Label)
	return true
}

func printConnectionExamples(out io.Writer, port int) {
	fmt.Fprintln(out, "📡 Connection Examples:")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Post a sample:")
	fmt.Fprintf(out, "  curl -X POST localhost:%d/predict -H 'Content-Type: application/json' \\\n", port)
	fmt.Fprintln(out, "    -d '{\"bpm\": 82, \"respiration\": 16, \"spo2\": 97, \"hrv\": 45}'")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Poll the latest reading:")
	fmt.Fprintf(out, "  curl localhost:%d/latest\n", port)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "JavaScript (push updates):")
	fmt.Fprintf(out, "  const ws = new WebSocket('ws://localhost:%d/ws');\n", port)
	fmt.Fprintln(out, "  ws.onmessage = (event) => console.log(JSON.parse(event.data));")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Go:")
	fmt.Fprintf(out, "  conn, _, err := websocket.DefaultDialer.Dial(\"ws://localhost:%d/ws\", nil)\n", port)
	fmt.Fprintln(out, "  for {")
	fmt.Fprintln(out, "    _, message, err := conn.ReadMessage()")
	fmt.Fprintln(out, "    var snap Snapshot")
	fmt.Fprintln(out, "    json.Unmarshal(message, &snap)")
	fmt.Fprintln(out, "  }")
	fmt.Fprintln(out)
}

func isPortAvailable(port int) bool {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
