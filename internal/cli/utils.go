package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/synheart/synheart-stress/internal/classifier"
	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/scenario"
)

var scenariosDir string

// getScenarioDir returns an extra scenario directory, if one exists.
func getScenarioDir() string {
	if scenariosDir != "" {
		return scenariosDir
	}

	// Try current directory first
	if _, err := os.Stat("scenarios"); err == nil {
		return "scenarios"
	}

	// Try relative to executable
	exe, err := os.Executable()
	if err == nil {
		dir := filepath.Join(filepath.Dir(exe), "scenarios")
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}
	return ""
}

// loadScenarios returns the built-in scenarios plus any found on disk. A
// scenario on disk replaces a built-in one of the same name.
func loadScenarios() (*scenario.Registry, error) {
	registry, err := scenario.NewBuiltinRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in scenarios: %w", err)
	}
	if dir := getScenarioDir(); dir != "" {
		if err := registry.LoadFromDir(dir); err != nil {
			return nil, fmt.Errorf("failed to load scenarios from %s: %w", dir, err)
		}
	}
	return registry, nil
}

// loadEnsemble loads the configured models, falling back to the embedded
// artifacts when no directory is set.
func loadEnsemble(ctx context.Context, cfg config.ModelsConfig) (*classifier.Ensemble, error) {
	if cfg.Dir == "" {
		return classifier.LoadDefault(ctx)
	}
	return classifier.LoadDir(ctx, cfg.Dir, cfg.Artifacts)
}

// parseInterval accepts a duration ("2s", "500ms") or a rate ("0.5hz").
func parseInterval(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "hz") {
		var hz float64
		if _, err := fmt.Sscanf(s, "%fhz", &hz); err != nil {
			return 0, err
		}
		if hz <= 0 {
			return 0, fmt.Errorf("rate must be positive")
		}
		return time.Duration(float64(time.Second) / hz), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	return d, nil
}

// withSignals returns a context cancelled on SIGINT or SIGTERM.
func withSignals(onSignal func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			if onSignal != nil {
				onSignal()
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
