package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-stress/internal/scenario"
)

var describeCmd = &cobra.Command{
	Use:   "describe <scenario>",
	Short: "Describe a scenario in detail",
	Long:  `Shows detailed information about a scenario including signals, phases, and overrides.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func init() {
	describeCmd.Flags().StringVar(&scenariosDir, "scenarios", "", "Directory with extra scenario YAML files")
}

func runDescribe(cmd *cobra.Command, args []string) error {
	registry, err := loadScenarios()
	if err != nil {
		return err
	}

	scen, err := registry.Get(args[0])
	if err != nil {
		return fmt.Errorf("scenario not found: %w", err)
	}

	describeScenario(cmd.OutOrStdout(), scen)
	return nil
}

func describeScenario(out io.Writer, scen *scenario.Scenario) {
	fmt.Fprintf(out, "Scenario: %s\n", scen.Name)
	fmt.Fprintf(out, "Description: %s\n", scen.Description)
	fmt.Fprintf(out, "Duration: %s\n", scen.Duration)
	if scen.DefaultInterval != "" {
		fmt.Fprintf(out, "Default Interval: %s\n", scen.DefaultInterval)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Signals:")
	for _, name := range sortedKeys(scen.Signals) {
		config := scen.Signals[name]
		fmt.Fprintf(out, "  %s\n", name)
		if config.Value != "" {
			fmt.Fprintf(out, "    Value: %s\n", config.Value)
		}
		if config.Baseline != 0 {
			fmt.Fprintf(out, "    Baseline: %v\n", config.Baseline)
		}
		if config.Noise != 0 {
			fmt.Fprintf(out, "    Noise: %v\n", config.Noise)
		}
		if config.Min != 0 || config.Max != 0 {
			fmt.Fprintf(out, "    Range: %v-%v\n", config.Min, config.Max)
		}
		if config.Unit != "" {
			fmt.Fprintf(out, "    Unit: %s\n", config.Unit)
		}
	}

	if len(scen.Phases) > 0 {
		fmt.Fprintln(out, "\nPhases:")
		for i, phase := range scen.Phases {
			fmt.Fprintf(out, "  %d. %s (duration: %s)\n", i+1, phase.Name, phase.Duration)
			if len(phase.Overrides) == 0 {
				continue
			}
			fmt.Fprintln(out, "     Overrides:")
			for _, signal := range sortedKeys(phase.Overrides) {
				override := phase.Overrides[signal]
				fmt.Fprintf(out, "       %s:", signal)
				if override.Add != 0 {
					fmt.Fprintf(out, " add=%.1f", override.Add)
				}
				if override.Multiply != 0 {
					fmt.Fprintf(out, " multiply=%.2f", override.Multiply)
				}
				if override.Value != "" {
					fmt.Fprintf(out, " value=%s", override.Value)
				}
				if override.Baseline != 0 {
					fmt.Fprintf(out, " baseline=%v", override.Baseline)
				}
				if override.Noise != 0 {
					fmt.Fprintf(out, " noise=%v", override.Noise)
				}
				fmt.Fprintln(out)
			}
		}
	}

	fmt.Fprintln(out)
}

func sortedKeys(m map[string]*scenario.SignalConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
