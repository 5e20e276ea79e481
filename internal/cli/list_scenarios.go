package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var listScenariosCmd = &cobra.Command{
	Use:   "list-scenarios",
	Short: "List available simulator scenarios",
	Long:  `Lists the built-in scenarios, plus any found in ./scenarios, with their descriptions.`,
	RunE:  runListScenarios,
}

func init() {
	listScenariosCmd.Flags().StringVar(&scenariosDir, "scenarios", "", "Directory with extra scenario YAML files")
}

func runListScenarios(cmd *cobra.Command, args []string) error {
	registry, err := loadScenarios()
	if err != nil {
		return err
	}

	scenarios := registry.ListWithDescriptions()
	if len(scenarios) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found")
		return nil
	}

	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Available scenarios:")
	fmt.Fprintln(out)
	for _, name := range names {
		fmt.Fprintf(out, "  %-20s %s\n", name, scenarios[name])
	}
	fmt.Fprintln(out)

	return nil
}
