package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synheart/synheart-stress/internal/recorder"
	"github.com/synheart/synheart-stress/internal/report"
)

var (
	exportIn  string
	exportOut string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a recorded session to an Excel workbook",
	Long: `Writes the readings of an NDJSON recording to an xlsx workbook with a
Readings sheet and a per-label Summary sheet. Snapshots produced only by
control changes are skipped.

Examples:
  synheart-stress export --in session.ndjson --out session.xlsx`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportIn, "in", "", "Recorded NDJSON file (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output xlsx file (required)")
	exportCmd.MarkFlagRequired("in")
	exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
	snaps, err := recorder.ReadAll(exportIn)
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}
	readings := recorder.Readings(snaps)

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOut, err)
	}

	if err := report.WriteXLSX(f, readings); err != nil {
		f.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", exportOut, err)
	}

	if !globalOpts.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d readings to %s\n", len(readings), exportOut)
	}
	return nil
}
