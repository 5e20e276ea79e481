// Package report exports recorded readings to a spreadsheet.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/synheart/synheart-stress/internal/models"
)

const (
	ReadingsSheet = "Readings"
	SummarySheet  = "Summary"
)

// ReadingsHeader is the column order of the readings sheet.
var ReadingsHeader = []string{
	"Time (UTC)",
	"Stress",
	"Warning",
	"BPM",
	"HRV",
	"SpO2",
	"Respiration",
	"Display Mode",
	"Sensor Active",
	"Send Interval (ms)",
	"Recalibrate",
	"Reading ID",
}

var columnWidths = []float64{22, 10, 30, 8, 8, 8, 12, 14, 14, 18, 12, 38}

// WriteXLSX writes one row per reading plus a per-label summary sheet.
func WriteXLSX(w io.Writer, readings []models.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ReadingsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, ReadingsSheet, ReadingsHeader, headerStyle); err != nil {
		return err
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(ReadingsSheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range readings {
		row := []interface{}{
			formatTime(r.LastUpdated),
			r.Stress,
			r.Warning,
			r.BPM,
			r.HRV,
			r.SpO2,
			r.Respiration,
			r.DisplayMode,
			yesNo(r.IsSensorActive),
			r.SendInterval,
			yesNo(r.Recalibrate),
			r.ReadingID,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ReadingsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(ReadingsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if err := writeSummary(f, readings, headerStyle); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Summary aggregates readings that share a stress label.
type Summary struct {
	Stress  string
	Count   int
	MeanBPM float64
	MeanHRV float64
}

// Summarize groups readings by stress label, ordered by label.
func Summarize(readings []models.Snapshot) []Summary {
	byLabel := map[string]*Summary{}
	for _, r := range readings {
		s, ok := byLabel[r.Stress]
		if !ok {
			s = &Summary{Stress: r.Stress}
			byLabel[r.Stress] = s
		}
		s.Count++
		s.MeanBPM += float64(r.BPM)
		s.MeanHRV += r.HRV
	}

	out := make([]Summary, 0, len(byLabel))
	for _, s := range byLabel {
		s.MeanBPM /= float64(s.Count)
		s.MeanHRV /= float64(s.Count)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stress < out[j].Stress })
	return out
}

func writeSummary(f *excelize.File, readings []models.Snapshot, headerStyle int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeader(f, SummarySheet, []string{"Stress", "Count", "Mean BPM", "Mean HRV"}, headerStyle); err != nil {
		return err
	}
	for i, s := range Summarize(readings) {
		row := []interface{}{s.Stress, s.Count, round2(s.MeanBPM), round2(s.MeanHRV)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

func formatTime(unixSeconds float64) string {
	if unixSeconds <= 0 {
		return ""
	}
	sec := int64(unixSeconds)
	nsec := int64((unixSeconds - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC().Format("2006-01-02 15:04:05.000")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
