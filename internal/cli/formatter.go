package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/synheart/synheart-stress/internal/features"
	"github.com/synheart/synheart-stress/internal/models"
)

func renderBar(score float64, width int) string {
	filled := int(score * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// formatReading renders one reading as a single terminal line. The bar shows
// HRV against its clamp ceiling.
func formatReading(r models.Reading) string {
	line := fmt.Sprintf("%-8s bpm %3d  hrv %5.1f %s  spo2 %3d  resp %2d",
		r.Stress, r.BPM, r.HRV, renderBar(r.HRV/features.MaxHRV, 10), r.SpO2, r.Respiration)
	if !r.IsSensorActive {
		line += "  [sensor off]"
	}
	if r.Recalibrate {
		line += "  [recalibrate]"
	}
	if r.Warning != "" {
		line += "  " + r.Warning
	}
	return line
}

func formatUnix(seconds float64) string {
	if seconds <= 0 {
		return "never"
	}
	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).Format("2006-01-02 15:04:05")
}
