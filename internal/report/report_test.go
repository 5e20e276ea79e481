package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/synheart/synheart-stress/internal/models"
)

func reading(stress string, bpm int, hrv float64) models.Snapshot {
	return models.Snapshot{Reading: models.Reading{
		ReadingID:      "id-" + stress,
		Stress:         stress,
		BPM:            bpm,
		HRV:            hrv,
		SpO2:           98,
		Respiration:    16,
		DisplayMode:    "STRESS",
		IsSensorActive: true,
		SendInterval:   10000,
		LastUpdated:    1700000000,
	}}
}

func TestWriteXLSX(t *testing.T) {
	readings := []models.Snapshot{
		reading("High", 130, 20),
		reading("Low", 60, 90),
		reading("High", 120, 30),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, readings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ReadingsSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(ReadingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, ReadingsHeader, rows[0])
	assert.Equal(t, "2023-11-14 22:13:20.000", rows[1][0])
	assert.Equal(t, "High", rows[1][1])
	assert.Equal(t, "130", rows[1][3])
	assert.Equal(t, "Yes", rows[1][8])

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"High", "2", "125", "25"}, summary[1])
	assert.Equal(t, []string{"Low", "1", "60", "90"}, summary[2])
}

func TestSummarize_Empty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "", formatTime(0))
	assert.Equal(t, "1970-01-01 00:00:01.500", formatTime(1.5))
}
