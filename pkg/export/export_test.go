package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []ScheduleRow {
	return []ScheduleRow{
		{Day: 2, Block: 1, Grade: "10", ClassID: "C2", Subject: "Physics", TeacherID: "T2", RoomID: "R1", Start: "09:00", End: "10:00"},
		{Day: 1, Block: 0, Grade: "10", ClassID: "C1", Subject: "Math", TeacherID: "T1", Teacher: "Ana", RoomID: "R1", Room: "Lab", Start: "08:00", End: "09:00", Violation: true},
	}
}

func TestCSVRenderOrdersAndLabels(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleRows())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "day,day_name,block,"))

	var decoded []ScheduleRow
	require.NoError(t, gocsv.UnmarshalBytes(out, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "C1", decoded[0].ClassID)
	assert.Equal(t, "Monday", decoded[0].DayName)
	assert.True(t, decoded[0].Violation)
	assert.Equal(t, "Tuesday", decoded[1].DayName)
}

func TestCSVRenderEmpty(t *testing.T) {
	out, err := NewCSVExporter().Render(nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "class_id")
}

func TestPDFRender(t *testing.T) {
	cols := []Column{{Block: 0, Label: "P1", Start: "08:00", End: "09:00"}, {Block: 1, Label: "P2", Start: "09:00", End: "10:00"}}
	out, err := NewPDFExporter().Render("Term 2026A", cols, sampleRows())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFRequiresColumns(t *testing.T) {
	_, err := NewPDFExporter().Render("x", nil, sampleRows())
	assert.Error(t, err)
}

func TestDayName(t *testing.T) {
	assert.Equal(t, "Friday", DayName(5))
	assert.Equal(t, "Day 6", DayName(6))
}
