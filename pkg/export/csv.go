package export

import (
	"fmt"
	"sort"

	"github.com/gocarina/gocsv"
)

// CSVExporter renders schedule rows into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes a header line plus one record per row ordered by day, block, grade then class.
func (e *CSVExporter) Render(rows []ScheduleRow) ([]byte, error) {
	sorted := sortRows(rows)
	for i := range sorted {
		if sorted[i].DayName == "" {
			sorted[i].DayName = DayName(sorted[i].Day)
		}
	}
	out, err := gocsv.MarshalBytes(&sorted)
	if err != nil {
		return nil, fmt.Errorf("marshal csv: %w", err)
	}
	return out, nil
}

func sortRows(rows []ScheduleRow) []ScheduleRow {
	sorted := make([]ScheduleRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Block != b.Block {
			return a.Block < b.Block
		}
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		return a.ClassID < b.ClassID
	})
	return sorted
}
