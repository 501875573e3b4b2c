// Package export renders stored timetables as CSV listings or PDF grids.
package export

import "fmt"

// DayNames labels school days 1..5.
var DayNames = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
}

// DayName returns the weekday label, or "Day N" outside the school week.
func DayName(day int) string {
	if name, ok := DayNames[day]; ok {
		return name
	}
	return fmt.Sprintf("Day %d", day)
}

// ScheduleRow is one placed class as it appears in an export.
type ScheduleRow struct {
	Day        int    `csv:"day"`
	DayName    string `csv:"day_name"`
	Block      int    `csv:"block"`
	BlockLabel string `csv:"block_label"`
	Start      string `csv:"start"`
	End        string `csv:"end"`
	Grade      string `csv:"grade"`
	ClassID    string `csv:"class_id"`
	Subject    string `csv:"subject"`
	TeacherID  string `csv:"teacher_id"`
	Teacher    string `csv:"teacher"`
	RoomID     string `csv:"room_id"`
	Room       string `csv:"room"`
	Violation  bool   `csv:"soft_violation"`
}

// Column is one teaching block across the top of a grid.
type Column struct {
	Block int
	Label string
	Start string
	End   string
}
