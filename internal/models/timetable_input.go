package models

// Teacher is a staff row eligible for timetable assignments.
type Teacher struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Specialty string `db:"specialty" json:"specialty,omitempty"`
}

// ClassSection is a term-scoped subject offering for a grade.
type ClassSection struct {
	ID        string  `db:"id" json:"id"`
	TermID    string  `db:"term_id" json:"term_id"`
	Subject   string  `db:"subject" json:"subject"`
	Grade     string  `db:"grade" json:"grade"`
	TeacherID *string `db:"teacher_id" json:"teacher_id,omitempty"`
}

// Room is a bookable classroom, lab or hall.
type Room struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Type     string `db:"room_type" json:"room_type,omitempty"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// TimeBlock is one period of the school day, ordered by Position.
type TimeBlock struct {
	ID        string `db:"id" json:"id"`
	Position  int    `db:"position" json:"position"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
	Label     string `db:"label" json:"label,omitempty"`
	IsBreak   bool   `db:"is_break" json:"is_break"`
}

// HardConstraint blocks a teacher, room or grade during a window.
type HardConstraint struct {
	ID        string `db:"id" json:"id"`
	TermID    string `db:"term_id" json:"term_id"`
	Kind      string `db:"kind" json:"kind"`
	TargetID  string `db:"target_id" json:"target_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time,omitempty"`
	EndTime   string `db:"end_time" json:"end_time,omitempty"`
}

// SoftConstraint is a weighted teacher preference.
type SoftConstraint struct {
	ID        string `db:"id" json:"id"`
	TermID    string `db:"term_id" json:"term_id"`
	Kind      string `db:"kind" json:"kind"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time,omitempty"`
	EndTime   string `db:"end_time" json:"end_time,omitempty"`
	Polarity  string `db:"polarity" json:"polarity"`
	Weight    int    `db:"weight" json:"weight"`
}

// TeacherCapability links a teacher to a subject with a selection priority.
type TeacherCapability struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	Subject   string `db:"subject" json:"subject"`
	Priority  int    `db:"priority" json:"priority"`
}

// RoomRequirement pins a class section to a room or a room type.
type RoomRequirement struct {
	ClassID  string `db:"class_id" json:"class_id"`
	RoomID   string `db:"room_id" json:"room_id,omitempty"`
	RoomType string `db:"room_type" json:"room_type,omitempty"`
}
