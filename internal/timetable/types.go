package timetable

import "fmt"

// Weekday bounds for generated assignments (Monday..Friday).
const (
	FirstDay = 1
	LastDay  = 5
)

// Teacher is a staff member who can be assigned to classes.
type Teacher struct {
	ID        string `json:"id" mapstructure:"id"`
	Name      string `json:"name" mapstructure:"name"`
	Specialty string `json:"specialty,omitempty" mapstructure:"specialty"`
}

// ClassSection is one subject taught to one grade that needs a weekly slot.
type ClassSection struct {
	ID        string `json:"id" mapstructure:"id"`
	Subject   string `json:"subject" mapstructure:"subject"`
	Grade     string `json:"grade" mapstructure:"grade"`
	TeacherID string `json:"teacherId,omitempty" mapstructure:"teacherId"`
}

// Room is a physical space classes can be held in.
type Room struct {
	ID       string `json:"id" mapstructure:"id"`
	Name     string `json:"name" mapstructure:"name"`
	Type     string `json:"type,omitempty" mapstructure:"type"`
	Capacity int    `json:"capacity" mapstructure:"capacity"`
}

// TimeBlock is one period of the daily grid. Start and End use HH:MM.
type TimeBlock struct {
	Start string `json:"start" mapstructure:"start"`
	End   string `json:"end" mapstructure:"end"`
	Label string `json:"label,omitempty" mapstructure:"label"`
	Break bool   `json:"break,omitempty" mapstructure:"break"`
}

// HardConstraintKind enumerates blocking rules.
type HardConstraintKind string

const (
	HardTeacherUnavailable HardConstraintKind = "teacher_unavailable"
	HardRoomUnavailable    HardConstraintKind = "room_unavailable"
	HardGradeUnavailable   HardConstraintKind = "grade_unavailable"
)

// HardConstraint forbids placements of its target inside a day/time window.
// Day 0 applies to every teaching day; an empty window covers the whole day.
type HardConstraint struct {
	Kind     HardConstraintKind `json:"kind" mapstructure:"kind"`
	TargetID string             `json:"targetId" mapstructure:"targetId"`
	Day      int                `json:"day" mapstructure:"day"`
	Start    string             `json:"start,omitempty" mapstructure:"start"`
	End      string             `json:"end,omitempty" mapstructure:"end"`
}

// SoftConstraintKind enumerates weighted teacher preferences.
type SoftConstraintKind string

const (
	SoftTeacherTimePreference SoftConstraintKind = "teacher_time_preference"
	SoftTeacherDayPreference  SoftConstraintKind = "teacher_day_preference"
)

// Polarity tells whether a preference penalises or rewards a slot.
type Polarity string

const (
	PolarityAvoid Polarity = "avoid"
	// PolarityPrefer is accepted but contributes nothing to the score.
	PolarityPrefer Polarity = "prefer"
)

// SoftConstraint penalises, without forbidding, placements for a teacher.
type SoftConstraint struct {
	Kind      SoftConstraintKind `json:"kind" mapstructure:"kind"`
	TeacherID string             `json:"teacherId" mapstructure:"teacherId"`
	Day       int                `json:"day" mapstructure:"day"`
	Start     string             `json:"start,omitempty" mapstructure:"start"`
	End       string             `json:"end,omitempty" mapstructure:"end"`
	Polarity  Polarity           `json:"polarity" mapstructure:"polarity"`
	Weight    int                `json:"weight" mapstructure:"weight"`
}

// TeacherCapability declares a teacher qualified for a subject.
type TeacherCapability struct {
	TeacherID string `json:"teacherId" mapstructure:"teacherId"`
	Subject   string `json:"subject" mapstructure:"subject"`
	Priority  int    `json:"priority" mapstructure:"priority"`
}

// RoomRequirement pins a class to a room or to a room type. RoomID wins when both are set.
type RoomRequirement struct {
	ClassID  string `json:"classId" mapstructure:"classId"`
	RoomID   string `json:"roomId,omitempty" mapstructure:"roomId"`
	RoomType string `json:"roomType,omitempty" mapstructure:"roomType"`
}

// Input bundles everything a solve reads. Collections are treated as read-only.
type Input struct {
	Teachers        []Teacher           `json:"teachers" mapstructure:"teachers"`
	Classes         []ClassSection      `json:"classes" mapstructure:"classes"`
	Rooms           []Room              `json:"rooms" mapstructure:"rooms"`
	Blocks          []TimeBlock         `json:"blocks" mapstructure:"blocks"`
	HardConstraints []HardConstraint    `json:"hardConstraints" mapstructure:"hardConstraints"`
	SoftConstraints []SoftConstraint    `json:"softConstraints" mapstructure:"softConstraints"`
	Capabilities    []TeacherCapability `json:"capabilities" mapstructure:"capabilities"`
	Requirements    []RoomRequirement   `json:"roomRequirements" mapstructure:"roomRequirements"`
	GradeFilter     *string             `json:"gradeFilter,omitempty" mapstructure:"gradeFilter"`
}

// Assignment is one committed placement of a class.
type Assignment struct {
	ClassID   string `json:"classId"`
	TeacherID string `json:"teacherId"`
	RoomID    string `json:"roomId"`
	Day       int    `json:"day"`
	Block     int    `json:"block"`
	Grade     string `json:"grade"`
	Violation int    `json:"violation"`
}

// ConflictKind tags why a class was left unscheduled.
type ConflictKind string

const (
	ConflictNoTeacher ConflictKind = "no_teacher"
	ConflictNoRoom    ConflictKind = "no_room"
	ConflictNoSlot    ConflictKind = "no_slot"
	ConflictCancelled ConflictKind = "cancelled"
)

// Conflict records a class that could not be placed.
type Conflict struct {
	Kind    ConflictKind `json:"kind"`
	ClassID string       `json:"classId"`
	Message string       `json:"message"`
}

func (c Conflict) String() string {
	return c.Message
}

func newConflict(kind ConflictKind, class ClassSection) Conflict {
	var reason string
	switch kind {
	case ConflictNoTeacher:
		reason = "no available teacher"
	case ConflictNoRoom:
		reason = "no available room"
	case ConflictNoSlot:
		reason = "could not schedule"
	default:
		reason = "solve cancelled"
	}
	return Conflict{
		Kind:    kind,
		ClassID: class.ID,
		Message: fmt.Sprintf("%s (grade %s): %s for class %s", class.Subject, class.Grade, reason, class.ID),
	}
}

// Stats summarises a solution.
type Stats struct {
	Assignments  int        `json:"assignments"`
	TeachersUsed int        `json:"teachersUsed"`
	RoomsUsed    int        `json:"roomsUsed"`
	Conflicts    []Conflict `json:"conflicts"`
}

// Solution is the solver output.
type Solution struct {
	Assignments    []Assignment `json:"assignments"`
	Feasible       bool         `json:"feasible"`
	SoftViolations int          `json:"softViolations"`
	Considered     int          `json:"considered"`
	Stats          Stats        `json:"stats"`
}

// ConflictMessages returns the human readable conflict list.
func (s Solution) ConflictMessages() []string {
	out := make([]string, 0, len(s.Stats.Conflicts))
	for _, c := range s.Stats.Conflicts {
		out = append(out, c.Message)
	}
	return out
}
