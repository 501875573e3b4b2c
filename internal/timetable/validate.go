package timetable

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem found in an Input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid timetable input: " + strings.Join(e.Problems, "; ")
}

type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate checks referential integrity and value ranges that Solve assumes.
// A RoomRequirement naming an unknown room is left to Solve, which reports it
// as an unresolved-room conflict.
func Validate(in Input) error {
	var p problems

	validateBlocks(in.Blocks, &p)

	teacherIDs := uniqueIDs("teacher", len(in.Teachers), func(i int) string { return in.Teachers[i].ID }, &p)
	roomIDs := uniqueIDs("room", len(in.Rooms), func(i int) string { return in.Rooms[i].ID }, &p)
	classIDs := uniqueIDs("class", len(in.Classes), func(i int) string { return in.Classes[i].ID }, &p)

	for _, r := range in.Rooms {
		if r.Capacity < 0 {
			p.add("room %s has negative capacity %d", r.ID, r.Capacity)
		}
	}
	for _, c := range in.Classes {
		if strings.TrimSpace(c.Subject) == "" {
			p.add("class %s has no subject", c.ID)
		}
		if strings.TrimSpace(c.Grade) == "" {
			p.add("class %s has no grade", c.ID)
		}
		if c.TeacherID != "" && !teacherIDs[c.TeacherID] {
			p.add("class %s references unknown teacher %s", c.ID, c.TeacherID)
		}
	}
	for i, c := range in.Capabilities {
		if !teacherIDs[c.TeacherID] {
			p.add("capability #%d references unknown teacher %s", i, c.TeacherID)
		}
		if strings.TrimSpace(c.Subject) == "" {
			p.add("capability #%d has no subject", i)
		}
	}
	for i, r := range in.Requirements {
		if !classIDs[r.ClassID] {
			p.add("room requirement #%d references unknown class %s", i, r.ClassID)
		}
		if r.RoomID == "" && r.RoomType == "" {
			p.add("room requirement #%d names neither a room nor a room type", i)
		}
	}
	for i, c := range in.HardConstraints {
		validateHard(i, c, teacherIDs, roomIDs, &p)
	}
	for i, c := range in.SoftConstraints {
		validateSoft(i, c, teacherIDs, &p)
	}

	if len(p) > 0 {
		return &ValidationError{Problems: p}
	}
	return nil
}

func validateBlocks(blocks []TimeBlock, p *problems) {
	if len(blocks) == 0 {
		p.add("time blocks are required")
		return
	}
	teaching := 0
	for i, b := range blocks {
		start, err := parseClock(b.Start)
		if err != nil {
			p.add("block #%d: %v", i, err)
			continue
		}
		end, err := parseClock(b.End)
		if err != nil {
			p.add("block #%d: %v", i, err)
			continue
		}
		if end <= start {
			p.add("block #%d ends at or before it starts", i)
			continue
		}
		if !isBreak(b) {
			teaching++
		}
	}
	if teaching == 0 {
		p.add("at least one non-break block is required")
	}
}

func uniqueIDs(kind string, n int, id func(int) string, p *problems) map[string]bool {
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		value := id(i)
		if strings.TrimSpace(value) == "" {
			p.add("%s #%d has an empty id", kind, i)
			continue
		}
		if seen[value] {
			p.add("duplicate %s id %s", kind, value)
		}
		seen[value] = true
	}
	return seen
}

func validateDay(label string, day int, p *problems) {
	if day != 0 && (day < FirstDay || day > LastDay) {
		p.add("%s day %d outside %d-%d", label, day, FirstDay, LastDay)
	}
}

func validateHard(i int, c HardConstraint, teachers, rooms map[string]bool, p *problems) {
	label := fmt.Sprintf("hard constraint #%d", i)
	switch c.Kind {
	case HardTeacherUnavailable:
		if !teachers[c.TargetID] {
			p.add("%s references unknown teacher %s", label, c.TargetID)
		}
	case HardRoomUnavailable:
		if !rooms[c.TargetID] {
			p.add("%s references unknown room %s", label, c.TargetID)
		}
	case HardGradeUnavailable:
		if strings.TrimSpace(c.TargetID) == "" {
			p.add("%s has no grade", label)
		}
	default:
		p.add("%s has unknown kind %q", label, c.Kind)
	}
	validateDay(label, c.Day, p)
	if _, err := parseWindow(c.Start, c.End); err != nil {
		p.add("%s: %v", label, err)
	}
}

func validateSoft(i int, c SoftConstraint, teachers map[string]bool, p *problems) {
	label := fmt.Sprintf("soft constraint #%d", i)
	switch c.Kind {
	case SoftTeacherTimePreference:
		if _, err := parseWindow(c.Start, c.End); err != nil {
			p.add("%s: %v", label, err)
		}
	case SoftTeacherDayPreference:
		if c.Day == 0 {
			p.add("%s is a day preference without a day", label)
		}
	default:
		p.add("%s has unknown kind %q", label, c.Kind)
	}
	if !teachers[c.TeacherID] {
		p.add("%s references unknown teacher %s", label, c.TeacherID)
	}
	if c.Polarity != PolarityAvoid && c.Polarity != PolarityPrefer {
		p.add("%s has unknown polarity %q", label, c.Polarity)
	}
	if c.Weight < 0 {
		p.add("%s has negative weight %d", label, c.Weight)
	}
	validateDay(label, c.Day, p)
}
