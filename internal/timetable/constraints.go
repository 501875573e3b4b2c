package timetable

type hardRule struct {
	day    int
	window window
}

type softRule struct {
	day    int
	window window
	weight int
}

// rules indexes hard and soft constraints by their target for the duration of one solve.
type rules struct {
	teacherBlocked map[string][]hardRule
	roomBlocked    map[string][]hardRule
	gradeBlocked   map[string][]hardRule
	teacherSoft    map[string][]softRule
}

func compileRules(hard []HardConstraint, soft []SoftConstraint) *rules {
	r := &rules{
		teacherBlocked: make(map[string][]hardRule),
		roomBlocked:    make(map[string][]hardRule),
		gradeBlocked:   make(map[string][]hardRule),
		teacherSoft:    make(map[string][]softRule),
	}
	for _, c := range hard {
		w, err := parseWindow(c.Start, c.End)
		if err != nil {
			// an unreadable blackout blocks the whole day rather than nothing
			w = window{all: true}
		}
		rule := hardRule{day: c.Day, window: w}
		switch c.Kind {
		case HardTeacherUnavailable:
			r.teacherBlocked[c.TargetID] = append(r.teacherBlocked[c.TargetID], rule)
		case HardRoomUnavailable:
			r.roomBlocked[c.TargetID] = append(r.roomBlocked[c.TargetID], rule)
		case HardGradeUnavailable:
			r.gradeBlocked[c.TargetID] = append(r.gradeBlocked[c.TargetID], rule)
		}
	}
	for _, c := range soft {
		if c.Polarity != PolarityAvoid || c.Weight == 0 {
			continue
		}
		rule := softRule{day: c.Day, weight: c.Weight}
		switch c.Kind {
		case SoftTeacherTimePreference:
			w, err := parseWindow(c.Start, c.End)
			if err != nil {
				continue
			}
			rule.window = w
		case SoftTeacherDayPreference:
			rule.window = window{all: true}
		default:
			continue
		}
		r.teacherSoft[c.TeacherID] = append(r.teacherSoft[c.TeacherID], rule)
	}
	return r
}

type candidate struct {
	class   ClassSection
	teacher string
	room    string
	day     int
	slot    slot
}

func (c candidate) assignment(violation int) Assignment {
	return Assignment{
		ClassID:   c.class.ID,
		TeacherID: c.teacher,
		RoomID:    c.room,
		Day:       c.day,
		Block:     c.slot.index,
		Grade:     c.class.Grade,
		Violation: violation,
	}
}

func blocked(list []hardRule, day int, s slot) bool {
	for _, rule := range list {
		if dayMatches(rule.day, day) && rule.window.covers(s) {
			return true
		}
	}
	return false
}

// violatesHard reports whether placing c would double-book the ledger or hit a blackout.
func violatesHard(c candidate, l *ledger, r *rules) bool {
	block := c.slot.index
	if l.teacherBusy(c.teacher, c.day, block) ||
		l.roomBusy(c.room, c.day, block) ||
		l.gradeBusy(c.class.Grade, c.day, block) {
		return true
	}
	return blocked(r.teacherBlocked[c.teacher], c.day, c.slot) ||
		blocked(r.roomBlocked[c.room], c.day, c.slot) ||
		blocked(r.gradeBlocked[c.class.Grade], c.day, c.slot)
}

// softScore sums the weights of the avoid-preferences the placement runs into.
func softScore(c candidate, r *rules) int {
	score := 0
	for _, rule := range r.teacherSoft[c.teacher] {
		if !dayMatches(rule.day, c.day) {
			continue
		}
		if rule.window.covers(c.slot) {
			score += rule.weight
		}
	}
	return score
}
