package timetable

type slotKey struct {
	id    string
	day   int
	block int
}

// ledger holds the assignments committed during one solve and indexes them for double-booking checks.
type ledger struct {
	assignments []Assignment
	teachers    map[slotKey]struct{}
	rooms       map[slotKey]struct{}
	grades      map[slotKey]struct{}
}

func newLedger(capacity int) *ledger {
	return &ledger{
		assignments: make([]Assignment, 0, capacity),
		teachers:    make(map[slotKey]struct{}),
		rooms:       make(map[slotKey]struct{}),
		grades:      make(map[slotKey]struct{}),
	}
}

func (l *ledger) teacherBusy(teacherID string, day, block int) bool {
	_, ok := l.teachers[slotKey{id: teacherID, day: day, block: block}]
	return ok
}

func (l *ledger) roomBusy(roomID string, day, block int) bool {
	_, ok := l.rooms[slotKey{id: roomID, day: day, block: block}]
	return ok
}

func (l *ledger) gradeBusy(grade string, day, block int) bool {
	_, ok := l.grades[slotKey{id: grade, day: day, block: block}]
	return ok
}

func (l *ledger) commit(a Assignment) {
	l.assignments = append(l.assignments, a)
	l.teachers[slotKey{id: a.TeacherID, day: a.Day, block: a.Block}] = struct{}{}
	l.rooms[slotKey{id: a.RoomID, day: a.Day, block: a.Block}] = struct{}{}
	l.grades[slotKey{id: a.Grade, day: a.Day, block: a.Block}] = struct{}{}
}
