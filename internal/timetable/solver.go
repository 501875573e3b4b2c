// Package timetable implements the greedy weekly timetable solver.
//
// Classes are placed one at a time in input order. For each class the solver
// resolves a teacher and the candidate rooms, then scans days, blocks and rooms
// in that order. The first placement with no soft penalty is committed at once;
// otherwise the cheapest legal placement seen is committed after the scan.
// Committed placements are never revisited, so class order affects quality.
package timetable

import (
	"context"
	"math"

	"github.com/samber/lo"
)

// Solve runs the solver to completion. It never fails: unplaceable classes are
// reported as conflicts on the returned Solution.
func Solve(in Input) Solution {
	solution, _ := SolveContext(context.Background(), in)
	return solution
}

// SolveContext behaves like Solve but checks ctx between classes. When ctx is
// done, the classes not yet processed are reported as cancelled and ctx.Err()
// is returned together with the partial solution.
func SolveContext(ctx context.Context, in Input) (Solution, error) {
	classes := filterClasses(in.Classes, in.GradeFilter)
	slots := teachingSlots(in.Blocks)
	teachers := newCapabilityIndex(in.Capabilities)
	rooms := newRoomIndex(in.Rooms, in.Requirements)
	constraints := compileRules(in.HardConstraints, in.SoftConstraints)
	book := newLedger(len(classes))

	var (
		conflicts []Conflict
		softTotal int
		ctxErr    error
	)
	for i, class := range classes {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			for _, rest := range classes[i:] {
				conflicts = append(conflicts, newConflict(ConflictCancelled, rest))
			}
			break
		}

		teacherID, ok := teachers.resolveTeacher(class)
		if !ok {
			conflicts = append(conflicts, newConflict(ConflictNoTeacher, class))
			continue
		}
		candidates := rooms.candidates(class.ID)
		if len(candidates) == 0 {
			conflicts = append(conflicts, newConflict(ConflictNoRoom, class))
			continue
		}

		placed, ok := placeClass(class, teacherID, candidates, slots, book, constraints)
		if !ok {
			conflicts = append(conflicts, newConflict(ConflictNoSlot, class))
			continue
		}
		softTotal += placed.Violation
	}

	return aggregate(book.assignments, conflicts, len(classes), softTotal), ctxErr
}

// placeClass scans day, then block, then room and commits the chosen placement to the ledger.
func placeClass(class ClassSection, teacherID string, candidates []Room, slots []slot, book *ledger, r *rules) (Assignment, bool) {
	var (
		best          candidate
		bestViolation = math.MaxInt
		found         bool
	)
	for day := FirstDay; day <= LastDay; day++ {
		for _, s := range slots {
			for _, room := range candidates {
				c := candidate{class: class, teacher: teacherID, room: room.ID, day: day, slot: s}
				if violatesHard(c, book, r) {
					continue
				}
				v := softScore(c, r)
				if v == 0 {
					a := c.assignment(0)
					book.commit(a)
					return a, true
				}
				if v < bestViolation {
					best, bestViolation, found = c, v, true
				}
			}
		}
	}
	if !found {
		return Assignment{}, false
	}
	a := best.assignment(bestViolation)
	book.commit(a)
	return a, true
}

func filterClasses(classes []ClassSection, grade *string) []ClassSection {
	if grade == nil {
		return classes
	}
	return lo.Filter(classes, func(c ClassSection, _ int) bool { return c.Grade == *grade })
}

func aggregate(assignments []Assignment, conflicts []Conflict, considered, softTotal int) Solution {
	if assignments == nil {
		assignments = []Assignment{}
	}
	if conflicts == nil {
		conflicts = []Conflict{}
	}
	teachers := lo.Uniq(lo.Map(assignments, func(a Assignment, _ int) string { return a.TeacherID }))
	rooms := lo.Uniq(lo.Map(assignments, func(a Assignment, _ int) string { return a.RoomID }))
	return Solution{
		Assignments:    assignments,
		Feasible:       len(conflicts) == 0 && len(assignments) == considered,
		SoftViolations: softTotal,
		Considered:     considered,
		Stats: Stats{
			Assignments:  len(assignments),
			TeachersUsed: len(teachers),
			RoomsUsed:    len(rooms),
			Conflicts:    conflicts,
		},
	}
}
