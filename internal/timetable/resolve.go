package timetable

import (
	"sort"

	"github.com/samber/lo"
)

type rankedCapability struct {
	TeacherCapability
	order int
}

// capabilityIndex groups capabilities by subject, ranked by priority then input order.
type capabilityIndex struct {
	bySubject map[string][]rankedCapability
}

func newCapabilityIndex(caps []TeacherCapability) *capabilityIndex {
	idx := &capabilityIndex{bySubject: make(map[string][]rankedCapability)}
	for i, c := range caps {
		idx.bySubject[c.Subject] = append(idx.bySubject[c.Subject], rankedCapability{TeacherCapability: c, order: i})
	}
	for _, list := range idx.bySubject {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Priority != list[j].Priority {
				return list[i].Priority > list[j].Priority
			}
			return list[i].order < list[j].order
		})
	}
	return idx
}

func (idx *capabilityIndex) qualified(teacherID, subject string) bool {
	return lo.ContainsBy(idx.bySubject[subject], func(c rankedCapability) bool {
		return c.TeacherID == teacherID
	})
}

// resolveTeacher honours a qualified pre-assigned teacher, otherwise picks the top ranked capability.
func (idx *capabilityIndex) resolveTeacher(class ClassSection) (string, bool) {
	if class.TeacherID != "" && idx.qualified(class.TeacherID, class.Subject) {
		return class.TeacherID, true
	}
	ranked := idx.bySubject[class.Subject]
	if len(ranked) == 0 {
		return "", false
	}
	return ranked[0].TeacherID, true
}

// roomIndex resolves candidate rooms for a class from its requirement.
type roomIndex struct {
	rooms        []Room
	byID         map[string]Room
	requirements map[string]RoomRequirement
}

func newRoomIndex(rooms []Room, reqs []RoomRequirement) *roomIndex {
	idx := &roomIndex{
		rooms:        rooms,
		byID:         lo.KeyBy(rooms, func(r Room) string { return r.ID }),
		requirements: make(map[string]RoomRequirement, len(reqs)),
	}
	for _, req := range reqs {
		// first requirement per class wins
		if _, exists := idx.requirements[req.ClassID]; !exists {
			idx.requirements[req.ClassID] = req
		}
	}
	return idx
}

func (idx *roomIndex) candidates(classID string) []Room {
	req, ok := idx.requirements[classID]
	switch {
	case ok && req.RoomID != "":
		room, exists := idx.byID[req.RoomID]
		if !exists {
			return nil
		}
		return []Room{room}
	case ok && req.RoomType != "":
		return lo.Filter(idx.rooms, func(r Room, _ int) bool { return r.Type == req.RoomType })
	default:
		return idx.rooms
	}
}
