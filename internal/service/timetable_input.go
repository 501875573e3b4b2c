package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

type timetableInputSource interface {
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListClassSections(ctx context.Context, termID string) ([]models.ClassSection, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListTimeBlocks(ctx context.Context) ([]models.TimeBlock, error)
	ListHardConstraints(ctx context.Context, termID string) ([]models.HardConstraint, error)
	ListSoftConstraints(ctx context.Context, termID string) ([]models.SoftConstraint, error)
	ListCapabilities(ctx context.Context) ([]models.TeacherCapability, error)
	ListRoomRequirements(ctx context.Context, termID string) ([]models.RoomRequirement, error)
}

type inputRows struct {
	teachers     []models.Teacher
	classes      []models.ClassSection
	rooms        []models.Room
	blocks       []models.TimeBlock
	hard         []models.HardConstraint
	soft         []models.SoftConstraint
	capabilities []models.TeacherCapability
	requirements []models.RoomRequirement
}

// loadInputRows fetches every input collection for a term concurrently.
func loadInputRows(ctx context.Context, src timetableInputSource, metrics *MetricsService, termID string) (*inputRows, error) {
	rows := &inputRows{}
	g, gctx := errgroup.WithContext(ctx)

	fetch := func(label string, fn func(context.Context) error) {
		g.Go(func() error {
			start := time.Now()
			err := fn(gctx)
			metrics.ObserveDBQuery(label, time.Since(start))
			return err
		})
	}

	fetch("timetable.teachers", func(ctx context.Context) (err error) {
		rows.teachers, err = src.ListTeachers(ctx)
		return
	})
	fetch("timetable.class_sections", func(ctx context.Context) (err error) {
		rows.classes, err = src.ListClassSections(ctx, termID)
		return
	})
	fetch("timetable.rooms", func(ctx context.Context) (err error) {
		rows.rooms, err = src.ListRooms(ctx)
		return
	})
	fetch("timetable.time_blocks", func(ctx context.Context) (err error) {
		rows.blocks, err = src.ListTimeBlocks(ctx)
		return
	})
	fetch("timetable.hard_constraints", func(ctx context.Context) (err error) {
		rows.hard, err = src.ListHardConstraints(ctx, termID)
		return
	})
	fetch("timetable.soft_constraints", func(ctx context.Context) (err error) {
		rows.soft, err = src.ListSoftConstraints(ctx, termID)
		return
	})
	fetch("timetable.capabilities", func(ctx context.Context) (err error) {
		rows.capabilities, err = src.ListCapabilities(ctx)
		return
	})
	fetch("timetable.room_requirements", func(ctx context.Context) (err error) {
		rows.requirements, err = src.ListRoomRequirements(ctx, termID)
		return
	})

	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable input")
	}
	return rows, nil
}

// toInput maps stored rows onto the solver input. An empty grade solves every grade.
func (r *inputRows) toInput(grade string) timetable.Input {
	in := timetable.Input{
		Teachers: lo.Map(r.teachers, func(t models.Teacher, _ int) timetable.Teacher {
			return timetable.Teacher{ID: t.ID, Name: t.Name, Specialty: t.Specialty}
		}),
		Classes: lo.Map(r.classes, func(c models.ClassSection, _ int) timetable.ClassSection {
			return timetable.ClassSection{ID: c.ID, Subject: c.Subject, Grade: c.Grade, TeacherID: lo.FromPtr(c.TeacherID)}
		}),
		Rooms: lo.Map(r.rooms, func(rm models.Room, _ int) timetable.Room {
			return timetable.Room{ID: rm.ID, Name: rm.Name, Type: rm.Type, Capacity: rm.Capacity}
		}),
		Blocks: lo.Map(r.blocks, func(b models.TimeBlock, _ int) timetable.TimeBlock {
			return timetable.TimeBlock{Start: b.StartTime, End: b.EndTime, Label: b.Label, Break: b.IsBreak}
		}),
		HardConstraints: lo.Map(r.hard, func(h models.HardConstraint, _ int) timetable.HardConstraint {
			return timetable.HardConstraint{
				Kind:     timetable.HardConstraintKind(h.Kind),
				TargetID: h.TargetID,
				Day:      h.DayOfWeek,
				Start:    h.StartTime,
				End:      h.EndTime,
			}
		}),
		SoftConstraints: lo.Map(r.soft, func(s models.SoftConstraint, _ int) timetable.SoftConstraint {
			return timetable.SoftConstraint{
				Kind:      timetable.SoftConstraintKind(s.Kind),
				TeacherID: s.TeacherID,
				Day:       s.DayOfWeek,
				Start:     s.StartTime,
				End:       s.EndTime,
				Polarity:  timetable.Polarity(s.Polarity),
				Weight:    s.Weight,
			}
		}),
		Capabilities: lo.Map(r.capabilities, func(c models.TeacherCapability, _ int) timetable.TeacherCapability {
			return timetable.TeacherCapability{TeacherID: c.TeacherID, Subject: c.Subject, Priority: c.Priority}
		}),
		Requirements: lo.Map(r.requirements, func(rr models.RoomRequirement, _ int) timetable.RoomRequirement {
			return timetable.RoomRequirement{ClassID: rr.ClassID, RoomID: rr.RoomID, RoomType: rr.RoomType}
		}),
	}
	if grade != "" {
		in.GradeFilter = lo.ToPtr(grade)
	}
	return in
}
