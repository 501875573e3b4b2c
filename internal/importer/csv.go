package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/noah-isme/sma-timetable/internal/timetable"
)

// CSV file names read by LoadCSVDir. The first four are required.
const (
	TeachersFile         = "teachers.csv"
	ClassesFile          = "classes.csv"
	RoomsFile            = "rooms.csv"
	BlocksFile           = "blocks.csv"
	HardConstraintsFile  = "hard_constraints.csv"
	SoftConstraintsFile  = "soft_constraints.csv"
	CapabilitiesFile     = "capabilities.csv"
	RoomRequirementsFile = "room_requirements.csv"
)

type teacherRow struct {
	ID        string `csv:"id"`
	Name      string `csv:"name"`
	Specialty string `csv:"specialty"`
}

type classRow struct {
	ID        string `csv:"id"`
	Subject   string `csv:"subject"`
	Grade     string `csv:"grade"`
	TeacherID string `csv:"teacher_id"`
}

type roomRow struct {
	ID       string `csv:"id"`
	Name     string `csv:"name"`
	Type     string `csv:"type"`
	Capacity int    `csv:"capacity"`
}

type blockRow struct {
	Start string `csv:"start"`
	End   string `csv:"end"`
	Label string `csv:"label"`
	Break bool   `csv:"break"`
}

type hardRow struct {
	Kind     string `csv:"kind"`
	TargetID string `csv:"target_id"`
	Day      int    `csv:"day"`
	Start    string `csv:"start"`
	End      string `csv:"end"`
}

type softRow struct {
	Kind      string `csv:"kind"`
	TeacherID string `csv:"teacher_id"`
	Day       int    `csv:"day"`
	Start     string `csv:"start"`
	End       string `csv:"end"`
	Polarity  string `csv:"polarity"`
	Weight    int    `csv:"weight"`
}

type capabilityRow struct {
	TeacherID string `csv:"teacher_id"`
	Subject   string `csv:"subject"`
	Priority  int    `csv:"priority"`
}

type requirementRow struct {
	ClassID  string `csv:"class_id"`
	RoomID   string `csv:"room_id"`
	RoomType string `csv:"room_type"`
}

// LoadCSVDir reads one CSV file per input collection from dir. Optional files may be absent or empty.
func LoadCSVDir(dir string) (timetable.Input, error) {
	var (
		teachers     []teacherRow
		classes      []classRow
		rooms        []roomRow
		blocks       []blockRow
		hard         []hardRow
		soft         []softRow
		capabilities []capabilityRow
		requirements []requirementRow
	)
	files := []struct {
		name     string
		dest     interface{}
		required bool
	}{
		{TeachersFile, &teachers, true},
		{ClassesFile, &classes, true},
		{RoomsFile, &rooms, true},
		{BlocksFile, &blocks, true},
		{HardConstraintsFile, &hard, false},
		{SoftConstraintsFile, &soft, false},
		{CapabilitiesFile, &capabilities, false},
		{RoomRequirementsFile, &requirements, false},
	}
	for _, f := range files {
		if err := readCSV(filepath.Join(dir, f.name), f.dest, f.required); err != nil {
			return timetable.Input{}, err
		}
	}

	return timetable.Input{
		Teachers: lo.Map(teachers, func(r teacherRow, _ int) timetable.Teacher {
			return timetable.Teacher{ID: r.ID, Name: r.Name, Specialty: r.Specialty}
		}),
		Classes: lo.Map(classes, func(r classRow, _ int) timetable.ClassSection {
			return timetable.ClassSection{ID: r.ID, Subject: r.Subject, Grade: r.Grade, TeacherID: r.TeacherID}
		}),
		Rooms: lo.Map(rooms, func(r roomRow, _ int) timetable.Room {
			return timetable.Room{ID: r.ID, Name: r.Name, Type: r.Type, Capacity: r.Capacity}
		}),
		Blocks: lo.Map(blocks, func(r blockRow, _ int) timetable.TimeBlock {
			return timetable.TimeBlock{Start: r.Start, End: r.End, Label: r.Label, Break: r.Break}
		}),
		HardConstraints: lo.Map(hard, func(r hardRow, _ int) timetable.HardConstraint {
			return timetable.HardConstraint{
				Kind:     timetable.HardConstraintKind(r.Kind),
				TargetID: r.TargetID,
				Day:      r.Day,
				Start:    r.Start,
				End:      r.End,
			}
		}),
		SoftConstraints: lo.Map(soft, func(r softRow, _ int) timetable.SoftConstraint {
			return timetable.SoftConstraint{
				Kind:      timetable.SoftConstraintKind(r.Kind),
				TeacherID: r.TeacherID,
				Day:       r.Day,
				Start:     r.Start,
				End:       r.End,
				Polarity:  timetable.Polarity(r.Polarity),
				Weight:    r.Weight,
			}
		}),
		Capabilities: lo.Map(capabilities, func(r capabilityRow, _ int) timetable.TeacherCapability {
			return timetable.TeacherCapability{TeacherID: r.TeacherID, Subject: r.Subject, Priority: r.Priority}
		}),
		Requirements: lo.Map(requirements, func(r requirementRow, _ int) timetable.RoomRequirement {
			return timetable.RoomRequirement{ClassID: r.ClassID, RoomID: r.RoomID, RoomType: r.RoomType}
		}),
	}, nil
}

func readCSV(path string, dest interface{}, required bool) error {
	file, err := os.Open(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if err := gocsv.UnmarshalFile(file, dest); err != nil {
		if !required && errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil
		}
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
