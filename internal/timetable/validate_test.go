package timetable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedInput(t *testing.T) {
	in := crowdedInput()
	in.Requirements = append(in.Requirements, RoomRequirement{ClassID: "c03", RoomID: "not-built-yet"})

	require.NoError(t, Validate(in))
}

func TestValidateRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		want   string
	}{
		{"empty blocks", func(in *Input) { in.Blocks = nil }, "time blocks are required"},
		{"only breaks", func(in *Input) {
			in.Blocks = []TimeBlock{{Start: "10:00", End: "10:15", Label: "Recess"}}
		}, "non-break block"},
		{"bad clock", func(in *Input) { in.Blocks[0].Start = "8am" }, "invalid time"},
		{"inverted block", func(in *Input) { in.Blocks[0].End = "07:00" }, "ends at or before"},
		{"negative capacity", func(in *Input) { in.Rooms[0].Capacity = -1 }, "negative capacity"},
		{"duplicate room", func(in *Input) { in.Rooms = append(in.Rooms, in.Rooms[0]) }, "duplicate room id r1"},
		{"dangling pre-assigned teacher", func(in *Input) { in.Classes[0].TeacherID = "ghost" }, "unknown teacher ghost"},
		{"dangling capability", func(in *Input) {
			in.Capabilities = append(in.Capabilities, TeacherCapability{TeacherID: "ghost", Subject: "math"})
		}, "capability #1 references unknown teacher"},
		{"requirement without target", func(in *Input) {
			in.Requirements = []RoomRequirement{{ClassID: "c1"}}
		}, "neither a room nor a room type"},
		{"unknown hard kind", func(in *Input) {
			in.HardConstraints = []HardConstraint{{Kind: "holiday", TargetID: "t1"}}
		}, "unknown kind"},
		{"hard day out of range", func(in *Input) {
			in.HardConstraints = []HardConstraint{{Kind: HardTeacherUnavailable, TargetID: "t1", Day: 6}}
		}, "day 6 outside"},
		{"negative weight", func(in *Input) {
			in.SoftConstraints = []SoftConstraint{{Kind: SoftTeacherDayPreference, TeacherID: "t1", Day: 2, Polarity: PolarityAvoid, Weight: -3}}
		}, "negative weight"},
		{"unknown polarity", func(in *Input) {
			in.SoftConstraints = []SoftConstraint{{Kind: SoftTeacherDayPreference, TeacherID: "t1", Day: 2, Polarity: "love", Weight: 1}}
		}, "unknown polarity"},
		{"day preference without day", func(in *Input) {
			in.SoftConstraints = []SoftConstraint{{Kind: SoftTeacherDayPreference, TeacherID: "t1", Polarity: PolarityAvoid, Weight: 1}}
		}, "without a day"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mutate(&in)

			err := Validate(in)
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	in := baseInput()
	in.Blocks = nil
	in.Rooms[0].Capacity = -5
	in.Classes[0].Grade = ""

	err := Validate(in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
}
