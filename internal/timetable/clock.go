package timetable

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
)

const clockLayout = "15:04"

var breakLabels = []string{"break", "lunch", "recess", "recreo", "almuerzo"}

// parseClock converts HH:MM into minutes since midnight.
func parseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 4 {
		raw = "0" + raw
	}
	t, err := time.Parse(clockLayout, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// window is a parsed [start, end] interval in minutes; all marks a whole-day window.
type window struct {
	start, end int
	all        bool
}

func parseWindow(start, end string) (window, error) {
	if strings.TrimSpace(start) == "" && strings.TrimSpace(end) == "" {
		return window{all: true}, nil
	}
	s, err := parseClock(start)
	if err != nil {
		return window{}, err
	}
	e, err := parseClock(end)
	if err != nil {
		return window{}, err
	}
	if e < s {
		return window{}, fmt.Errorf("window %s-%s ends before it starts", start, end)
	}
	return window{start: s, end: e}, nil
}

func (w window) covers(b slot) bool {
	if w.all {
		return true
	}
	return w.start <= b.start && b.end <= w.end
}

// slot is a parsed teaching block.
type slot struct {
	index      int
	start, end int
}

// isBreak reports whether a block is a break: the flag is set, or every word of the
// label is a break keyword or a number ("Lunch", "Lunch Break", "Recess 2").
func isBreak(b TimeBlock) bool {
	if b.Break {
		return true
	}
	words := strings.FieldsFunc(strings.ToLower(b.Label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return false
	}
	sawKeyword := false
	for _, word := range words {
		switch {
		case lo.Contains(breakLabels, word):
			sawKeyword = true
		case strings.IndexFunc(word, func(r rune) bool { return !unicode.IsDigit(r) }) == -1:
		default:
			return false
		}
	}
	return sawKeyword
}

// teachingSlots returns the non-break blocks in order. Blocks with unparsable times are dropped.
func teachingSlots(blocks []TimeBlock) []slot {
	slots := make([]slot, 0, len(blocks))
	for i, b := range blocks {
		if isBreak(b) {
			continue
		}
		start, err := parseClock(b.Start)
		if err != nil {
			continue
		}
		end, err := parseClock(b.End)
		if err != nil {
			continue
		}
		slots = append(slots, slot{index: i, start: start, end: end})
	}
	return slots
}

func dayMatches(constraintDay, day int) bool {
	return constraintDay == 0 || constraintDay == day
}

// TeachingBlockIndexes returns the positions in blocks that can host classes.
func TeachingBlockIndexes(blocks []TimeBlock) []int {
	slots := teachingSlots(blocks)
	out := make([]int, len(slots))
	for i, s := range slots {
		out[i] = s.index
	}
	return out
}
