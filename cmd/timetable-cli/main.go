package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/importer"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	"github.com/noah-isme/sma-timetable/pkg/export"
	"github.com/noah-isme/sma-timetable/pkg/logger"
)

const (
	exitOK         = 0
	exitInvalid    = 1
	exitUsage      = 2
	exitInfeasible = 3
)

var validFormats = []string{"table", "json", "csv", "pdf"}

type options struct {
	input   string
	csvDir  string
	grade   string
	format  string
	out     string
	title   string
	verbose bool
	strict  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	log, err := logger.NewCLI(opts.verbose)
	if err != nil {
		fmt.Fprintf(stderr, "failed to init logger: %v\n", err)
		return exitUsage
	}
	defer log.Sync() //nolint:errcheck

	input, err := loadInput(opts)
	if err != nil {
		log.Error("failed to load input", zap.Error(err))
		return exitInvalid
	}
	if opts.grade != "" {
		input.GradeFilter = lo.ToPtr(opts.grade)
	}

	if err := timetable.Validate(input); err != nil {
		var verr *timetable.ValidationError
		if errors.As(err, &verr) {
			for _, problem := range verr.Problems {
				log.Error("invalid input", zap.String("problem", problem))
			}
		} else {
			log.Error("invalid input", zap.Error(err))
		}
		return exitInvalid
	}

	start := time.Now()
	solution := timetable.Solve(input)
	log.Info("timetable solved",
		zap.Int("considered", solution.Considered),
		zap.Int("assignments", len(solution.Assignments)),
		zap.Int("conflicts", len(solution.Stats.Conflicts)),
		zap.Int("soft_violations", solution.SoftViolations),
		zap.Bool("feasible", solution.Feasible),
		zap.Duration("elapsed", time.Since(start)),
	)
	for _, c := range solution.Stats.Conflicts {
		log.Warn("class not placed", zap.String("kind", string(c.Kind)), zap.String("class_id", c.ClassID), zap.String("message", c.Message))
	}

	payload, err := render(opts, input, solution)
	if err != nil {
		log.Error("failed to render timetable", zap.String("format", opts.format), zap.Error(err))
		return exitInvalid
	}
	if err := write(opts.out, payload, stdout); err != nil {
		log.Error("failed to write output", zap.String("out", opts.out), zap.Error(err))
		return exitInvalid
	}
	if opts.out != "" {
		log.Info("timetable written", zap.String("out", opts.out), zap.Int("bytes", len(payload)))
	}

	if opts.strict && !solution.Feasible {
		return exitInfeasible
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("timetable-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "input", "", "Path to a JSON input document")
	fs.StringVar(&opts.csvDir, "csv-dir", "", "Directory holding teachers.csv, classes.csv, rooms.csv, blocks.csv and optional constraint files")
	fs.StringVar(&opts.grade, "grade", "", "Only schedule class sections of this grade")
	fs.StringVar(&opts.format, "format", "table", "Output format: table, json, csv or pdf")
	fs.StringVar(&opts.out, "out", "", "Write output to this file instead of stdout")
	fs.StringVar(&opts.title, "title", "Timetable", "Title printed on PDF pages")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&opts.strict, "strict", false, "Exit with status 3 when some classes could not be placed")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.format = strings.ToLower(strings.TrimSpace(opts.format))
	switch {
	case opts.input == "" && opts.csvDir == "":
		return opts, errors.New("one of -input or -csv-dir is required")
	case opts.input != "" && opts.csvDir != "":
		return opts, errors.New("-input and -csv-dir are mutually exclusive")
	case !lo.Contains(validFormats, opts.format):
		return opts, fmt.Errorf("unknown format %q, expected one of %s", opts.format, strings.Join(validFormats, ", "))
	case opts.format == "pdf" && opts.out == "":
		return opts, errors.New("-format pdf requires -out")
	}
	return opts, nil
}

func loadInput(opts options) (timetable.Input, error) {
	if opts.csvDir != "" {
		return importer.LoadCSVDir(opts.csvDir)
	}
	return importer.LoadJSON(opts.input)
}

func render(opts options, input timetable.Input, solution timetable.Solution) ([]byte, error) {
	switch opts.format {
	case "json":
		return json.MarshalIndent(solution, "", "  ")
	case "csv":
		return export.NewCSVExporter().Render(scheduleRows(input, solution))
	case "pdf":
		return export.NewPDFExporter().Render(opts.title, columns(input.Blocks), scheduleRows(input, solution))
	default:
		return renderTable(input, solution)
	}
}

func write(path string, payload []byte, stdout io.Writer) error {
	if path == "" {
		_, err := stdout.Write(payload)
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func columns(blocks []timetable.TimeBlock) []export.Column {
	return lo.Map(timetable.TeachingBlockIndexes(blocks), func(idx int, i int) export.Column {
		b := blocks[idx]
		return export.Column{Block: idx, Label: lo.Ternary(b.Label != "", b.Label, fmt.Sprintf("P%d", i+1)), Start: b.Start, End: b.End}
	})
}

func scheduleRows(input timetable.Input, solution timetable.Solution) []export.ScheduleRow {
	teachers := lo.KeyBy(input.Teachers, func(t timetable.Teacher) string { return t.ID })
	rooms := lo.KeyBy(input.Rooms, func(r timetable.Room) string { return r.ID })
	classes := lo.KeyBy(input.Classes, func(c timetable.ClassSection) string { return c.ID })

	return lo.Map(solution.Assignments, func(a timetable.Assignment, _ int) export.ScheduleRow {
		row := export.ScheduleRow{
			Day:       a.Day,
			DayName:   export.DayName(a.Day),
			Block:     a.Block,
			Grade:     a.Grade,
			ClassID:   a.ClassID,
			Subject:   classes[a.ClassID].Subject,
			TeacherID: a.TeacherID,
			Teacher:   teachers[a.TeacherID].Name,
			RoomID:    a.RoomID,
			Room:      rooms[a.RoomID].Name,
			Violation: a.Violation > 0,
		}
		if a.Block >= 0 && a.Block < len(input.Blocks) {
			b := input.Blocks[a.Block]
			row.BlockLabel, row.Start, row.End = b.Label, b.Start, b.End
		}
		return row
	})
}

func renderTable(input timetable.Input, solution timetable.Solution) ([]byte, error) {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tBLOCK\tTIME\tGRADE\tCLASS\tSUBJECT\tTEACHER\tROOM\tPENALTY")
	for _, row := range sortedRows(scheduleRows(input, solution)) {
		fmt.Fprintf(w, "%s\t%s\t%s-%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.DayName, lo.Ternary(row.BlockLabel != "", row.BlockLabel, fmt.Sprintf("#%d", row.Block)),
			row.Start, row.End, row.Grade, row.ClassID, row.Subject,
			lo.Ternary(row.Teacher != "", row.Teacher, row.TeacherID),
			lo.Ternary(row.Room != "", row.Room, row.RoomID),
			lo.Ternary(row.Violation, "yes", ""),
		)
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	fmt.Fprintf(&buf, "\nplaced %d of %d class sections, soft violations %d, feasible %t\n",
		len(solution.Assignments), solution.Considered, solution.SoftViolations, solution.Feasible)
	for _, c := range solution.Stats.Conflicts {
		fmt.Fprintf(&buf, "  %s: %s\n", c.Kind, c.Message)
	}
	return []byte(buf.String()), nil
}

func sortedRows(rows []export.ScheduleRow) []export.ScheduleRow {
	out := append([]export.ScheduleRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].Grade < out[j].Grade
	})
	return out
}
